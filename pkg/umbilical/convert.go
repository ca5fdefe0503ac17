package umbilical

import "github.com/dagrunner/taskcommunicator/pkg/protocol"

func toWireResources(resources map[string]*LocalResource) map[string]*protocol.LocalResource {
	if resources == nil {
		return nil
	}
	out := make(map[string]*protocol.LocalResource, len(resources))
	for name, r := range resources {
		out[name] = &protocol.LocalResource{Name: r.Name, Data: r.Data}
	}
	return out
}

func toWireCredentials(creds *Credentials) *protocol.Credentials {
	if creds == nil {
		return nil
	}
	return &protocol.Credentials{Tokens: creds.Tokens}
}

func toWireEvents(events []*Event) []*protocol.Event {
	if events == nil {
		return nil
	}
	out := make([]*protocol.Event, len(events))
	for i, e := range events {
		out[i] = &protocol.Event{Index: e.Index, Data: e.Data}
	}
	return out
}

func fromWireEvents(events []*protocol.Event) []*Event {
	if events == nil {
		return nil
	}
	out := make([]*Event, len(events))
	for i, e := range events {
		out[i] = &Event{Index: e.Index, Data: e.Data}
	}
	return out
}

// dieMarker is the getTask answer for a container the registry does not
// hold (the upstream's "task for invalid JVM"): it is told to exit rather
// than being sent an empty answer, because a worker that is never told it
// is obsolete would keep polling for a task forever.
var dieMarker = &protocol.ContainerTask{ShouldDie: true}
var noTask = &protocol.ContainerTask{ShouldDie: false}
