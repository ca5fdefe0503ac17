package app

import (
	"time"

	"github.com/dagrunner/taskcommunicator/pkg/launcher"
	"github.com/dagrunner/taskcommunicator/pkg/umbilical"
	"github.com/dagrunner/taskcommunicator/pkg/utils"
)

// LifecycleUpdate is one container/task lifecycle transition, broadcast to
// anyone watching the debug event stream. It carries enough of the
// triggering event to be useful without exposing internal types.
type LifecycleUpdate struct {
	Timestamp   time.Time                 `json:"timestamp"`
	Kind        string                    `json:"kind"`
	ContainerId umbilical.ContainerId     `json:"container_id"`
	Cause       launcher.TerminationCause `json:"cause,omitempty"`
	Message     string                    `json:"message,omitempty"`
}

// LifecycleObservers fans out LifecycleUpdate events to any number of
// subscribers. Each subscriber has a buffer of 100 updates; once a
// subscriber's buffer is full, Post blocks until that subscriber reads,
// which also holds up delivery to every other subscriber.
type LifecycleObservers interface {
	NewObserver() LifecycleObserver
	HasObserver() bool
	Post(LifecycleUpdate)
	Close()
}

type LifecycleObserver interface {
	Updates() chan LifecycleUpdate
	Close()
}

type lifecycleObservers struct {
	broadcast *utils.Broadcast[LifecycleUpdate]
}

func NewLifecycleObservers() LifecycleObservers {
	return &lifecycleObservers{broadcast: utils.NewBroadcast[LifecycleUpdate]()}
}

func (o *lifecycleObservers) NewObserver() LifecycleObserver {
	return &lifecycleObserver{consumer: o.broadcast.NewConsumer()}
}

func (o *lifecycleObservers) HasObserver() bool {
	return o.broadcast.HasConsumer()
}

func (o *lifecycleObservers) Post(update LifecycleUpdate) {
	o.broadcast.Send(update)
}

func (o *lifecycleObservers) Close() {
	o.broadcast.Close()
}

type lifecycleObserver struct {
	consumer *utils.BroadcastConsumer[LifecycleUpdate]
}

func (o *lifecycleObserver) Updates() chan LifecycleUpdate {
	return o.consumer.Chan
}

func (o *lifecycleObserver) Close() {
	o.consumer.Close()
}
