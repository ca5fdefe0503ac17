package umbilical

import (
	"context"

	"github.com/dagrunner/taskcommunicator/pkg/log"
	"github.com/dagrunner/taskcommunicator/pkg/protocol"
	"github.com/dagrunner/taskcommunicator/pkg/utils"
)

// Endpoint implements protocol.UmbilicalServer: the three RPCs a worker
// container speaks against the application master, backed by a Registry
// and the upstream TaskCommunicatorContext collaborator.
//
// Heartbeats for a single container are assumed to arrive one at a time —
// a worker waits for one heartbeat's response before sending the next —
// so the sequence check below only has to reject retries and gaps, not
// arbitrate between truly concurrent calls for the same container.
type Endpoint struct {
	protocol.UnimplementedUmbilicalServer

	registry *Registry
	context  TaskCommunicatorContext
}

// NewEndpoint returns an Endpoint backed by registry, delegating to ctx for
// everything the registry itself cannot answer.
func NewEndpoint(registry *Registry, ctx TaskCommunicatorContext) *Endpoint {
	return &Endpoint{registry: registry, context: ctx}
}

// GetTask implements the single-consumer, at-most-once task pull.
func (e *Endpoint) GetTask(ctx context.Context, req *protocol.ContainerContext) (*protocol.ContainerTask, error) {
	if req == nil || req.ContainerIdentifier == "" {
		return dieMarker, nil
	}

	id := ContainerId(req.ContainerIdentifier)
	ci, ok := e.registry.Lookup(id)
	if !ok {
		if e.context.IsKnownContainer(id) {
			log.Debugf("getTask: container %s was known but has been torn down", id)
		} else {
			log.Debugf("getTask: container %s was never registered", id)
		}
		return dieMarker, nil
	}

	var (
		delivered *TaskSpec
		resources map[string]*LocalResource
		creds     *Credentials
		changed   bool
	)

	ci.mu.Lock()
	switch {
	case ci.taskSpec == nil, ci.taskPulled:
		ci.mu.Unlock()
		return noTask, nil
	default:
		ci.taskPulled = true
		delivered = ci.taskSpec
		resources = ci.additionalResources
		creds = ci.credentials
		changed = ci.credentialsChanged
		ci.mu.Unlock()
	}

	// Outside the lock: the upstream contract forbids callbacks while a
	// registry lock is held.
	e.context.TaskStartedRemotely(delivered.AttemptId, id)

	return &protocol.ContainerTask{
		ShouldDie:           false,
		TaskSpec:            &protocol.TaskSpec{AttemptId: string(delivered.AttemptId), Vertex: delivered.Vertex, Payload: delivered.Payload},
		AdditionalResources: toWireResources(resources),
		Credentials:         toWireCredentials(creds),
		CredentialsChanged:  changed,
	}, nil
}

// CanCommit delegates to the upstream collaborator with no local state
// mutation.
func (e *Endpoint) CanCommit(ctx context.Context, req *protocol.CanCommitRequest) (*protocol.CanCommitResponse, error) {
	ok, err := e.context.CanCommit(ctx, TaskAttemptId(req.AttemptId))
	if err != nil {
		return nil, utils.GrpcError(err)
	}
	return &protocol.CanCommitResponse{CanCommit: ok}, nil
}

// Heartbeat implements the sequencing and duplicate-suppression algorithm
// of the umbilical: the duplicate check, the read of the expected requestId
// and the cache update happen under the container's critical section; the
// attempt and sequence checks and the upstream callback happen outside it.
func (e *Endpoint) Heartbeat(ctx context.Context, req *protocol.HeartbeatRequest) (*protocol.HeartbeatResponse, error) {
	id := ContainerId(req.ContainerIdentifier)

	ci, ok := e.registry.Lookup(id)
	if !ok {
		return &protocol.HeartbeatResponse{ShouldDie: true, LastRequestId: req.RequestId}, nil
	}

	ci.mu.Lock()

	if ci.lastResponse != nil && req.RequestId == ci.lastRequestId {
		resp := ci.lastResponse
		ci.mu.Unlock()
		return resp, nil
	}

	expected := ci.lastRequestId + 1
	ci.mu.Unlock()

	// AttemptContainer takes the registry's own mapMu. It must never be
	// called while ci.mu is held: Assign and RemoveContainer always take
	// mapMu first and ci.mu second, so doing it in the other order here
	// would invert the lock order and deadlock against them. Heartbeats
	// for a single container are assumed serialized, so releasing ci.mu
	// between reading expected and using it below is safe — nothing else
	// advances lastRequestId for this container concurrently.
	hasAttempt := req.CurrentAttemptId != ""
	var attemptId TaskAttemptId
	if hasAttempt {
		attemptId = TaskAttemptId(req.CurrentAttemptId)
		mapped, known := e.registry.AttemptContainer(attemptId)
		if !known || mapped != id {
			return nil, utils.GrpcError(&AttemptNotRecognizedError{ContainerId: id, AttemptId: attemptId})
		}
		if req.RequestId != expected {
			return nil, utils.GrpcError(&InvalidSequenceError{Expected: expected, Actual: req.RequestId})
		}
	}

	var downstream []*Event
	if hasAttempt {
		domainResp, err := e.context.Heartbeat(ctx, &TaskHeartbeatRequest{
			ContainerId: id,
			AttemptId:   attemptId,
			Events:      fromWireEvents(req.Events),
			StartIndex:  req.StartIndex,
			MaxEvents:   req.MaxEvents,
		})
		if err != nil {
			return nil, utils.GrpcError(err)
		}
		downstream = domainResp.Events
	}

	// The response is built even when there were no downstream events, so
	// that lastRequestId still advances and the next duplicate check has
	// something to replay against.
	resp := &protocol.HeartbeatResponse{
		LastRequestId: req.RequestId,
		ShouldDie:     false,
		Events:        toWireEvents(downstream),
	}

	ci.mu.Lock()
	ci.lastRequestId = req.RequestId
	ci.lastResponse = resp
	ci.mu.Unlock()

	return resp, nil
}
