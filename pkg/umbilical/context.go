package umbilical

import "context"

// TaskHeartbeatRequest is the domain-level heartbeat handed to the
// upstream collaborator, decoupled from the wire message.
type TaskHeartbeatRequest struct {
	ContainerId ContainerId
	AttemptId   TaskAttemptId
	Events      []*Event
	StartIndex  int32
	MaxEvents   int32
}

// TaskHeartbeatResponse is the domain-level heartbeat result the upstream
// collaborator returns.
type TaskHeartbeatResponse struct {
	Events []*Event
}

// TaskCommunicatorContext is the upstream collaborator consumed by the
// umbilical endpoint. Its methods are invoked without holding any registry
// lock — callers of this interface must never call back into the registry
// from within one of these methods, and the endpoint must never hold a
// ContainerInfo's lock while calling one of these methods.
type TaskCommunicatorContext interface {
	// ApplicationAttemptId identifies the owning application master
	// attempt. The endpoint itself does not call it.
	ApplicationAttemptId() string

	// Credentials returns the application master's own token bundle. The
	// endpoint does not consult it: a task delivery carries only the
	// credentials of its own assignment.
	Credentials() *Credentials

	// CanCommit decides whether attemptId may commit its output.
	CanCommit(ctx context.Context, attemptId TaskAttemptId) (bool, error)

	// Heartbeat delivers a heartbeat for an attempt the endpoint has
	// already verified is mapped to the heartbeating container with the
	// correct sequence number, and returns the events to forward back.
	Heartbeat(ctx context.Context, req *TaskHeartbeatRequest) (*TaskHeartbeatResponse, error)

	// IsKnownContainer distinguishes a container that was once registered
	// and has since been torn down from one the application master never
	// knew about. Consulted purely for log classification.
	IsKnownContainer(id ContainerId) bool

	// TaskStartedRemotely notifies that attemptId has been delivered to
	// containerId via getTask. Invoked outside any registry lock.
	TaskStartedRemotely(attemptId TaskAttemptId, containerId ContainerId)
}
