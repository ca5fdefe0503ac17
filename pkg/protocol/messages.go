// Package protocol defines the wire messages and gRPC service contract of
// the umbilical: the narrow RPC channel between a worker container and the
// application master over which the worker pulls its task and reports
// heartbeats.
package protocol

// LocalResource is an opaque per-task side input descriptor keyed by name.
// The umbilical never interprets its contents.
type LocalResource struct {
	Name string `json:"name"`
	Data []byte `json:"data,omitempty"`
}

// Credentials is an opaque token bundle handed to a container alongside a
// task assignment.
type Credentials struct {
	Tokens []byte `json:"tokens,omitempty"`
}

// Event is an opaque progress/status record exchanged over heartbeats.
// The umbilical forwards these without interpreting their contents.
type Event struct {
	Index int32  `json:"index"`
	Data  []byte `json:"data,omitempty"`
}

// TaskSpec is an opaque descriptor of work to perform. The umbilical only
// ever reads AttemptId and Vertex off of it; Payload is forwarded verbatim.
type TaskSpec struct {
	AttemptId string `json:"attempt_id"`
	Vertex    string `json:"vertex"`
	Payload   []byte `json:"payload,omitempty"`
}

// ContainerContext identifies the calling container on a getTask request.
type ContainerContext struct {
	ContainerIdentifier string `json:"container_identifier"`
}

// ContainerTask is the tagged result of getTask: exactly one of ShouldDie,
// a task-less response, or a delivery with a non-nil TaskSpec.
type ContainerTask struct {
	ShouldDie           bool                      `json:"should_die"`
	TaskSpec            *TaskSpec                 `json:"task_spec,omitempty"`
	AdditionalResources map[string]*LocalResource `json:"additional_resources,omitempty"`
	Credentials         *Credentials              `json:"credentials,omitempty"`
	CredentialsChanged  bool                      `json:"credentials_changed"`
}

// CanCommitRequest asks whether the given attempt may commit its output.
type CanCommitRequest struct {
	AttemptId string `json:"attempt_id"`
}

// CanCommitResponse carries the commit decision.
type CanCommitResponse struct {
	CanCommit bool `json:"can_commit"`
}

// HeartbeatRequest is sent periodically by a container: liveness signal,
// progress events, and (if one is outstanding) the attempt it believes it
// is executing.
type HeartbeatRequest struct {
	ContainerIdentifier string   `json:"container_identifier"`
	RequestId           int64    `json:"request_id"`
	CurrentAttemptId    string   `json:"current_attempt_id,omitempty"`
	Events              []*Event `json:"events,omitempty"`
	StartIndex          int32    `json:"start_index"`
	MaxEvents           int32    `json:"max_events"`
}

// HeartbeatResponse echoes the sequence number of the request it answers
// (a replayed duplicate carries the same value as the original answer) and
// either carries downstream events or instructs the worker to die.
type HeartbeatResponse struct {
	LastRequestId int64    `json:"last_request_id"`
	ShouldDie     bool     `json:"should_die"`
	Events        []*Event `json:"events,omitempty"`
}
