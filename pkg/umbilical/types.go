// Package umbilical implements the container registry and umbilical RPC
// endpoint: the part of the application master that brokers task
// assignments to already-running worker containers and processes their
// heartbeats.
package umbilical

import (
	"fmt"

	"github.com/dagrunner/taskcommunicator/pkg/protocol"
	"github.com/dagrunner/taskcommunicator/pkg/utils"
)

// ContainerId is the opaque identity of a worker container.
type ContainerId string

func (id ContainerId) String() string { return string(id) }

// TaskAttemptId is the opaque identity of one task attempt.
type TaskAttemptId string

func (id TaskAttemptId) String() string { return string(id) }

// TaskSpec is an opaque descriptor of work to perform. The registry never
// interprets Payload; it only reads AttemptId and Vertex.
type TaskSpec struct {
	AttemptId TaskAttemptId
	Vertex    string
	Payload   []byte
}

// LocalResource is an opaque per-task side input descriptor.
type LocalResource struct {
	Name string
	Data []byte
}

// Credentials is an opaque token bundle associated with a task assignment.
type Credentials struct {
	Tokens []byte
}

// Event is an opaque progress record carried over heartbeats.
type Event struct {
	Index int32
	Data  []byte
}

// ContainerInfo is the invariant-bearing record the registry holds for one
// registered container. containerId is immutable after creation; every
// other field is guarded by mu, which is the per-container critical
// section — never held across a call into TaskCommunicatorContext.
type ContainerInfo struct {
	mu utils.RWMutex

	containerId ContainerId

	taskSpec            *TaskSpec
	additionalResources map[string]*LocalResource
	credentials         *Credentials
	credentialsChanged  bool
	taskPulled          bool

	lastRequestId int64
	lastResponse  *protocol.HeartbeatResponse
}

func newContainerInfo(id ContainerId) *ContainerInfo {
	return &ContainerInfo{
		mu:          utils.NewRWMutex(),
		containerId: id,
	}
}

// reset clears the current task assignment but leaves the container
// registered and its heartbeat sequence untouched. Must be called with mu
// held.
func (ci *ContainerInfo) reset() {
	ci.taskSpec = nil
	ci.additionalResources = nil
	ci.credentials = nil
	ci.credentialsChanged = false
	ci.taskPulled = false
}

// ContainerId returns the container's immutable identity.
func (ci *ContainerInfo) ContainerId() ContainerId {
	return ci.containerId
}

// Assigned reports whether the container currently carries a task
// assignment. Takes its own read lock.
func (ci *ContainerInfo) Assigned() bool {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	return ci.taskSpec != nil
}

func (ci *ContainerInfo) String() string {
	return fmt.Sprintf("container(%s)", ci.containerId)
}
