package umbilical

import (
	"sync"

	"github.com/dagrunner/taskcommunicator/pkg/log"
	"github.com/dagrunner/taskcommunicator/pkg/utils"
)

// Registry tracks live containers and their current task assignment. It
// keeps two cross-referenced tables — containers and attempts — consistent
// under mapMu, the structural lock for the tables themselves. Mutation of
// an individual ContainerInfo's fields is guarded by that entry's own
// critical section (ContainerInfo.mu), acquired after mapMu whenever both
// are needed so the two locks have one consistent acquisition order.
type Registry struct {
	mapMu sync.RWMutex

	containers map[ContainerId]*ContainerInfo
	attempts   map[TaskAttemptId]ContainerId
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		containers: make(map[ContainerId]*ContainerInfo),
		attempts:   make(map[TaskAttemptId]ContainerId),
	}
}

// Lookup returns the ContainerInfo for id, lock-free with respect to any
// single entry's fields — the caller takes whatever lock it needs on the
// returned pointer.
func (r *Registry) Lookup(id ContainerId) (*ContainerInfo, bool) {
	r.mapMu.RLock()
	defer r.mapMu.RUnlock()
	ci, ok := r.containers[id]
	return ci, ok
}

// AttemptContainer returns the container currently holding attemptId.
func (r *Registry) AttemptContainer(attemptId TaskAttemptId) (ContainerId, bool) {
	r.mapMu.RLock()
	defer r.mapMu.RUnlock()
	id, ok := r.attempts[attemptId]
	return id, ok
}

// Len returns the number of registered containers.
func (r *Registry) Len() int {
	r.mapMu.RLock()
	defer r.mapMu.RUnlock()
	return len(r.containers)
}

// InsertContainer installs a fresh ContainerInfo for id. Fails with
// ErrAlreadyRegistered if id is already present (I1).
func (r *Registry) InsertContainer(id ContainerId) (*ContainerInfo, error) {
	r.mapMu.Lock()
	defer r.mapMu.Unlock()

	if _, ok := r.containers[id]; ok {
		return nil, utils.ErrAlreadyRegistered
	}

	ci := newContainerInfo(id)
	r.containers[id] = ci
	return ci, nil
}

// RemoveContainer tears down id, returning its ContainerInfo. Any
// outstanding attempt mapping for its current assignment is torn down in
// the same critical section so no observer can see an attempt entry that
// references a missing container (I3).
func (r *Registry) RemoveContainer(id ContainerId) (*ContainerInfo, bool) {
	r.mapMu.Lock()
	defer r.mapMu.Unlock()

	ci, ok := r.containers[id]
	if !ok {
		return nil, false
	}
	delete(r.containers, id)

	ci.mu.RLock()
	spec := ci.taskSpec
	ci.mu.RUnlock()

	if spec != nil {
		if mapped, ok := r.attempts[spec.AttemptId]; ok && mapped == id {
			delete(r.attempts, spec.AttemptId)
		}
	}

	return ci, true
}

// Assign installs a task assignment on id. Fails with ErrUnknownContainer
// if id is absent, ErrContainerBusy if the container already carries a
// taskSpec (I2), or ErrAttemptAlreadyAssigned if spec.AttemptId already
// maps to a container (I3). On success the assignment and the attempt
// mapping are installed under the same critical section.
func (r *Registry) Assign(id ContainerId, spec *TaskSpec, resources map[string]*LocalResource, creds *Credentials, credsChanged bool) error {
	r.mapMu.Lock()
	defer r.mapMu.Unlock()

	ci, ok := r.containers[id]
	if !ok {
		return utils.ErrUnknownContainer
	}

	if _, exists := r.attempts[spec.AttemptId]; exists {
		return utils.ErrAttemptAlreadyAssigned
	}

	ci.mu.Lock()
	if ci.taskSpec != nil {
		ci.mu.Unlock()
		return utils.ErrContainerBusy
	}
	ci.taskSpec = spec
	ci.additionalResources = resources
	ci.credentials = creds
	ci.credentialsChanged = credsChanged
	ci.taskPulled = false
	ci.mu.Unlock()

	r.attempts[spec.AttemptId] = id
	return nil
}

// Unassign clears the assignment mapped to attemptId and removes the
// attempt entry. A missing attemptId is not an error — it is logged and
// ignored, matching the upstream contract's tolerance for a redundant
// unregister racing a container teardown.
func (r *Registry) Unassign(attemptId TaskAttemptId) error {
	r.mapMu.Lock()
	defer r.mapMu.Unlock()

	id, ok := r.attempts[attemptId]
	if !ok {
		log.Debugf("unassign: attempt %s has no container mapping, ignoring", attemptId)
		return nil
	}
	delete(r.attempts, attemptId)

	ci, ok := r.containers[id]
	if !ok {
		return nil
	}

	ci.mu.Lock()
	ci.reset()
	ci.mu.Unlock()
	return nil
}

// RegistrySnapshot is a point-in-time debug view of the registry's
// contents, exposed over the debug HTTP endpoint.
type RegistrySnapshot struct {
	Containers []ContainerSnapshot `json:"containers"`
}

// ContainerSnapshot is one entry of a RegistrySnapshot.
type ContainerSnapshot struct {
	ContainerId   string `json:"container_id"`
	Assigned      bool   `json:"assigned"`
	AttemptId     string `json:"attempt_id,omitempty"`
	TaskPulled    bool   `json:"task_pulled"`
	LastRequestId int64  `json:"last_request_id"`
}

// Snapshot returns a debug view of every registered container. Grounded on
// the upstream's own container/attempt count logging — free to expose
// given the registry already holds the data.
func (r *Registry) Snapshot() RegistrySnapshot {
	r.mapMu.RLock()
	ids := make([]*ContainerInfo, 0, len(r.containers))
	for _, ci := range r.containers {
		ids = append(ids, ci)
	}
	r.mapMu.RUnlock()

	snap := RegistrySnapshot{Containers: make([]ContainerSnapshot, 0, len(ids))}
	for _, ci := range ids {
		ci.mu.RLock()
		entry := ContainerSnapshot{
			ContainerId:   string(ci.containerId),
			Assigned:      ci.taskSpec != nil,
			TaskPulled:    ci.taskPulled,
			LastRequestId: ci.lastRequestId,
		}
		if ci.taskSpec != nil {
			entry.AttemptId = string(ci.taskSpec.AttemptId)
		}
		ci.mu.RUnlock()
		snap.Containers = append(snap.Containers, entry)
	}
	return snap
}
