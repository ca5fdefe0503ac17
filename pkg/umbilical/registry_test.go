package umbilical

import (
	"testing"

	"github.com/dagrunner/taskcommunicator/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestRegistryInsertDuplicate(t *testing.T) {
	r := NewRegistry()

	_, err := r.InsertContainer("c1")
	assert.NoError(t, err)

	_, err = r.InsertContainer("c1")
	assert.ErrorIs(t, err, utils.ErrAlreadyRegistered)
}

func TestRegistryAssignUnknownContainer(t *testing.T) {
	r := NewRegistry()

	err := r.Assign("c1", &TaskSpec{AttemptId: "a1"}, nil, nil, false)
	assert.ErrorIs(t, err, utils.ErrUnknownContainer)
}

func TestRegistryAssignBusy(t *testing.T) {
	r := NewRegistry()
	r.InsertContainer("c1")

	assert.NoError(t, r.Assign("c1", &TaskSpec{AttemptId: "a1"}, nil, nil, false))
	assert.ErrorIs(t, r.Assign("c1", &TaskSpec{AttemptId: "a2"}, nil, nil, false), utils.ErrContainerBusy)
}

func TestRegistryAssignAttemptAlreadyAssigned(t *testing.T) {
	r := NewRegistry()
	r.InsertContainer("c1")
	r.InsertContainer("c2")

	assert.NoError(t, r.Assign("c1", &TaskSpec{AttemptId: "a1"}, nil, nil, false))
	assert.ErrorIs(t, r.Assign("c2", &TaskSpec{AttemptId: "a1"}, nil, nil, false), utils.ErrAttemptAlreadyAssigned)
}

// Scenario 5 (assign-busy) of the end-to-end scenarios: after unassign and
// re-registration, the same attempt id can move to another container.
func TestRegistryAssignAfterUnassignMovesContainer(t *testing.T) {
	r := NewRegistry()
	r.InsertContainer("c1")
	r.InsertContainer("c2")

	assert.NoError(t, r.Assign("c1", &TaskSpec{AttemptId: "a1"}, nil, nil, false))
	assert.NoError(t, r.Unassign("a1"))

	assert.NoError(t, r.Assign("c2", &TaskSpec{AttemptId: "a1"}, nil, nil, false))

	mapped, ok := r.AttemptContainer("a1")
	assert.True(t, ok)
	assert.Equal(t, ContainerId("c2"), mapped)
}

func TestRegistryUnassignUnknownIsNotAnError(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Unassign("nope"))
}

// P4: at every observable instant attempts[a] = c implies
// containers[c].taskSpec.attemptId = a and vice versa.
func TestRegistryAttemptContainerCoherence(t *testing.T) {
	r := NewRegistry()
	r.InsertContainer("c1")
	assert.NoError(t, r.Assign("c1", &TaskSpec{AttemptId: "a1"}, nil, nil, false))

	mapped, ok := r.AttemptContainer("a1")
	assert.True(t, ok)
	assert.Equal(t, ContainerId("c1"), mapped)

	ci, ok := r.Lookup("c1")
	assert.True(t, ok)
	assert.True(t, ci.Assigned())
}

// I3 / removeContainer: tearing a container down also removes its
// outstanding attempt mapping, atomically with respect to observers.
func TestRegistryRemoveContainerClearsAttempt(t *testing.T) {
	r := NewRegistry()
	r.InsertContainer("c1")
	assert.NoError(t, r.Assign("c1", &TaskSpec{AttemptId: "a1"}, nil, nil, false))

	ci, ok := r.RemoveContainer("c1")
	assert.True(t, ok)
	assert.Equal(t, ContainerId("c1"), ci.ContainerId())

	_, ok = r.AttemptContainer("a1")
	assert.False(t, ok)

	_, ok = r.Lookup("c1")
	assert.False(t, ok)
}

func TestRegistryRemoveContainerUnknown(t *testing.T) {
	r := NewRegistry()
	_, ok := r.RemoveContainer("nope")
	assert.False(t, ok)
}

func TestRegistrySnapshot(t *testing.T) {
	r := NewRegistry()
	r.InsertContainer("c1")
	r.InsertContainer("c2")
	assert.NoError(t, r.Assign("c1", &TaskSpec{AttemptId: "a1"}, nil, nil, false))

	snap := r.Snapshot()
	assert.Len(t, snap.Containers, 2)
}
