package communicator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dagrunner/taskcommunicator/pkg/umbilical"
	"github.com/dagrunner/taskcommunicator/pkg/utils"
)

type stubContext struct{}

func (stubContext) ApplicationAttemptId() string { return "attempt-0" }
func (stubContext) Credentials() *umbilical.Credentials { return nil }
func (stubContext) CanCommit(ctx context.Context, attemptId umbilical.TaskAttemptId) (bool, error) {
	return true, nil
}
func (stubContext) Heartbeat(ctx context.Context, req *umbilical.TaskHeartbeatRequest) (*umbilical.TaskHeartbeatResponse, error) {
	return &umbilical.TaskHeartbeatResponse{}, nil
}
func (stubContext) IsKnownContainer(id umbilical.ContainerId) bool       { return false }
func (stubContext) TaskStartedRemotely(umbilical.TaskAttemptId, umbilical.ContainerId) {}

func TestServiceLocalModeSynthesizesAddress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LocalMode = true

	svc := NewService(cfg, stubContext{})
	assert.NoError(t, svc.Start())
	defer svc.Stop()

	assert.True(t, strings.HasPrefix(svc.GetAddress(), "local://"))
}

func TestServiceRegisterRunningContainerDuplicate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LocalMode = true
	svc := NewService(cfg, stubContext{})
	assert.NoError(t, svc.Start())
	defer svc.Stop()

	assert.NoError(t, svc.RegisterRunningContainer("c1", "", 0))
	assert.ErrorIs(t, svc.RegisterRunningContainer("c1", "", 0), utils.ErrAlreadyRegistered)
}

// Scenario 5 end to end through the service's public API.
func TestServiceAssignBusyThenReassignAfterUnassign(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LocalMode = true
	svc := NewService(cfg, stubContext{})
	assert.NoError(t, svc.Start())
	defer svc.Stop()

	assert.NoError(t, svc.RegisterRunningContainer("c1", "", 0))
	assert.NoError(t, svc.RegisterRunningContainer("c2", "", 0))

	assert.NoError(t, svc.RegisterRunningTaskAttempt("c1", &umbilical.TaskSpec{AttemptId: "a1"}, nil, nil, false))
	assert.ErrorIs(t, svc.RegisterRunningTaskAttempt("c1", &umbilical.TaskSpec{AttemptId: "a2"}, nil, nil, false), utils.ErrContainerBusy)

	assert.NoError(t, svc.UnregisterRunningTaskAttempt("a1"))
	assert.NoError(t, svc.RegisterRunningTaskAttempt("c2", &umbilical.TaskSpec{AttemptId: "a1"}, nil, nil, false))
}
