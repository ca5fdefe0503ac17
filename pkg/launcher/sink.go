package launcher

import (
	"time"

	"github.com/dagrunner/taskcommunicator/pkg/umbilical"
)

// TerminationCause distinguishes a benign, locally-initiated container
// exit from one caused by the payload itself failing.
type TerminationCause int

const (
	// CauseContainerExited is a benign exit: the payload finished, asked
	// to die, or was cancelled by a stop request.
	CauseContainerExited TerminationCause = iota
	// CauseApplicationError is any other, non-benign exit.
	CauseApplicationError
)

func (c TerminationCause) String() string {
	switch c {
	case CauseContainerExited:
		return "CONTAINER_EXITED"
	case CauseApplicationError:
		return "APPLICATION_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Abstract exit codes: ExecutionResult carries no OS exit code (the exec
// runner folds a failed process's exit status into ErrorMessage), so
// Completed reports only the same two buckets the termination cause
// already distinguishes.
const (
	ExitCodeSuccess          = 0
	ExitCodeExecutionFailure = 1
)

// ContainerLaunchedRecord is the history record C5 emits alongside
// Launched, carrying enough identity to reconstruct a launch timeline.
type ContainerLaunchedRecord struct {
	ContainerId          umbilical.ContainerId
	ApplicationAttemptId string
	Timestamp            time.Time
}

// EventSink receives the lifecycle events the launcher event loop emits.
// LaunchFailed and StopSent are called from the event loop goroutine,
// Launched and ContainerLaunched from the pool worker running the
// container's task, and Completed from the pool's single callback
// goroutine. Calls for different containers may run concurrently, and so
// may calls for the same container made from different goroutines (StopSent
// can overlap that container's Completed); Launched always returns before
// the same container's Completed is called.
type EventSink interface {
	LaunchFailed(containerId umbilical.ContainerId, message string)
	Launched(containerId umbilical.ContainerId)
	ContainerLaunched(record ContainerLaunchedRecord)
	Completed(containerId umbilical.ContainerId, exitCode int, cause TerminationCause, message string)
	StopSent(containerId umbilical.ContainerId)
}
