package umbilical

import (
	"fmt"

	"github.com/dagrunner/taskcommunicator/pkg/utils"
)

// InvalidSequenceError reports a heartbeat whose requestId was neither an
// exact duplicate of the last one nor its immediate successor. It carries
// the expected and actual values so a caller can render a precise fault.
type InvalidSequenceError struct {
	Expected int64
	Actual   int64
}

func (e *InvalidSequenceError) Error() string {
	return fmt.Sprintf("invalid heartbeat sequence: expected requestId %d, got %d", e.Expected, e.Actual)
}

func (e *InvalidSequenceError) Details() string {
	return fmt.Sprintf("expected=%d actual=%d", e.Expected, e.Actual)
}

func (e *InvalidSequenceError) Unwrap() error {
	return utils.ErrInvalidSequence
}

// AttemptNotRecognizedError reports a heartbeat claiming an attempt that is
// not mapped to the heartbeating container.
type AttemptNotRecognizedError struct {
	ContainerId ContainerId
	AttemptId   TaskAttemptId
}

func (e *AttemptNotRecognizedError) Error() string {
	return fmt.Sprintf("attempt %s is not recognized for container %s", e.AttemptId, e.ContainerId)
}

func (e *AttemptNotRecognizedError) Unwrap() error {
	return utils.ErrAttemptNotRecognized
}
