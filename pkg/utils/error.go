package utils

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrBadRequest = fmt.Errorf("Bad request")
	ErrNotFound   = fmt.Errorf("Not found")
	ErrParse      = fmt.Errorf("Parse error")

	// ErrAlreadyRegistered is returned by the registry when a container id
	// that is already present is registered again.
	ErrAlreadyRegistered = fmt.Errorf("Container already registered")

	// ErrUnknownContainer is returned when an umbilical call or a registry
	// mutation names a container id that is not present.
	ErrUnknownContainer = fmt.Errorf("Unknown container")

	// ErrContainerBusy is returned by assign when the container already
	// carries a task assignment.
	ErrContainerBusy = fmt.Errorf("Container is busy")

	// ErrAttemptAlreadyAssigned is returned by assign when the attempt id
	// is already mapped to a container.
	ErrAttemptAlreadyAssigned = fmt.Errorf("Attempt already assigned")

	// ErrAttemptNotRecognized is returned by a heartbeat whose claimed
	// attempt id is not the one mapped to the heartbeating container.
	ErrAttemptNotRecognized = fmt.Errorf("Attempt not recognized for container")

	// ErrInvalidSequence is returned by a heartbeat whose requestId is
	// neither a duplicate nor the immediate successor of the last one.
	ErrInvalidSequence = fmt.Errorf("Invalid heartbeat sequence")
)

// DetailedError is an error carrying additional diagnostic detail beyond
// its message, surfaced by gRPC status detail.
type DetailedError interface {
	error
	Details() string
}

// GrpcError converts a sentinel error, or an error wrapping one, into an
// error carrying a gRPC status code. Errors not recognized here pass
// through unchanged. Uses errors.Is rather than equality so that domain
// errors (e.g. InvalidSequenceError) can wrap a sentinel and still map.
func GrpcError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownContainer):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case errors.Is(err, ErrAlreadyRegistered), errors.Is(err, ErrContainerBusy), errors.Is(err, ErrAttemptAlreadyAssigned):
		return status.Errorf(codes.FailedPrecondition, "%s", err.Error())
	case errors.Is(err, ErrAttemptNotRecognized), errors.Is(err, ErrInvalidSequence), errors.Is(err, ErrBadRequest), errors.Is(err, ErrParse):
		return status.Errorf(codes.InvalidArgument, "%s", err.Error())
	}
	return err
}
