package launcher

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dagrunner/taskcommunicator/pkg/umbilical"
)

type recordedEvent struct {
	kind        string
	containerId umbilical.ContainerId
	cause       TerminationCause
	message     string
}

type mockSink struct {
	mu     sync.Mutex
	events []recordedEvent
	notify chan struct{}
}

func newMockSink() *mockSink {
	return &mockSink{notify: make(chan struct{}, 64)}
}

func (s *mockSink) record(e recordedEvent) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	s.notify <- struct{}{}
}

func (s *mockSink) LaunchFailed(containerId umbilical.ContainerId, message string) {
	s.record(recordedEvent{kind: "LaunchFailed", containerId: containerId, message: message})
}
func (s *mockSink) Launched(containerId umbilical.ContainerId) {
	s.record(recordedEvent{kind: "Launched", containerId: containerId})
}
func (s *mockSink) ContainerLaunched(record ContainerLaunchedRecord) {
	s.record(recordedEvent{kind: "ContainerLaunched", containerId: record.ContainerId})
}
func (s *mockSink) Completed(containerId umbilical.ContainerId, exitCode int, cause TerminationCause, message string) {
	s.record(recordedEvent{kind: "Completed", containerId: containerId, cause: cause, message: message})
}
func (s *mockSink) StopSent(containerId umbilical.ContainerId) {
	s.record(recordedEvent{kind: "StopSent", containerId: containerId})
}

func (s *mockSink) waitFor(t *testing.T, n int) {
	for i := 0; i < n; i++ {
		select {
		case <-s.notify:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i+1, n)
		}
	}
}

func (s *mockSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.kind
	}
	return out
}

func (s *mockSink) byKind(kind string) []recordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []recordedEvent
	for _, e := range s.events {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// indexOfFirst returns the position of the first event matching kind and
// containerId in record order, or -1.
func (s *mockSink) indexOfFirst(kind string, containerId umbilical.ContainerId) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.events {
		if e.kind == kind && e.containerId == containerId {
			return i
		}
	}
	return -1
}

func noopParser(tokens []byte) (*umbilical.Credentials, error) {
	return &umbilical.Credentials{Tokens: tokens}, nil
}

// Scenario 6: two LAUNCH events in sequence each produce a Launched and a
// ContainerLaunched record, and each completes normally once its runner
// returns.
func TestEventLoopLaunchTwoContainersToCompletion(t *testing.T) {
	sink := newMockSink()
	factory := func(_ umbilical.ContainerId, _ *LaunchContext, _ *umbilical.Credentials) (TaskRunner, error) {
		return successRunner, nil
	}

	el := NewEventLoop("attempt-0", 2, 4, factory, noopParser, sink)
	go el.Run()
	defer el.Stop()

	assert.NoError(t, el.LaunchContainer("c1", &LaunchContext{}))
	assert.NoError(t, el.LaunchContainer("c2", &LaunchContext{}))

	// Launched + ContainerLaunched for each, plus Completed for each.
	sink.waitFor(t, 6)

	completed := sink.byKind("Completed")
	assert.Len(t, completed, 2)
	for _, e := range completed {
		assert.Equal(t, CauseContainerExited, e.cause)
	}
	launched := sink.byKind("Launched")
	assert.Len(t, launched, 2)

	// P6: for each container, Launched precedes its Completed in record
	// order, even though the two are emitted from different goroutines
	// (the pool worker running the task vs. the pool's callback goroutine).
	for _, id := range []umbilical.ContainerId{"c1", "c2"} {
		launchedAt := sink.indexOfFirst("Launched", id)
		completedAt := sink.indexOfFirst("Completed", id)
		assert.GreaterOrEqual(t, launchedAt, 0)
		assert.GreaterOrEqual(t, completedAt, 0)
		assert.Less(t, launchedAt, completedAt)
	}
}

// Scenario 6 continued: STOP while running produces StopSent, and the
// consequent cancellation still yields a benign Completed rather than an
// application error.
func TestEventLoopStopWhileRunningEmitsStopSentThenBenignCompleted(t *testing.T) {
	sink := newMockSink()
	factory := func(_ umbilical.ContainerId, _ *LaunchContext, _ *umbilical.Credentials) (TaskRunner, error) {
		return blockingRunner, nil
	}

	el := NewEventLoop("attempt-0", 1, 1, factory, noopParser, sink)
	go el.Run()
	defer el.Stop()

	assert.NoError(t, el.LaunchContainer("c1", &LaunchContext{}))
	sink.waitFor(t, 2) // Launched, ContainerLaunched

	assert.NoError(t, el.StopContainer("c1"))
	sink.waitFor(t, 2) // StopSent, Completed

	kinds := sink.kinds()
	assert.Contains(t, kinds, "StopSent")

	completed := sink.byKind("Completed")
	assert.Len(t, completed, 1)
	assert.Equal(t, CauseContainerExited, completed[0].cause)
}

func TestEventLoopStopUnknownContainerIsIgnored(t *testing.T) {
	sink := newMockSink()
	factory := func(_ umbilical.ContainerId, _ *LaunchContext, _ *umbilical.Credentials) (TaskRunner, error) {
		return successRunner, nil
	}
	el := NewEventLoop("attempt-0", 1, 1, factory, noopParser, sink)
	go el.Run()
	defer el.Stop()

	assert.NoError(t, el.StopContainer("nope"))

	select {
	case <-sink.notify:
		t.Fatal("expected no event for a stop of an unknown container")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventLoopCredentialParseFailureEmitsLaunchFailed(t *testing.T) {
	sink := newMockSink()
	wantErr := fmt.Errorf("bad token")
	parser := func(tokens []byte) (*umbilical.Credentials, error) { return nil, wantErr }
	factory := func(_ umbilical.ContainerId, _ *LaunchContext, _ *umbilical.Credentials) (TaskRunner, error) {
		t.Fatal("factory should not be called when credential parsing fails")
		return nil, nil
	}

	el := NewEventLoop("attempt-0", 1, 1, factory, parser, sink)
	go el.Run()
	defer el.Stop()

	assert.NoError(t, el.LaunchContainer("c1", &LaunchContext{}))
	sink.waitFor(t, 1)

	failed := sink.byKind("LaunchFailed")
	assert.Len(t, failed, 1)
}

func TestEventLoopRunnerFactoryFailureEmitsLaunchFailed(t *testing.T) {
	sink := newMockSink()
	factory := func(_ umbilical.ContainerId, _ *LaunchContext, _ *umbilical.Credentials) (TaskRunner, error) {
		return nil, fmt.Errorf("no runner")
	}

	el := NewEventLoop("attempt-0", 1, 1, factory, noopParser, sink)
	go el.Run()
	defer el.Stop()

	assert.NoError(t, el.LaunchContainer("c1", &LaunchContext{}))
	sink.waitFor(t, 1)

	failed := sink.byKind("LaunchFailed")
	assert.Len(t, failed, 1)
}

func TestEventLoopSubmitAfterStopFails(t *testing.T) {
	sink := newMockSink()
	factory := func(_ umbilical.ContainerId, _ *LaunchContext, _ *umbilical.Credentials) (TaskRunner, error) {
		return successRunner, nil
	}
	el := NewEventLoop("attempt-0", 1, 1, factory, noopParser, sink)
	go el.Run()
	el.Stop()

	err := el.LaunchContainer("c1", &LaunchContext{})
	assert.ErrorIs(t, err, ErrEventLoopStopped)
}

// Application-level failures (not caused by a Cancel) are reported as
// CauseApplicationError.
func TestEventLoopRunnerApplicationErrorIsReportedAsApplicationError(t *testing.T) {
	sink := newMockSink()
	factory := func(_ umbilical.ContainerId, _ *LaunchContext, _ *umbilical.Credentials) (TaskRunner, error) {
		return func(_ context.Context) (*ExecutionResult, error) {
			return nil, fmt.Errorf("payload crashed")
		}, nil
	}

	el := NewEventLoop("attempt-0", 1, 1, factory, noopParser, sink)
	go el.Run()
	defer el.Stop()

	assert.NoError(t, el.LaunchContainer("c1", &LaunchContext{}))
	sink.waitFor(t, 3) // Launched, ContainerLaunched, Completed

	completed := sink.byKind("Completed")
	assert.Len(t, completed, 1)
	assert.Equal(t, CauseApplicationError, completed[0].cause)
	assert.Contains(t, completed[0].message, "payload crashed")
}
