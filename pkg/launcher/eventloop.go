package launcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dagrunner/taskcommunicator/pkg/log"
	"github.com/dagrunner/taskcommunicator/pkg/umbilical"
)

// ErrEventLoopStopped is returned by LaunchContainer and StopContainer after
// Stop has been called.
var ErrEventLoopStopped = fmt.Errorf("launcher event loop is stopped")

// LaunchContext carries what a LAUNCH event needs to start a container:
// the raw token bundle to parse into Credentials, and the working
// directories the constructed TaskRunner should use.
type LaunchContext struct {
	Tokens    []byte
	Payload   []byte
	WorkDir   string
	LocalDirs []string
}

type launchEvent struct {
	containerId umbilical.ContainerId
	context     *LaunchContext
}

type stopEvent struct {
	containerId umbilical.ContainerId
}

// RunnerFactory constructs the TaskRunner for a LAUNCH event, bound to the
// launching container, its parsed credentials, and its launch context. The
// event loop never interprets what the runner does.
type RunnerFactory func(containerId umbilical.ContainerId, launchCtx *LaunchContext, creds *umbilical.Credentials) (TaskRunner, error)

// CredentialParser turns a LaunchContext's raw token bundle into
// Credentials, or fails with a parse error distinct from a TaskRunner
// construction error (the Java source this is modeled on catches these in
// two separate blocks so the two failure modes stay distinguishable in
// logs even though both fold into the same LaunchFailed event here).
type CredentialParser func(tokens []byte) (*umbilical.Credentials, error)

// EventLoop is C5: a single dedicated worker thread draining a FIFO of
// LAUNCH/STOP events onto C4's Pool, emitting lifecycle events as
// submitted work completes.
type EventLoop struct {
	applicationAttemptId string
	newRunner             RunnerFactory
	parseCredentials      CredentialParser
	sink                  EventSink
	pool                  *Pool

	queue   chan interface{}
	stopped chan struct{}
	stopCh  chan struct{}

	runningMu sync.Mutex
	running   map[umbilical.ContainerId]*Handle

	shutdownTimeout time.Duration
}

// NewEventLoop returns an EventLoop that already accepts events but does not
// process them until Run is called in a goroutine.
func NewEventLoop(applicationAttemptId string, poolSize, queueSize int, newRunner RunnerFactory, parseCredentials CredentialParser, sink EventSink) *EventLoop {
	return &EventLoop{
		applicationAttemptId: applicationAttemptId,
		newRunner:            newRunner,
		parseCredentials:     parseCredentials,
		sink:                 sink,
		pool:                 NewPool(poolSize, queueSize),
		queue:                make(chan interface{}, queueSize),
		stopped:              make(chan struct{}),
		stopCh:                make(chan struct{}),
		running:               make(map[umbilical.ContainerId]*Handle),
		shutdownTimeout:       2 * time.Second,
	}
}

// LaunchContainer enqueues a LAUNCH event. Blocks only under queue
// backpressure.
func (l *EventLoop) LaunchContainer(containerId umbilical.ContainerId, launchCtx *LaunchContext) error {
	return l.submit(&launchEvent{containerId: containerId, context: launchCtx})
}

// StopContainer enqueues a STOP event.
func (l *EventLoop) StopContainer(containerId umbilical.ContainerId) error {
	return l.submit(&stopEvent{containerId: containerId})
}

func (l *EventLoop) submit(ev interface{}) error {
	select {
	case <-l.stopCh:
		return ErrEventLoopStopped
	default:
	}

	select {
	case l.queue <- ev:
		return nil
	case <-l.stopCh:
		return ErrEventLoopStopped
	}
}

// Run drains the event queue until Stop is called. Intended to run on its
// own goroutine; starts the backing pool itself.
func (l *EventLoop) Run() {
	l.pool.Start()
	defer close(l.stopped)

	for {
		select {
		case ev := <-l.queue:
			switch e := ev.(type) {
			case *launchEvent:
				l.handleLaunch(e)
			case *stopEvent:
				l.handleStop(e)
			}
		case <-l.stopCh:
			return
		}
	}
}

func (l *EventLoop) handleLaunch(e *launchEvent) {
	creds, err := l.parseCredentials(e.context.Tokens)
	if err != nil {
		l.sink.LaunchFailed(e.containerId, fmt.Sprintf("failed to parse launch credentials: %v", err))
		return
	}

	runner, err := l.newRunner(e.containerId, e.context, creds)
	if err != nil {
		l.sink.LaunchFailed(e.containerId, fmt.Sprintf("failed to construct task runner: %v", err))
		return
	}

	// Launched/ContainerLaunched are emitted as the first action once a
	// worker actually starts running the task, not once it is merely
	// accepted into the queue: the Java source this is modeled on fires
	// AMContainerEventLaunched as the first statement inside the
	// submitted Callable, so it always precedes that same container's
	// completion. Wrapping runner this way gets the same guarantee for
	// free from the worker's own sequential execution (P6), without the
	// event loop and the pool's callback goroutine having to agree on
	// anything explicitly.
	started := func(ctx context.Context) (*ExecutionResult, error) {
		l.sink.Launched(e.containerId)
		l.sink.ContainerLaunched(ContainerLaunchedRecord{
			ContainerId:          e.containerId,
			ApplicationAttemptId: l.applicationAttemptId,
			Timestamp:            time.Now(),
		})
		return runner(ctx)
	}

	register := func(h *Handle) {
		l.runningMu.Lock()
		l.running[e.containerId] = h
		l.runningMu.Unlock()
	}

	_, err = l.pool.Submit(started, register, func(h *Handle) { l.onTaskComplete(e.containerId, h) })
	if err != nil {
		// register may have already run even though the job was never
		// enqueued (Submit can lose the race against a concurrent Stop
		// after calling it); undo it here. A no-op if register never ran.
		l.runningMu.Lock()
		delete(l.running, e.containerId)
		l.runningMu.Unlock()
		l.sink.LaunchFailed(e.containerId, err.Error())
		return
	}
}

func (l *EventLoop) handleStop(e *stopEvent) {
	l.runningMu.Lock()
	handle, ok := l.running[e.containerId]
	l.runningMu.Unlock()

	if !ok {
		log.Debugf("stop: container %s is not running, ignoring", e.containerId)
		return
	}

	handle.Cancel()
	// Always emitted, even though Completed for this container is also on
	// its way, to preserve the upstream state machine's expectation of
	// seeing a stop acknowledgment.
	l.sink.StopSent(e.containerId)
}

// onTaskComplete runs on the pool's single callback goroutine, so
// Completed events are never reordered relative to one another for a
// given container. The entry it deletes from `running` was always
// inserted before this container's task could run at all (Submit's
// register hook in handleLaunch), so the delete can never race ahead of
// the insert and leave a stale handle behind.
func (l *EventLoop) onTaskComplete(containerId umbilical.ContainerId, handle *Handle) {
	l.runningMu.Lock()
	delete(l.running, containerId)
	l.runningMu.Unlock()

	result, err := handle.Result()

	switch {
	case err != nil && handle.Canceled():
		// Cancellation is provenance-tagged on the handle itself, not
		// inferred from the error shape: a payload can return
		// context.Canceled on its own without having been asked to die.
		l.sink.Completed(containerId, ExitCodeSuccess, CauseContainerExited, "cancelled")
	case err != nil:
		l.sink.Completed(containerId, ExitCodeExecutionFailure, CauseApplicationError, err.Error())
	case result.ExitStatus == ExitSuccess, result.ExitStatus == ExitAskedToDie:
		l.sink.Completed(containerId, ExitCodeSuccess, CauseContainerExited, "")
	default:
		l.sink.Completed(containerId, ExitCodeExecutionFailure, CauseApplicationError, result.ErrorMessage)
	}
}

// Stop interrupts the event worker, cancels every outstanding handle, and
// stops both the pool's workers and its callback goroutine, bounding the
// join the way a worker thread interrupt+join(timeout) would. The two
// joins are independent (the queue worker and the pool drain on their own
// goroutines), so they run concurrently under one shutdown deadline via
// errgroup rather than as two sequential bounded waits.
func (l *EventLoop) Stop() {
	close(l.stopCh)

	l.runningMu.Lock()
	handles := make([]*Handle, 0, len(l.running))
	for _, h := range l.running {
		handles = append(handles, h)
	}
	l.runningMu.Unlock()
	for _, h := range handles {
		h.Cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		select {
		case <-l.stopped:
		case <-ctx.Done():
			log.Warn("launcher event loop did not stop within", l.shutdownTimeout)
		}
		return nil
	})
	g.Go(func() error {
		done := make(chan struct{})
		go func() {
			l.pool.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			log.Warn("worker pool did not stop within", l.shutdownTimeout)
		}
		return nil
	})
	g.Wait()
}
