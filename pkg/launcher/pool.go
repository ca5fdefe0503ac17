package launcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/dagrunner/taskcommunicator/pkg/log"
)

// ErrPoolSaturated is returned by Submit when the pool's queue is full.
var ErrPoolSaturated = fmt.Errorf("worker pool queue is saturated")

// ErrPoolStopped is returned by Submit after Stop has been called.
var ErrPoolStopped = fmt.Errorf("worker pool is stopped")

// Handle is a cancellable reference to a submitted TaskRunner. Cancel
// requests cooperative interruption via the runner's context; a runner
// that ignores it runs to completion and its result is still reported.
type Handle struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	result   *ExecutionResult
	err      error
	canceled bool
}

// Cancel requests cooperative interruption of the handle's task.
func (h *Handle) Cancel() {
	h.mu.Lock()
	h.canceled = true
	h.mu.Unlock()
	h.cancel()
}

// Canceled reports whether Cancel was called on this handle, distinguishing
// a locally-initiated cancel from a payload failure that merely looks like
// one (context.Canceled can also leak out of an uncooperative runner).
func (h *Handle) Canceled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.canceled
}

// Done is closed once the handle's task has completed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result returns the outcome of a completed handle. Only meaningful after
// Done is closed.
func (h *Handle) Result() (*ExecutionResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, h.err
}

type job struct {
	handle *Handle
	runner TaskRunner
	ctx    context.Context
	onDone func(*Handle)
}

// Pool is a bounded, in-process executor of TaskRunners — C4's local
// worker pool. Completion callbacks run on a single dedicated goroutine
// (callbackLoop) so that event emission for a given container is never
// reordered relative to other completions, the same rationale the teacher
// package's WorkerPool does not need because it has no completion
// callback at all; this repo's bounding + explicit rejection behavior is
// grounded on that package's channel-of-work-items shape.
type Pool struct {
	size      int
	queueSize int

	tasks chan job
	done  chan struct{}

	callbacks chan func()

	wg         sync.WaitGroup
	callbackWg sync.WaitGroup

	stopOnce sync.Once
}

// NewPool returns a Pool running size workers at a time, with a queue of
// queueSize pending submissions before Submit starts rejecting work.
func NewPool(size, queueSize int) *Pool {
	if size < 1 {
		size = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		size:      size,
		queueSize: queueSize,
		tasks:     make(chan job, queueSize),
		done:      make(chan struct{}),
		callbacks: make(chan func(), queueSize+size),
	}
}

// Start launches the pool's workers and its single callback goroutine.
func (p *Pool) Start() {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.callbackWg.Add(1)
	go p.callbackLoop()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case j := <-p.tasks:
			p.run(j)
		case <-p.done:
			return
		}
	}
}

func (p *Pool) run(j job) {
	result, err := j.runner(j.ctx)

	j.handle.mu.Lock()
	j.handle.result = result
	j.handle.err = err
	j.handle.mu.Unlock()
	close(j.handle.done)

	select {
	case p.callbacks <- func() { j.onDone(j.handle) }:
	case <-p.done:
	}
}

func (p *Pool) callbackLoop() {
	defer p.callbackWg.Done()
	for {
		select {
		case cb := <-p.callbacks:
			cb()
		case <-p.done:
			// Drain whatever is already queued so a handle's completion
			// is never silently dropped by a concurrent Stop.
			for {
				select {
				case cb := <-p.callbacks:
					cb()
				default:
					return
				}
			}
		}
	}
}

// Submit enqueues runner for execution and returns a cancellable handle.
//
// register, if non-nil, runs synchronously on the calling goroutine before
// the job is handed to a worker — the caller's one guaranteed chance to
// record the handle somewhere a completion callback might otherwise race
// against, the same point at which the Java source this package is
// modeled on puts a container into its running set before the
// corresponding Callable is ever handed to an executor. onDone, if
// non-nil, runs on the pool's dedicated callback goroutine once the
// handle completes.
//
// Submit fails with ErrPoolStopped after Stop, or ErrPoolSaturated if the
// queue is full. register never runs before either of those checks, but
// it may still have run once even if Submit goes on to report
// ErrPoolStopped — if Stop races in between register running and the job
// actually being handed off — so a caller relying on register for
// bookkeeping should undo its effect on a non-nil error. Submit assumes a
// single caller at a time (C5's event loop is the only producer in this
// package) — the capacity check below is not safe under concurrent
// Submit calls from multiple goroutines.
func (p *Pool) Submit(runner TaskRunner, register func(*Handle), onDone func(*Handle)) (*Handle, error) {
	select {
	case <-p.done:
		return nil, ErrPoolStopped
	default:
	}

	if len(p.tasks) >= cap(p.tasks) {
		return nil, ErrPoolSaturated
	}

	ctx, cancel := context.WithCancel(context.Background())
	handle := &Handle{cancel: cancel, done: make(chan struct{})}
	if onDone == nil {
		onDone = func(*Handle) {}
	}

	if register != nil {
		register(handle)
	}

	select {
	case p.tasks <- job{handle: handle, runner: runner, ctx: ctx, onDone: onDone}:
		return handle, nil
	case <-p.done:
		cancel()
		return nil, ErrPoolStopped
	default:
		cancel()
		return nil, ErrPoolSaturated
	}
}

// Stop signals every worker and the callback goroutine to exit once their
// current work finishes, and waits for them to do so.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
	p.callbackWg.Wait()
	log.Debug("worker pool stopped")
}
