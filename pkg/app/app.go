// Package app wires the task communicator (C3) and the launcher event
// loop (C5) together behind the TaskCommunicatorContext/EventSink
// boundary: the part the rest of this corpus leaves to "an upstream
// collaborator" (spec Non-goals). It schedules nothing and decides no
// retries; it only moves a launch request from the registration API
// through to the local worker pool and back.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"

	"github.com/dagrunner/taskcommunicator/pkg/communicator"
	"github.com/dagrunner/taskcommunicator/pkg/launcher"
	"github.com/dagrunner/taskcommunicator/pkg/log"
	"github.com/dagrunner/taskcommunicator/pkg/umbilical"
)

// DefaultApplicationAttemptId synthesizes a stable identifier for the
// application-master attempt when no resource manager assigns one,
// falling back to a random id if the host has no usable machine id.
func DefaultApplicationAttemptId() string {
	if id, err := machineid.ProtectedID("taskcommunicator"); err == nil {
		return id
	}
	token, err := uuid.NewRandom()
	if err != nil {
		return "attempt-0"
	}
	return token.String()
}

// Application owns one Service (C1/C2/C3) and one EventLoop (C4/C5),
// implementing the umbilical.TaskCommunicatorContext and
// launcher.EventSink interfaces that connect them.
type Application struct {
	attemptId   string
	credentials *umbilical.Credentials

	service   *communicator.Service
	events    *launcher.EventLoop
	lifecycle LifecycleObservers
}

// NewApplication constructs an Application. newRunner and parseCreds are
// supplied by the caller because this repo never interprets what a task
// payload actually does (see launcher.TaskRunner).
func NewApplication(attemptId string, credentials *umbilical.Credentials, cfg communicator.Config, newRunner launcher.RunnerFactory, parseCreds launcher.CredentialParser) *Application {
	a := &Application{attemptId: attemptId, credentials: credentials}
	a.service = communicator.NewService(cfg, a)
	a.lifecycle = NewLifecycleObservers()

	queueSize := cfg.InlineExecutorMaxTasks * 4
	a.events = launcher.NewEventLoop(attemptId, cfg.InlineExecutorMaxTasks, queueSize, newRunner, parseCreds, a)
	return a
}

// Lifecycle exposes the container/task lifecycle event stream for the
// debug HTTP endpoint; each observer receives every event posted after
// it subscribes. An observer that stops reading eventually holds up
// delivery to the others (see LifecycleObservers).
func (a *Application) Lifecycle() LifecycleObservers { return a.lifecycle }

// Start brings the umbilical server up and starts the event loop worker.
func (a *Application) Start() error {
	go a.events.Run()
	return a.service.Start()
}

// Stop tears both down. Order matters: the event loop is stopped first so
// no further RegisterContainerEnd calls race a server shutdown that is
// already draining in-flight RPCs.
func (a *Application) Stop() {
	a.events.Stop()
	a.service.Stop()
	a.lifecycle.Close()
}

// Service exposes the task communicator for the debug HTTP endpoint.
func (a *Application) Service() *communicator.Service { return a.service }

// LaunchContainer registers a container and a task assignment in one
// call, then hands the launch to the event loop — the three steps a real
// resource manager callback and an AM's own launch request would each
// perform separately, collapsed here because this corpus runs without one.
func (a *Application) LaunchContainer(id umbilical.ContainerId, spec *umbilical.TaskSpec, resources map[string]*umbilical.LocalResource, creds *umbilical.Credentials, credsChanged bool, launchCtx *launcher.LaunchContext) error {
	if err := a.service.RegisterRunningContainer(id, "", 0); err != nil {
		return err
	}
	if err := a.service.RegisterRunningTaskAttempt(id, spec, resources, creds, credsChanged); err != nil {
		a.service.RegisterContainerEnd(id)
		return err
	}
	launchCtx.Payload = spec.Payload
	return a.events.LaunchContainer(id, launchCtx)
}

// StopContainer requests cancellation of a running container's task.
func (a *Application) StopContainer(id umbilical.ContainerId) error {
	return a.events.StopContainer(id)
}

// --- umbilical.TaskCommunicatorContext ---

func (a *Application) ApplicationAttemptId() string { return a.attemptId }

func (a *Application) Credentials() *umbilical.Credentials { return a.credentials }

// CanCommit always grants the request: this corpus tracks no speculative
// or retried attempts, so there is never a competing committer to
// arbitrate between.
func (a *Application) CanCommit(ctx context.Context, attemptId umbilical.TaskAttemptId) (bool, error) {
	return true, nil
}

// Heartbeat has no progress-event sink of its own to forward into; it
// only keeps the umbilical's sequencing and duplicate-suppression
// machinery exercised end to end.
func (a *Application) Heartbeat(ctx context.Context, req *umbilical.TaskHeartbeatRequest) (*umbilical.TaskHeartbeatResponse, error) {
	log.Tracef("heartbeat: container %s attempt %s carrying %d events", req.ContainerId, req.AttemptId, len(req.Events))
	return &umbilical.TaskHeartbeatResponse{}, nil
}

// IsKnownContainer reports whether id is currently registered. Torn-down
// containers are not remembered, so for a container the endpoint has
// already failed to find it returns false: it does not tell a torn-down
// container apart from one that was never registered.
func (a *Application) IsKnownContainer(id umbilical.ContainerId) bool {
	_, ok := a.service.Registry().Lookup(id)
	return ok
}

func (a *Application) TaskStartedRemotely(attemptId umbilical.TaskAttemptId, containerId umbilical.ContainerId) {
	log.Debugf("task %s started remotely on container %s", attemptId, containerId)
}

// --- launcher.EventSink ---

func (a *Application) LaunchFailed(containerId umbilical.ContainerId, message string) {
	log.Errorf("launch failed for container %s: %s", containerId, message)
	a.service.RegisterContainerEnd(containerId)
	a.lifecycle.Post(LifecycleUpdate{Timestamp: time.Now(), Kind: "launch_failed", ContainerId: containerId, Message: message})
}

func (a *Application) Launched(containerId umbilical.ContainerId) {
	log.Infof("container %s launched", containerId)
	a.lifecycle.Post(LifecycleUpdate{Timestamp: time.Now(), Kind: "launched", ContainerId: containerId})
}

func (a *Application) ContainerLaunched(record launcher.ContainerLaunchedRecord) {
	log.Debugf("container %s launched under attempt %s at %s", record.ContainerId, record.ApplicationAttemptId, record.Timestamp)
}

func (a *Application) Completed(containerId umbilical.ContainerId, exitCode int, cause launcher.TerminationCause, message string) {
	if cause == launcher.CauseApplicationError {
		log.Errorf("container %s completed with %s: %s", containerId, cause, message)
	} else {
		log.Infof("container %s completed: %s", containerId, cause)
	}
	a.service.RegisterContainerEnd(containerId)
	a.lifecycle.Post(LifecycleUpdate{Timestamp: time.Now(), Kind: "completed", ContainerId: containerId, Cause: cause, Message: message})
}

func (a *Application) StopSent(containerId umbilical.ContainerId) {
	log.Debugf("stop sent to container %s", containerId)
	a.lifecycle.Post(LifecycleUpdate{Timestamp: time.Now(), Kind: "stop_sent", ContainerId: containerId})
}

func (a *Application) String() string {
	return fmt.Sprintf("application(attempt=%s)", a.attemptId)
}
