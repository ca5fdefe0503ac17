package launcher

import (
	"context"
	"os/exec"
	"strings"

	"github.com/dagrunner/taskcommunicator/pkg/umbilical"
)

// NewExecRunnerFactory returns a RunnerFactory that treats a task's opaque
// payload (LaunchContext.Payload) as a whitespace-separated command line
// and runs it as a child process rooted at LaunchContext.WorkDir — the
// Go-idiomatic stand-in for handing a container's task off to an embedded
// task runtime, now that there is no such runtime to embed. Any caller
// that wants a different interpretation of the payload supplies its own
// RunnerFactory instead; the pool and event loop never inspect it.
func NewExecRunnerFactory() RunnerFactory {
	return func(_ umbilical.ContainerId, launchCtx *LaunchContext, _ *umbilical.Credentials) (TaskRunner, error) {
		command := strings.Fields(string(launchCtx.Payload))
		workDir := launchCtx.WorkDir

		return func(ctx context.Context) (*ExecutionResult, error) {
			if len(command) == 0 {
				return &ExecutionResult{ExitStatus: ExitSuccess}, nil
			}

			cmd := exec.CommandContext(ctx, command[0], command[1:]...)
			cmd.Dir = workDir

			if err := cmd.Run(); err != nil {
				if ctx.Err() == context.Canceled {
					return nil, ctx.Err()
				}
				return &ExecutionResult{
					ExitStatus:   ExitExecutionFailure,
					ErrorMessage: err.Error(),
					Cause:        err,
				}, nil
			}

			return &ExecutionResult{ExitStatus: ExitSuccess}, nil
		}, nil
	}
}
