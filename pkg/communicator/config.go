package communicator

import (
	"time"

	"github.com/dagrunner/taskcommunicator/pkg/log"
	"github.com/dagrunner/taskcommunicator/pkg/utils"
)

// Config carries the four recognized configuration knobs of the task
// communicator, plus the gRPC keepalive tuning every server in this corpus
// exposes.
type Config struct {
	utils.GRPCOptions `mapstructure:",squash"`

	// ListenGrpc is the address the umbilical server binds in non-local
	// mode, e.g. "tcp://:0" for an ephemeral port.
	ListenGrpc string `mapstructure:"listen_grpc"`

	// LocalMode skips the RPC server entirely and synthesizes a loopback
	// address; worker payloads speak the umbilical in-process instead.
	LocalMode bool `mapstructure:"local_mode"`

	// ListenerThreadCount bounds the RPC handler pool size.
	ListenerThreadCount int `mapstructure:"listener_thread_count"`

	// InlineExecutorMaxTasks bounds the local worker pool (C4) size.
	InlineExecutorMaxTasks int `mapstructure:"inline_executor_max_tasks"`

	// SecurityAuthorization, when true, installs an ACL-checking
	// interceptor on the umbilical server.
	SecurityAuthorization bool `mapstructure:"security_authorization"`

	// ShutdownTimeout bounds how long Stop waits for in-flight RPCs to
	// drain before forcing the server down.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefaultConfig mirrors the defaults a DAG application master would start
// with absent any configuration file or flags.
func DefaultConfig() Config {
	return Config{
		ListenGrpc:             "tcp://:0",
		ListenerThreadCount:    8,
		InlineExecutorMaxTasks: 4,
		ShutdownTimeout:        2 * time.Second,
	}
}

// Log prints the effective configuration the way the rest of this corpus
// logs its startup configuration.
func (c *Config) Log() {
	log.Info("Task communicator configuration:")
	log.Info("  local_mode =", c.LocalMode)
	log.Info("  listen_grpc =", c.ListenGrpc)
	log.Info("  listener_thread_count =", c.ListenerThreadCount)
	log.Info("  inline_executor_max_tasks =", c.InlineExecutorMaxTasks)
	log.Info("  security_authorization =", c.SecurityAuthorization)
	c.GRPCOptions.Log()
}
