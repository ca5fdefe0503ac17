package main

import (
	"github.com/dagrunner/taskcommunicator/pkg/communicator"
	"github.com/dagrunner/taskcommunicator/pkg/log"
)

// Config is the top-level configuration for the taskcommunicator binary:
// the communicator's own knobs plus where to listen for debug HTTP.
type Config struct {
	communicator.Config `mapstructure:",squash"`

	// ListenHttp is the address the debug HTTP endpoint binds.
	ListenHttp string `mapstructure:"listen_http"`
}

func defaultConfig() *Config {
	return &Config{
		Config:     communicator.DefaultConfig(),
		ListenHttp: "tcp://:8080",
	}
}

func (c *Config) Log() {
	log.Info("taskcommunicator configuration:")
	log.Info("  listen_http =", c.ListenHttp)
	c.Config.Log()
}
