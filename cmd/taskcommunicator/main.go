package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dagrunner/taskcommunicator/pkg/app"
	"github.com/dagrunner/taskcommunicator/pkg/communicator"
	"github.com/dagrunner/taskcommunicator/pkg/launcher"
	"github.com/dagrunner/taskcommunicator/pkg/log"
	"github.com/dagrunner/taskcommunicator/pkg/umbilical"
	"github.com/dagrunner/taskcommunicator/pkg/utils"
)

var config *Config

// parseCredentials wraps a launch context's raw token bundle verbatim:
// there is no credentials wire format in this corpus to decode, only the
// fidelity of keeping a distinct failure path from task-runner
// construction (see app.Application and the launcher event loop).
func parseCredentials(tokens []byte) (*umbilical.Credentials, error) {
	return &umbilical.Credentials{Tokens: tokens}, nil
}

var rootCmd = &cobra.Command{
	Use:   "taskcommunicator",
	Short: "Task dispatch and umbilical service for a DAG application master",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		viper.SetEnvPrefix("taskcommunicator")
		viper.AutomaticEnv()

		viper.SetConfigName("taskcommunicator.yaml")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("/etc/taskcommunicator/")
		viper.AddConfigPath("$HOME/.config/taskcommunicator")
		viper.AddConfigPath(".")

		viper.ReadInConfig()

		config = defaultConfig()
		if err := utils.UnmarshalConfig(*viper.GetViper(), &config); err != nil {
			log.Fatal(err)
		}

		config.Log()

		verbosity, err := cmd.Flags().GetCount("verbose")
		if err != nil {
			panic(err)
		}

		switch {
		case verbosity >= 2:
			log.SetLevel(log.TraceLevel)
		case verbosity >= 1:
			log.SetLevel(log.DebugLevel)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		attemptId := app.DefaultApplicationAttemptId()
		application := app.NewApplication(attemptId, nil, config.Config, launcher.NewExecRunnerFactory(), parseCredentials)

		if err := application.Start(); err != nil {
			log.Fatal(err)
		}
		defer application.Stop()

		log.Info("umbilical listening on", application.Service().GetAddress())

		host, err := utils.ParseHttpUrl(config.ListenHttp)
		if err != nil {
			log.Fatal(err)
		}

		r := echo.New()
		r.HideBanner = true
		r.Use(utils.HttpLogger)
		r.Add(echo.GET, "/debug/pprof/*", echo.WrapHandler(http.DefaultServeMux))
		communicator.NewHttpHandler(application.Service(), r)
		app.NewHttpHandler(application, r)

		log.Info("Listening on http", host)
		log.Fatal(r.Start(host))
	},
}

func init() {
	rootCmd.Flags().StringP("listen-grpc", "g", "tcp://:0", "Address to listen on for umbilical gRPC connections")
	rootCmd.Flags().StringP("listen-http", "l", "tcp://:8080", "Address to listen on for the debug HTTP endpoint")
	rootCmd.Flags().Bool("local-mode", false, "Skip the gRPC listener and synthesize a loopback umbilical address")
	rootCmd.Flags().Int("inline-executor-max-tasks", 4, "Local worker pool size")
	rootCmd.Flags().CountP("verbose", "v", "Verbosity (repeatable)")

	viper.BindPFlag("listen_grpc", rootCmd.Flags().Lookup("listen-grpc"))
	viper.BindPFlag("listen_http", rootCmd.Flags().Lookup("listen-http"))
	viper.BindPFlag("local_mode", rootCmd.Flags().Lookup("local-mode"))
	viper.BindPFlag("inline_executor_max_tasks", rootCmd.Flags().Lookup("inline-executor-max-tasks"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
