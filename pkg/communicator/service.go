// Package communicator owns the container registry and umbilical endpoint
// together, and exposes the registration API an upstream scheduler uses to
// announce containers and task assignments.
package communicator

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/dagrunner/taskcommunicator/pkg/log"
	"github.com/dagrunner/taskcommunicator/pkg/protocol"
	"github.com/dagrunner/taskcommunicator/pkg/umbilical"
	"github.com/dagrunner/taskcommunicator/pkg/utils"
)

// Service is the Task Communicator: it owns the registry and umbilical
// endpoint and exposes registerRunningContainer / registerContainerEnd /
// registerRunningTaskAttempt / unregisterRunningTaskAttempt to the
// upstream scheduler, plus the RPC server lifecycle.
type Service struct {
	config   Config
	registry *umbilical.Registry
	endpoint *umbilical.Endpoint

	mu       sync.Mutex
	server   *grpc.Server
	listener net.Listener
	address  string
}

// NewService constructs a Service. ctx is the upstream collaborator the
// umbilical endpoint calls out to for canCommit/heartbeat/isKnownContainer
// decisions.
func NewService(cfg Config, ctx umbilical.TaskCommunicatorContext) *Service {
	registry := umbilical.NewRegistry()
	return &Service{
		config:   cfg,
		registry: registry,
		endpoint: umbilical.NewEndpoint(registry, ctx),
	}
}

// Start brings the umbilical RPC server up (or, in local mode, skips it and
// synthesizes a loopback address). Safe to call once.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.LocalMode {
		token, err := uuid.NewRandom()
		if err != nil {
			return err
		}
		s.address = fmt.Sprintf("local://%s", token.String())
		log.Info("Local mode: synthesized umbilical address", s.address)
		return nil
	}

	network, addr, err := utils.ParseGrpcUrl(s.config.ListenGrpc)
	if err != nil {
		return err
	}

	listener, err := net.Listen(network, addr)
	if err != nil {
		return err
	}

	opts := s.config.GRPCOptions.ToServerOptions()
	if s.config.ListenerThreadCount > 0 {
		// gRPC-go has no direct analogue to a fixed RPC handler thread
		// pool; bounding concurrent streams per connection is the
		// idiomatic substitute for the same backpressure intent.
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(s.config.ListenerThreadCount)))
	}
	if s.config.SecurityAuthorization {
		opts = append(opts, grpc.UnaryInterceptor(aclInterceptor))
	}

	server := grpc.NewServer(opts...)
	protocol.RegisterUmbilicalServer(server, s.endpoint)

	s.server = server
	s.listener = listener
	s.address = listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil {
			log.Debug("umbilical server stopped:", err)
		}
	}()

	log.Info("Listening for umbilical RPCs on", s.address)
	return nil
}

// Stop tears the RPC server down. Registry entries remain, but no new
// calls are accepted.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		server := s.server
		stopped := make(chan struct{})
		go func() {
			server.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(s.config.ShutdownTimeout):
			server.Stop()
		}
		s.server = nil
	}
}

// GetAddress returns the bound address of the RPC listener, or the
// synthetic loopback address in local mode.
func (s *Service) GetAddress() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// Registry exposes the underlying container registry, e.g. for the debug
// HTTP endpoint's snapshot.
func (s *Service) Registry() *umbilical.Registry {
	return s.registry
}

// Endpoint exposes the umbilical endpoint for local-mode in-process wiring
// (the launcher's local worker pool talks to it directly, bypassing gRPC).
func (s *Service) Endpoint() *umbilical.Endpoint {
	return s.endpoint
}

// RegisterRunningContainer installs a fresh ContainerInfo for id.
// host and port are accepted for interface compatibility but are not
// consulted by the registry; preserved from the upstream design this
// corpus's umbilical is modeled on rather than removed, since a downstream
// consumer may yet want them for logging.
func (s *Service) RegisterRunningContainer(id umbilical.ContainerId, host string, port int32) error {
	_, err := s.registry.InsertContainer(id)
	return err
}

// RegisterContainerEnd tears a container down.
func (s *Service) RegisterContainerEnd(id umbilical.ContainerId) {
	s.registry.RemoveContainer(id)
}

// RegisterRunningTaskAttempt assigns spec to id.
func (s *Service) RegisterRunningTaskAttempt(id umbilical.ContainerId, spec *umbilical.TaskSpec, resources map[string]*umbilical.LocalResource, creds *umbilical.Credentials, credsChanged bool) error {
	return s.registry.Assign(id, spec, resources, creds, credsChanged)
}

// UnregisterRunningTaskAttempt clears the assignment mapped to attemptId.
func (s *Service) UnregisterRunningTaskAttempt(attemptId umbilical.TaskAttemptId) error {
	return s.registry.Unassign(attemptId)
}

// aclInterceptor is the ACL-stub this corpus installs when
// security_authorization is set, standing in for refreshServiceAcls /
// HADOOP_SECURITY_AUTHORIZATION: a config knob that did nothing observable
// gets one observable effect — every call is logged at trace level —
// without this repo inventing a real authorization backend.
func aclInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	log.Tracef("acl: allowing %s", info.FullMethod)
	return handler(ctx, req)
}
