package protocol

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UmbilicalClient is the worker-side view of the umbilical.
type UmbilicalClient interface {
	GetTask(ctx context.Context, in *ContainerContext, opts ...grpc.CallOption) (*ContainerTask, error)
	CanCommit(ctx context.Context, in *CanCommitRequest, opts ...grpc.CallOption) (*CanCommitResponse, error)
	Heartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*HeartbeatResponse, error)
}

type umbilicalClient struct {
	cc grpc.ClientConnInterface
}

func NewUmbilicalClient(cc grpc.ClientConnInterface) UmbilicalClient {
	return &umbilicalClient{cc}
}

func (c *umbilicalClient) GetTask(ctx context.Context, in *ContainerContext, opts ...grpc.CallOption) (*ContainerTask, error) {
	out := new(ContainerTask)
	if err := c.cc.Invoke(ctx, "/protocol.Umbilical/GetTask", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *umbilicalClient) CanCommit(ctx context.Context, in *CanCommitRequest, opts ...grpc.CallOption) (*CanCommitResponse, error) {
	out := new(CanCommitResponse)
	if err := c.cc.Invoke(ctx, "/protocol.Umbilical/CanCommit", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *umbilicalClient) Heartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*HeartbeatResponse, error) {
	out := new(HeartbeatResponse)
	if err := c.cc.Invoke(ctx, "/protocol.Umbilical/Heartbeat", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// UmbilicalServer is the application-master-side view of the umbilical.
type UmbilicalServer interface {
	GetTask(ctx context.Context, in *ContainerContext) (*ContainerTask, error)
	CanCommit(ctx context.Context, in *CanCommitRequest) (*CanCommitResponse, error)
	Heartbeat(ctx context.Context, in *HeartbeatRequest) (*HeartbeatResponse, error)
}

// UnimplementedUmbilicalServer can be embedded by a server implementation
// to satisfy UmbilicalServer for methods it has not yet implemented.
type UnimplementedUmbilicalServer struct{}

func (UnimplementedUmbilicalServer) GetTask(context.Context, *ContainerContext) (*ContainerTask, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetTask not implemented")
}

func (UnimplementedUmbilicalServer) CanCommit(context.Context, *CanCommitRequest) (*CanCommitResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CanCommit not implemented")
}

func (UnimplementedUmbilicalServer) Heartbeat(context.Context, *HeartbeatRequest) (*HeartbeatResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Heartbeat not implemented")
}

func RegisterUmbilicalServer(s grpc.ServiceRegistrar, srv UmbilicalServer) {
	s.RegisterService(&_Umbilical_serviceDesc, srv)
}

func _Umbilical_GetTask_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ContainerContext)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UmbilicalServer).GetTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/protocol.Umbilical/GetTask"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(UmbilicalServer).GetTask(ctx, req.(*ContainerContext))
	}
	return interceptor(ctx, in, info, handler)
}

func _Umbilical_CanCommit_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CanCommitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UmbilicalServer).CanCommit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/protocol.Umbilical/CanCommit"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(UmbilicalServer).CanCommit(ctx, req.(*CanCommitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Umbilical_Heartbeat_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HeartbeatRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UmbilicalServer).Heartbeat(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/protocol.Umbilical/Heartbeat"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(UmbilicalServer).Heartbeat(ctx, req.(*HeartbeatRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var _Umbilical_serviceDesc = grpc.ServiceDesc{
	ServiceName: "protocol.Umbilical",
	HandlerType: (*UmbilicalServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetTask", Handler: _Umbilical_GetTask_Handler},
		{MethodName: "CanCommit", Handler: _Umbilical_CanCommit_Handler},
		{MethodName: "Heartbeat", Handler: _Umbilical_Heartbeat_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "protocol/umbilical.proto",
}
