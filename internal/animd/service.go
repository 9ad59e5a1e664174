// Package animd serves a running sequencer over gRPC.
//
// The service is described by a hand-written grpc.ServiceDesc whose messages
// are protobuf well-known types (structpb, emptypb, timestamppb), so no
// generated code is needed on either side.
package animd

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "animseq.v1.Sequencer"

// Full method names, as seen by interceptors.
const (
	MethodEnqueue      = "/" + ServiceName + "/Enqueue"
	MethodGetState     = "/" + ServiceName + "/GetState"
	MethodListCommands = "/" + ServiceName + "/ListCommands"
	MethodPing         = "/" + ServiceName + "/Ping"
	MethodStreamEvents = "/" + ServiceName + "/StreamEvents"
)

// DefaultPort is the default daemon port.
const DefaultPort = 50061

// VersionHeader carries the daemon version in Ping response headers.
const VersionHeader = "animseq-version"

// SequencerServer is the server API of the animseq.v1.Sequencer service.
type SequencerServer interface {
	Enqueue(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListCommands(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Ping(context.Context, *emptypb.Empty) (*timestamppb.Timestamp, error)
	StreamEvents(*emptypb.Empty, grpc.ServerStream) error
}

// RegisterSequencerServer registers srv with s.
func RegisterSequencerServer(s grpc.ServiceRegistrar, srv SequencerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the animseq.v1.Sequencer service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SequencerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Enqueue", Handler: enqueueHandler},
		{MethodName: "GetState", Handler: getStateHandler},
		{MethodName: "ListCommands", Handler: listCommandsHandler},
		{MethodName: "Ping", Handler: pingHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamEvents",
			Handler:       streamEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "animseq/v1/sequencer.proto",
}

func enqueueHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SequencerServer).Enqueue(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodEnqueue}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SequencerServer).Enqueue(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getStateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SequencerServer).GetState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetState}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SequencerServer).GetState(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func listCommandsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SequencerServer).ListCommands(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodListCommands}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SequencerServer).ListCommands(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func pingHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SequencerServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodPing}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SequencerServer).Ping(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func streamEventsHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(SequencerServer).StreamEvents(in, stream)
}
