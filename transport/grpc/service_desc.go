package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// BrainServiceServer is the service this package exposes: process a turn's
// intents (spec.md §4.1), and stream a session's progress events (spec.md
// §4.10) to a subscriber that would rather watch than poll.
type BrainServiceServer interface {
	ProcessTurn(context.Context, *ProcessTurnRequest) (*ProcessTurnResponse, error)
	StreamUpdates(*StreamUpdatesRequest, BrainService_StreamUpdatesServer) error
}

// BrainService_StreamUpdatesServer is the server-side handle for a
// StreamUpdates call, grouped the way protoc-gen-go-grpc names its
// generated server-streaming interfaces.
type BrainService_StreamUpdatesServer interface {
	Send(*StreamUpdatesResponse) error
	grpc.ServerStream
}

type brainServiceStreamUpdatesServer struct {
	grpc.ServerStream
}

func (x *brainServiceStreamUpdatesServer) Send(m *StreamUpdatesResponse) error {
	return x.ServerStream.SendMsg(m)
}

func brainServiceProcessTurnHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ProcessTurnRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BrainServiceServer).ProcessTurn(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/brain.BrainService/ProcessTurn"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BrainServiceServer).ProcessTurn(ctx, req.(*ProcessTurnRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func brainServiceStreamUpdatesHandler(srv any, stream grpc.ServerStream) error {
	m := new(StreamUpdatesRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(BrainServiceServer).StreamUpdates(m, &brainServiceStreamUpdatesServer{stream})
}

// ServiceDesc is the hand-written equivalent of a protoc-gen-go-grpc
// _ServiceDesc: it lets grpc.Server.RegisterService dispatch incoming
// calls to BrainServiceServer without a generated .pb.go.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "brain.BrainService",
	HandlerType: (*BrainServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ProcessTurn",
			Handler:    brainServiceProcessTurnHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamUpdates",
			Handler:       brainServiceStreamUpdatesHandler,
			ServerStreams: true,
		},
	},
	Metadata: "brain.proto",
}

// RegisterBrainServiceServer registers srv with s, mirroring the generated
// RegisterXServer function protoc-gen-go-grpc would emit.
func RegisterBrainServiceServer(s grpc.ServiceRegistrar, srv BrainServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
