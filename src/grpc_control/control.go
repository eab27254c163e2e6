package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "simulator.Control"

// ControlServer is the server API for the simulator.Control service.
// Requests naming a book carry a "market_id" string field.
type ControlServer interface {
	ListBooks(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	OpenBook(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PauseBook(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	ResumeBook(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	CloseBook(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// ControlServiceDesc describes simulator.Control using well-known message
// types only, so no generated stubs are needed.
var ControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListBooks", newEmpty, func(s ControlServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.ListBooks(ctx, in)
		}),
		unary("OpenBook", newStruct, func(s ControlServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
			return s.OpenBook(ctx, in)
		}),
		unary("PauseBook", newStruct, func(s ControlServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
			return s.PauseBook(ctx, in)
		}),
		unary("ResumeBook", newStruct, func(s ControlServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
			return s.ResumeBook(ctx, in)
		}),
		unary("CloseBook", newStruct, func(s ControlServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
			return s.CloseBook(ctx, in)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "simulator/control",
}

// RegisterControlServer attaches srv to s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ControlServiceDesc, srv)
}

func newEmpty() *emptypb.Empty   { return &emptypb.Empty{} }
func newStruct() *structpb.Struct { return &structpb.Struct{} }

func unary[Req proto.Message](
	name string,
	newReq func() Req,
	call func(ControlServer, context.Context, Req) (proto.Message, error),
) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ControlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ControlServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// -----------------------------------------------------------------------------

// ControlClient calls simulator.Control over an existing connection.
type ControlClient struct {
	cc grpc.ClientConnInterface
}

func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

func (c *ControlClient) ListBooks(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ListBooks", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) OpenBook(ctx context.Context, marketID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/OpenBook", bookRequest(marketID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) PauseBook(ctx context.Context, marketID string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/PauseBook", bookRequest(marketID), &emptypb.Empty{}, opts...)
}

func (c *ControlClient) ResumeBook(ctx context.Context, marketID string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/ResumeBook", bookRequest(marketID), &emptypb.Empty{}, opts...)
}

func (c *ControlClient) CloseBook(ctx context.Context, marketID string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/CloseBook", bookRequest(marketID), &emptypb.Empty{}, opts...)
}

func bookRequest(marketID string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"market_id": structpb.NewStringValue(marketID),
	}}
}
