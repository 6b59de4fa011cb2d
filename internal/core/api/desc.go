package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Wire names of the targeting service. Messages are google.protobuf.Struct so
// no generated code is needed on either side.
const (
	ServiceName      = "cuitarget.v1.Targeting"
	SelectFullMethod = "/" + ServiceName + "/Select"
)

// TargetingServer is the server side of cuitarget.v1.Targeting.
type TargetingServer interface {
	Select(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterTargetingServer registers srv on s.
func RegisterTargetingServer(s grpc.ServiceRegistrar, srv TargetingServer) {
	s.RegisterService(&targetingServiceDesc, srv)
}

var targetingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TargetingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Select", Handler: selectHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cuitarget/v1/targeting.proto",
}

func selectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TargetingServer).Select(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SelectFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TargetingServer).Select(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// TargetingClient calls cuitarget.v1.Targeting.
type TargetingClient struct {
	cc grpc.ClientConnInterface
}

// NewTargetingClient wraps an established connection.
func NewTargetingClient(cc grpc.ClientConnInterface) *TargetingClient {
	return &TargetingClient{cc: cc}
}

// Select sends one selection request.
func (c *TargetingClient) Select(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SelectFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
