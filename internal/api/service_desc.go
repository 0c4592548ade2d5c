package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Full method names of the failchain.v1.FailureChain service.
const (
	NormalizeLegacyTextMethod = "/failchain.v1.FailureChain/NormalizeLegacyText"
	NormalizeXMLMethod        = "/failchain.v1.FailureChain/NormalizeXML"
)

// FailureChainServer is the server API for the failchain.v1.FailureChain service.
// Requests and responses use well-known protobuf types so no generated code is needed.
type FailureChainServer interface {
	NormalizeLegacyText(context.Context, *structpb.Struct) (*structpb.Struct, error)
	NormalizeXML(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
}

// RegisterFailureChainServer attaches srv to a gRPC service registrar.
func RegisterFailureChainServer(s grpc.ServiceRegistrar, srv FailureChainServer) {
	s.RegisterService(&FailureChainServiceDesc, srv)
}

// FailureChainServiceDesc describes the failchain.v1.FailureChain service.
var FailureChainServiceDesc = grpc.ServiceDesc{
	ServiceName: "failchain.v1.FailureChain",
	HandlerType: (*FailureChainServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "NormalizeLegacyText", Handler: normalizeLegacyTextHandler},
		{MethodName: "NormalizeXML", Handler: normalizeXMLHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "failchain/v1/failchain.proto",
}

func normalizeLegacyTextHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FailureChainServer).NormalizeLegacyText(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: NormalizeLegacyTextMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FailureChainServer).NormalizeLegacyText(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func normalizeXMLHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FailureChainServer).NormalizeXML(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: NormalizeXMLMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FailureChainServer).NormalizeXML(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// FailureChainClient calls the failchain.v1.FailureChain service.
type FailureChainClient struct {
	cc grpc.ClientConnInterface
}

// NewFailureChainClient wraps an established client connection.
func NewFailureChainClient(cc grpc.ClientConnInterface) *FailureChainClient {
	return &FailureChainClient{cc: cc}
}

// NormalizeLegacyText invokes the NormalizeLegacyText RPC.
func (c *FailureChainClient) NormalizeLegacyText(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, NormalizeLegacyTextMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// NormalizeXML invokes the NormalizeXML RPC.
func (c *FailureChainClient) NormalizeXML(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, NormalizeXMLMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
