package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/observe-l/ulsch/internal/vecwire"
)

const (
	serviceName  = "ulsch.Encoder"
	encodeMethod = "/ulsch.Encoder/Encode"
	resetMethod  = "/ulsch.Encoder/Reset"
)

// Service is the server side of the encoder API.
type Service interface {
	Encode(context.Context, *vecwire.EncodeRequest) (*vecwire.EncodeResponse, error)
	Reset(context.Context, *vecwire.ResetRequest) (*vecwire.ResetResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Service)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Encode", Handler: encodeHandler},
		{MethodName: "Reset", Handler: resetHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ulsch/encoder",
}

// Register adds svc to s. The server must be created with ServerOptions().
func Register(s *grpc.Server, svc Service) {
	s.RegisterService(&serviceDesc, svc)
}

// ServerOptions selects the vecwire codec for every call.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{grpc.ForceServerCodec(vecwire.Codec{})}
}

func encodeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(vecwire.EncodeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Service).Encode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: encodeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Service).Encode(ctx, req.(*vecwire.EncodeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func resetHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(vecwire.ResetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Service).Reset(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: resetMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Service).Reset(ctx, req.(*vecwire.ResetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls a remote Service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) Encode(ctx context.Context, in *vecwire.EncodeRequest, opts ...grpc.CallOption) (*vecwire.EncodeResponse, error) {
	out := new(vecwire.EncodeResponse)
	if err := c.cc.Invoke(ctx, encodeMethod, in, out, callOptions(opts)...); err != nil {
		return nil, FromStatus(err)
	}
	return out, nil
}

func (c *Client) Reset(ctx context.Context, in *vecwire.ResetRequest, opts ...grpc.CallOption) (*vecwire.ResetResponse, error) {
	out := new(vecwire.ResetResponse)
	if err := c.cc.Invoke(ctx, resetMethod, in, out, callOptions(opts)...); err != nil {
		return nil, FromStatus(err)
	}
	return out, nil
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.ForceCodec(vecwire.Codec{})}, opts...)
}
