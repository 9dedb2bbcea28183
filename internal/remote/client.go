package remote

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/surface-sampler/internal/logging"
)

// Client calls the operator service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Deploy(ctx context.Context) (*structpb.Struct, error) {
	return c.structCall(ctx, "Deploy", &emptypb.Empty{})
}

func (c *Client) Reset(ctx context.Context) (*structpb.Struct, error) {
	return c.structCall(ctx, "Reset", &emptypb.Empty{})
}

func (c *Client) Status(ctx context.Context) (*structpb.Struct, error) {
	return c.structCall(ctx, "Status", &emptypb.Empty{})
}

func (c *Client) Records(ctx context.Context) (*structpb.Struct, error) {
	return c.structCall(ctx, "Records", &emptypb.Empty{})
}

func (c *Client) Inspect(ctx context.Context) error {
	return c.invoke(ctx, "Inspect", &emptypb.Empty{}, new(emptypb.Empty))
}

func (c *Client) Discard(ctx context.Context, recordID string) (*structpb.Struct, error) {
	return c.recordCall(ctx, "Discard", recordID)
}

func (c *Client) Transmit(ctx context.Context, recordID string) (*structpb.Struct, error) {
	return c.recordCall(ctx, "Transmit", recordID)
}

func (c *Client) Analyze(ctx context.Context, recordID string) (*structpb.Struct, error) {
	return c.recordCall(ctx, "Analyze", recordID)
}

func (c *Client) Dump(ctx context.Context, recordID string) (*structpb.Struct, error) {
	return c.recordCall(ctx, "Dump", recordID)
}

func (c *Client) recordCall(ctx context.Context, method, recordID string) (*structpb.Struct, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		recordIDField: structpb.NewStringValue(recordID),
	}}
	return c.structCall(ctx, method, in)
}

func (c *Client) structCall(ctx context.Context, method string, in interface{}) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// invoke forwards the caller's op_id, if any, as request metadata.
func (c *Client) invoke(ctx context.Context, method string, in, out interface{}) error {
	if opID := logging.OperationIDFromContext(ctx); opID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, operationIDMetadataKey, opID)
	}
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out)
}
