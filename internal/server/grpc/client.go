package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/rzbill/filings/internal/filings"
)

// Client calls filings.v1.Filings over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...)
}

func (c *Client) GetFiling(ctx context.Context, in *GetFilingRequest, opts ...grpc.CallOption) (*filings.Filing, error) {
	out := new(filings.Filing)
	if err := c.invoke(ctx, "GetFiling", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListFilings(ctx context.Context, in *ListFilingsRequest, opts ...grpc.CallOption) (*filings.Page, error) {
	out := new(filings.Page)
	if err := c.invoke(ctx, "ListFilings", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateFilings(ctx context.Context, in *CreateFilingsRequest, opts ...grpc.CallOption) (*filings.CreateResult, error) {
	out := new(filings.CreateResult)
	if err := c.invoke(ctx, "CreateFilings", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
