package transports

import (
	"context"

	"google.golang.org/grpc"

	"github.com/rzbill/filings/internal/filings"
	grpcserver "github.com/rzbill/filings/internal/server/grpc"
)

// GrpcTransport implements FilingsTransport over gRPC.
type GrpcTransport struct {
	dial func(ctx context.Context) (*grpc.ClientConn, error)
}

// NewGrpcTransport constructs a new GrpcTransport using the provided dialer.
func NewGrpcTransport(dial func(ctx context.Context) (*grpc.ClientConn, error)) *GrpcTransport {
	return &GrpcTransport{dial: dial}
}

func (t *GrpcTransport) withClient(ctx context.Context, fn func(cli *grpcserver.Client) error) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	return fn(grpcserver.NewClient(conn))
}

// Get fetches one filing via gRPC.
func (t *GrpcTransport) Get(ctx context.Context, id uint64) (filings.Filing, error) {
	var out filings.Filing
	err := t.withClient(ctx, func(cli *grpcserver.Client) error {
		f, err := cli.GetFiling(ctx, &grpcserver.GetFilingRequest{ID: id})
		if err != nil {
			return err
		}
		out = *f
		return nil
	})
	return out, err
}

// List fetches a page via gRPC.
func (t *GrpcTransport) List(ctx context.Context, req ListRequest) (filings.Page, error) {
	var out filings.Page
	err := t.withClient(ctx, func(cli *grpcserver.Client) error {
		p, err := cli.ListFilings(ctx, &grpcserver.ListFilingsRequest{
			Source:   req.Source,
			PageSize: req.PageSize,
			After:    req.After,
			Filter:   req.Filter,
		})
		if err != nil {
			return err
		}
		out = *p
		return nil
	})
	return out, err
}

// Create inserts a batch via gRPC.
func (t *GrpcTransport) Create(ctx context.Context, items []filings.Filing) (filings.CreateResult, error) {
	var out filings.CreateResult
	err := t.withClient(ctx, func(cli *grpcserver.Client) error {
		res, err := cli.CreateFilings(ctx, &grpcserver.CreateFilingsRequest{Filings: items})
		if err != nil {
			return err
		}
		out = *res
		return nil
	})
	return out, err
}
