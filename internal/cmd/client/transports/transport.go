// Package transports provides pluggable transport implementations for the CLI.
package transports

import (
	"context"

	"github.com/rzbill/filings/internal/filings"
)

// ListRequest selects a page of a source's filings.
type ListRequest struct {
	Source   string
	PageSize int
	After    uint64
	Filter   string
}

// FilingsTransport abstracts the transport used by the CLI (gRPC/HTTP).
type FilingsTransport interface {
	Get(ctx context.Context, id uint64) (filings.Filing, error)
	List(ctx context.Context, req ListRequest) (filings.Page, error)
	Create(ctx context.Context, items []filings.Filing) (filings.CreateResult, error)
}
