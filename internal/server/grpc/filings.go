package grpcserver

import (
	"context"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rzbill/filings/internal/dispatch"
	"github.com/rzbill/filings/internal/filings"
	"github.com/rzbill/filings/internal/persist"
	"github.com/rzbill/filings/pkg/id"
	logpkg "github.com/rzbill/filings/pkg/log"
)

const serviceName = "filings.v1.Filings"

// RequestIDMetadata is the metadata key carrying the correlation id.
const RequestIDMetadata = "x-request-id"

type GetFilingRequest struct {
	ID uint64 `json:"id"`
}

type ListFilingsRequest struct {
	Source   string `json:"source"`
	PageSize int    `json:"page_size,omitempty"`
	After    uint64 `json:"after,omitempty"`
	Filter   string `json:"filter,omitempty"`
}

type CreateFilingsRequest struct {
	Filings []filings.Filing `json:"filings"`
}

// FilingsServer is the server side of filings.v1.Filings.
type FilingsServer interface {
	GetFiling(context.Context, *GetFilingRequest) (*filings.Filing, error)
	ListFilings(context.Context, *ListFilingsRequest) (*filings.Page, error)
	CreateFilings(context.Context, *CreateFilingsRequest) (*filings.CreateResult, error)
}

// FilingsServiceDesc describes filings.v1.Filings for grpc.Server.RegisterService.
var FilingsServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*FilingsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetFiling", Handler: getFilingHandler},
		{MethodName: "ListFilings", Handler: listFilingsHandler},
		{MethodName: "CreateFilings", Handler: createFilingsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "filings/v1/filings.proto",
}

func getFilingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetFilingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FilingsServer).GetFiling(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetFiling"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FilingsServer).GetFiling(ctx, req.(*GetFilingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listFilingsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListFilingsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FilingsServer).ListFilings(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ListFilings"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FilingsServer).ListFilings(ctx, req.(*ListFilingsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func createFilingsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateFilingsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FilingsServer).CreateFilings(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/CreateFilings"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FilingsServer).CreateFilings(ctx, req.(*CreateFilingsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// filingsSvc adapts filings.Service to FilingsServer.
type filingsSvc struct {
	svc *filings.Service
}

func (s *filingsSvc) GetFiling(ctx context.Context, req *GetFilingRequest) (*filings.Filing, error) {
	f, err := s.svc.Get(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &f, nil
}

func (s *filingsSvc) ListFilings(ctx context.Context, req *ListFilingsRequest) (*filings.Page, error) {
	page, err := s.svc.List(ctx, filings.ListFilings{
		Source:   req.Source,
		PageSize: req.PageSize,
		After:    req.After,
		Filter:   req.Filter,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &page, nil
}

func (s *filingsSvc) CreateFilings(ctx context.Context, req *CreateFilingsRequest) (*filings.CreateResult, error) {
	res, err := s.svc.Create(ctx, req.Filings)
	if err != nil {
		return nil, toStatus(err)
	}
	return &res, nil
}

// toStatus maps service errors onto gRPC codes.
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, filings.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, filings.ErrInvalid):
		code = codes.InvalidArgument
	case errors.Is(err, dispatch.ErrQueueFull):
		code = codes.ResourceExhausted
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, dispatch.ErrStopped), errors.Is(err, dispatch.ErrCancelled):
		code = codes.Unavailable
	case errors.Is(err, persist.ErrDuplicate):
		code = codes.AlreadyExists
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

// requestIDInterceptor copies x-request-id from incoming metadata into the
// context, generating one when absent.
func requestIDInterceptor(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	rid := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(RequestIDMetadata); len(v) > 0 {
			rid = v[0]
		}
	}
	if rid == "" {
		rid = id.NewString()
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDMetadata, rid))
	return handler(logpkg.ContextWithRequestID(ctx, rid), req)
}
