package client

import (
	"context"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	transports "github.com/rzbill/filings/internal/cmd/client/transports"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// grpcAddrFromEnv returns the gRPC server address from FILINGS_GRPC or a default.
func grpcAddrFromEnv() string {
	if addr := os.Getenv("FILINGS_GRPC"); addr != "" {
		return addr
	}
	return "127.0.0.1:50051"
}

// dialGRPCContext dials the filings gRPC endpoint with insecure transport for local/dev.
func dialGRPCContext(ctx context.Context) (*grpc.ClientConn, error) {
	return grpc.DialContext(ctx, grpcAddrFromEnv(), grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// getTransport picks the transport named by --transport.
func getTransport(name string, baseURL BaseURLFunc) transports.FilingsTransport {
	if name == "grpc" {
		return transports.NewGrpcTransport(dialGRPCContext)
	}
	return transports.NewHTTPTransport(baseURL(), nil)
}
