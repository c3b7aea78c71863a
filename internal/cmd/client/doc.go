// Package client provides the `filings` command-line client.
//
// The CLI talks to the filings HTTP API by default, or to the gRPC endpoint
// with --transport grpc. The HTTP base URL comes from the embedding
// application via a BaseURLFunc (FILINGS_HTTP in the standalone binary,
// default http://127.0.0.1:8080). The gRPC address is read from FILINGS_GRPC
// (default 127.0.0.1:50051).
//
// Usage
//
//	filings filings get 65537
//
//	filings filings list edgar --page-size 50
//	filings filings list edgar --after 65600 --filter 'form_type == "10-K"'
//
//	# Bulk insert; duplicates are reported in failureCount
//	filings filings import ./filings.json --batch-size 500
//
//	filings filings get 65537 --transport grpc
package client
