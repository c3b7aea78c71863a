package transports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rzbill/filings/internal/filings"
)

// APIError is a non-2xx answer from the HTTP API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// retryable reports whether the server turned the request away before
// doing any work.
func (e *APIError) retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status == http.StatusServiceUnavailable
}

// HTTPTransport implements FilingsTransport over the REST API.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	// MaxRetries bounds retries of requests the server rejected with 429/503.
	MaxRetries uint64
}

// NewHTTPTransport returns a transport for baseURL, e.g. http://127.0.0.1:8080.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTransport{baseURL: baseURL, client: client, MaxRetries: 3}
}

// Get fetches one filing.
func (t *HTTPTransport) Get(ctx context.Context, id uint64) (filings.Filing, error) {
	var out filings.Filing
	err := t.do(ctx, http.MethodGet, "/v1/filings/"+strconv.FormatUint(id, 10), nil, &out)
	return out, err
}

// List fetches a page of a source's filings.
func (t *HTTPTransport) List(ctx context.Context, req ListRequest) (filings.Page, error) {
	q := url.Values{}
	if req.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(req.PageSize))
	}
	if req.After > 0 {
		q.Set("after", strconv.FormatUint(req.After, 10))
	}
	if req.Filter != "" {
		q.Set("filter", req.Filter)
	}
	path := "/v1/sources/" + url.PathEscape(req.Source) + "/filings"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out filings.Page
	err := t.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Create inserts a batch.
func (t *HTTPTransport) Create(ctx context.Context, items []filings.Filing) (filings.CreateResult, error) {
	body, err := json.Marshal(map[string]any{"filings": items})
	if err != nil {
		return filings.CreateResult{}, err
	}
	var out filings.CreateResult
	err = t.do(ctx, http.MethodPost, "/v1/filings", body, &out)
	return out, err
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, body []byte, out any) error {
	op := func() error {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, rd)
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := t.client.Do(req)
		if err != nil {
			return backoff.Permanent(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode/100 != 2 {
			apiErr := &APIError{Status: resp.StatusCode}
			var e struct {
				Error string `json:"error"`
			}
			if json.NewDecoder(resp.Body).Decode(&e) == nil {
				apiErr.Message = e.Error
			}
			if apiErr.retryable() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, t.MaxRetries), ctx))
}
