package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"

	"employee-forwarder/internal/shared/contextutil"

	"go.uber.org/zap"
)

// Mode selects what a forwarded call hands back to its caller.
type Mode int

const (
	// ModeBody decodes the upstream body and reports 200.
	ModeBody Mode = iota + 1
	// ModeEntity decodes the upstream body and keeps the upstream status.
	ModeEntity
	// ModeExchange returns the upstream response untouched, whatever its status.
	ModeExchange
	// ModeLocation returns 201 and the absolute URI from the upstream Location header.
	ModeLocation
)

func (m Mode) String() string {
	switch m {
	case ModeBody:
		return "body"
	case ModeEntity:
		return "entity"
	case ModeExchange:
		return "exchange"
	case ModeLocation:
		return "location"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

var (
	ErrNotFound        = errors.New("resource not found upstream")
	ErrUnknownMode     = errors.New("unknown forwarding mode")
	ErrMissingLocation = errors.New("upstream response has no Location header")
)

// UpstreamError carries a non-2xx store response so it can be relayed as is.
type UpstreamError struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status=%d body=%s", e.StatusCode, e.Body)
}

//nolint:errorlint
func (e *UpstreamError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Request is one call to the store, relative to the client's base URL.
type Request struct {
	Method string
	Path   string
	Body   any
}

// Result is what a forwarded call produced once Mode has been applied.
// Body is only set for ModeExchange and Location only for ModeLocation.
type Result struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Location    string
}

// Client issues JSON requests against the store. It sets no timeout and never
// retries; the caller's context is the only way to abandon a call.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
	closed     int32
}

func NewClient(baseURL string, httpClient *http.Client, logger ...*zap.Logger) (*Client, error) {
	u, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	l := zap.L().Named("forwarder.client")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("forwarder.client")
	}

	return &Client{baseURL: u, httpClient: httpClient, logger: l}, nil
}

// Close drops idle keep-alive connections. It is safe to call more than once.
func (c *Client) Close() error {
	if c == nil || !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	c.httpClient.CloseIdleConnections()
	return nil
}

type rawResponse struct {
	statusCode  int
	contentType string
	location    *url.URL
	body        []byte
}

// Send performs req and shapes the answer according to mode. For ModeBody and
// ModeEntity the 2xx body is decoded into out, which must be a pointer.
func (c *Client) Send(ctx context.Context, mode Mode, req Request, out any) (Result, error) {
	if mode < ModeBody || mode > ModeLocation {
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
	}

	raw, err := c.exchange(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if mode == ModeExchange {
		return Result{StatusCode: raw.statusCode, ContentType: raw.contentType, Body: raw.body}, nil
	}

	if raw.statusCode < 200 || raw.statusCode >= 300 {
		return Result{}, &UpstreamError{StatusCode: raw.statusCode, ContentType: raw.contentType, Body: raw.body}
	}

	switch mode {
	case ModeLocation:
		if raw.location == nil {
			return Result{}, ErrMissingLocation
		}
		return Result{StatusCode: http.StatusCreated, Location: raw.location.String()}, nil
	case ModeBody, ModeEntity:
		if out != nil && len(raw.body) > 0 {
			if err := json.Unmarshal(raw.body, out); err != nil {
				return Result{}, fmt.Errorf("decode upstream body: %w", err)
			}
		}
		status := raw.statusCode
		if mode == ModeBody {
			status = http.StatusOK
		}
		return Result{StatusCode: status, ContentType: raw.contentType}, nil
	}

	return Result{}, fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
}

func (c *Client) exchange(ctx context.Context, req Request) (*rawResponse, error) {
	target := c.baseURL.JoinPath(req.Path)

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if rid := contextutil.GetRequestID(ctx); rid != "" {
		httpReq.Header.Set(contextutil.RequestIDHeader, rid)
	}
	if key := contextutil.GetIdempotencyKey(ctx); key != "" {
		httpReq.Header.Set(contextutil.IdempotencyKeyHeader, key)
	}

	log := contextutil.GetLogger(ctx, c.logger)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Error("upstream call failed",
			zap.String("method", req.Method),
			zap.String("url", target.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s %s: %w", req.Method, target.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	raw := &rawResponse{
		statusCode:  resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        data,
	}
	if loc := resp.Header.Get("Location"); loc != "" {
		ref, err := url.Parse(loc)
		if err != nil {
			return nil, fmt.Errorf("parse upstream location %q: %w", loc, err)
		}
		raw.location = target.ResolveReference(ref)
	}

	log.Debug("upstream call completed",
		zap.String("method", req.Method),
		zap.String("url", target.String()),
		zap.Int("status", resp.StatusCode),
	)

	return raw, nil
}
