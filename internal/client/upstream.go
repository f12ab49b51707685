// Package client provides the HTTP client for the fixed upstream origin.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"relay-proxy/internal/config"
	"relay-proxy/internal/metrics"
	"relay-proxy/internal/model"
)

var (
	// ErrUpstreamUnreachable means no connection to the upstream could be made.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	// ErrUpstreamProtocol means the upstream sent a malformed or aborted response.
	ErrUpstreamProtocol = errors.New("upstream protocol error")
	// ErrUpstreamTimeout means the upstream stopped sending within the configured bound.
	ErrUpstreamTimeout = errors.New("upstream timed out")
)

const dialTimeout = 10 * time.Second

// UpstreamClient sends requests to the upstream origin.
type UpstreamClient struct {
	httpClient  *http.Client
	logger      *slog.Logger
	metrics     *metrics.Metrics
	idleTimeout time.Duration
}

// NewUpstreamClient creates an UpstreamClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
//
// The client never follows redirects and never negotiates compression on its
// own, so status codes, headers and body bytes reach the caller as sent.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	transport := &http.Transport{
		MaxIdleConns:          cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost:   cfg.Upstream.IdleConnections,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: cfg.Upstream.Timeout(),
		DisableCompression:    true,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &UpstreamClient{
		// No overall Timeout: streamed bodies may legitimately run for a long
		// time. Waits are bounded by ResponseHeaderTimeout and the idle timeout.
		httpClient: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:      logger.With("component", "upstream_client"),
		metrics:     m,
		idleTimeout: cfg.Upstream.IdleTimeout(),
	}
}

// DoStream executes a request and returns the response with its body as a
// live stream. The caller is responsible for closing the returned body.
//
// The provided context controls the lifetime of the upstream request: when it
// is canceled (e.g. the caller disconnects), the upstream connection is torn
// down. contentLength is the declared body length, or -1 when unknown.
func (c *UpstreamClient) DoStream(ctx context.Context, method, url string, header http.Header, body io.Reader, contentLength int64) (*model.ProxyResponse, error) {
	ctx, cancel := context.WithCancelCause(ctx)

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		cancel(nil)
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	if header == nil {
		header = make(http.Header)
	}
	// A present but empty User-Agent keeps the transport from adding its own.
	if _, ok := header["User-Agent"]; !ok {
		header["User-Agent"] = nil
	}
	req.Header = header
	if contentLength == 0 {
		req.Body = http.NoBody
		req.GetBody = nil
	}
	if contentLength >= 0 {
		req.ContentLength = contentLength
	}

	resp, err := c.Do(req)
	if err != nil {
		cancel(nil)
		return nil, err
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     model.HeaderFromHTTP(resp.Header),
		Body:       newIdleBody(ctx, resp.Body, c.idleTimeout, cancel),
	}, nil
}

// Do executes an HTTP request against the upstream and returns the raw response.
// Transport errors are classified into ErrUpstreamUnreachable, ErrUpstreamTimeout
// or ErrUpstreamProtocol; caller cancellation is returned as is.
// The caller is responsible for closing the response body.
func (c *UpstreamClient) Do(req *http.Request) (*http.Response, error) {
	c.logger.Debug("upstream request",
		"method", req.Method,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller
	duration := time.Since(start).Seconds()
	method := metrics.NormalizeMethod(req.Method)

	if err != nil {
		err = classify(err)
		if c.metrics != nil {
			c.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
			c.metrics.UpstreamErrors.WithLabelValues(Kind(err)).Inc()
		}
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if c.metrics != nil {
		status := strconv.Itoa(resp.StatusCode)
		c.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
		c.metrics.UpstreamResponses.WithLabelValues(method, status).Inc()
	}

	return resp, nil
}

// classify maps a transport error onto the package's sentinel errors while
// keeping the original error in the chain.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	// Transport timeouts such as ResponseHeaderTimeout also match
	// context.DeadlineExceeded; both mean the upstream was too slow.
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %w", ErrUpstreamUnreachable, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: %w", ErrUpstreamUnreachable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}

	return fmt.Errorf("%w: %w", ErrUpstreamProtocol, err)
}

// Kind returns a short label for an upstream error, used in logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrUpstreamUnreachable):
		return "unreachable"
	default:
		return "protocol"
	}
}
