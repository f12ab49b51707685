// Package service implements the core proxy forwarding logic.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"relay-proxy/internal/client"
	"relay-proxy/internal/config"
	"relay-proxy/internal/model"
)

// ErrInboundBody is returned when the caller's request body cannot be used.
var ErrInboundBody = errors.New("inbound request body unavailable")

// StreamResponse is an upstream response whose body has not been read yet.
// Status and header are final; Body must be closed by the caller.
type StreamResponse struct {
	StatusCode int
	Header     model.Header
	Body       *ChunkStream
}

// ProxyService relays requests to the fixed upstream in either mode.
type ProxyService struct {
	client    *client.UpstreamClient
	urls      *URLBuilder
	allowed   model.AllowList
	chunkSize int
	timeout   time.Duration
	logger    *slog.Logger
}

// NewProxyService creates a ProxyService.
func NewProxyService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) (*ProxyService, error) {
	urls, err := NewURLBuilder(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.Upstream.ChunkSizeBytes <= 0 {
		return nil, fmt.Errorf("upstream chunk size must be positive; got %d", cfg.Upstream.ChunkSizeBytes)
	}

	return &ProxyService{
		client:    c,
		urls:      urls,
		allowed:   model.NewAllowList(cfg.Upstream.ForwardHeaders...),
		chunkSize: cfg.Upstream.ChunkSizeBytes,
		timeout:   cfg.Upstream.Timeout(),
		logger:    logger.With("component", "proxy_service"),
	}, nil
}

// FilterHeaders keeps the entries of h whose lowercased name is allowed, in
// their original order and with values untouched.
func FilterHeaders(h model.Header, allowed model.AllowList) model.Header {
	return h.Keep(allowed)
}

// ForwardStream sends pr upstream with its body passed through unread and
// returns as soon as the upstream response headers arrive. Connection
// failures are returned before anything is relayed to the caller.
func (s *ProxyService) ForwardStream(pr *model.ProxyRequest) (*StreamResponse, error) {
	body, err := pr.Body.Stream()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInboundBody, err)
	}

	target := s.urls.Build(pr.Path, pr.RawQuery)
	s.logger.Debug("forwarding request",
		"mode", model.ModeStream,
		"method", pr.Method,
		"path", pr.Path,
	)

	resp, err := s.client.DoStream(pr.Ctx, pr.Method, target, FilterHeaders(pr.Header, s.allowed).HTTP(), body, pr.ContentLength)
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	return &StreamResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       newChunkStream(resp.Body, s.chunkSize),
	}, nil
}

// ForwardBuffered reads the inbound body into memory, sends it upstream and
// reads the whole upstream body before returning. Any failure along the way
// is returned as a single error; no partial response is produced.
func (s *ProxyService) ForwardBuffered(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	data, err := pr.Body.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInboundBody, err)
	}

	target := s.urls.Build(pr.Path, pr.RawQuery)
	s.logger.Debug("forwarding request",
		"mode", model.ModeBuffered,
		"method", pr.Method,
		"path", pr.Path,
		"request_bytes", len(data),
	)

	ctx := pr.Ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.client.DoStream(ctx, pr.Method, target, FilterHeaders(pr.Header, s.allowed).HTTP(), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Data:       out,
	}, nil
}

// Origin returns the upstream base URL requests are relayed to.
func (s *ProxyService) Origin() string {
	return s.urls.Origin()
}
