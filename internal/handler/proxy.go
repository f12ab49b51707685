package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"relay-proxy/internal/client"
	"relay-proxy/internal/config"
	"relay-proxy/internal/metrics"
	"relay-proxy/internal/middleware"
	"relay-proxy/internal/model"
	"relay-proxy/internal/service"
)

// queryPattern matches query strings of URLs embedded in error messages.
var queryPattern = regexp.MustCompile(`\?[^\s"]+`)

// ProxyHandler relays requests under the two route prefixes to the upstream.
type ProxyHandler struct {
	service        *service.ProxyService
	metrics        *metrics.Metrics
	logger         *slog.Logger
	streamPrefix   string
	bufferedPrefix string
}

// NewProxyHandler creates a ProxyHandler. The metrics parameter may be nil.
func NewProxyHandler(svc *service.ProxyService, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service:        svc,
		metrics:        m,
		logger:         logger.With("component", "proxy_handler"),
		streamPrefix:   cfg.Routes.StreamPrefix,
		bufferedPrefix: cfg.Routes.BufferedPrefix,
	}
}

// Stream relays the request with both bodies piped through in bounded chunks.
// The upstream status and headers are sent before the first chunk.
func (h *ProxyHandler) Stream(c echo.Context) error {
	// Allow the request body to keep flowing upstream after the response
	// has started. Not every ResponseWriter supports it.
	_ = http.NewResponseController(c.Response().Writer).EnableFullDuplex()
	c.Set(middleware.ModeKey, string(model.ModeStream))

	resp, err := h.service.ForwardStream(h.proxyRequest(c, h.streamPrefix))
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	h.writeHeader(c, resp.StatusCode, resp.Header)

	// Once the status line is out, a failure can only cut the body short.
	// Truncation is logged and counted, not masked.
	var written int64
	for chunk, err := range resp.Body.All() {
		if err != nil {
			h.streamEnded(c, err)
			break
		}
		n, werr := c.Response().Write(chunk)
		written += int64(n)
		if werr != nil {
			h.logger.Debug("caller disconnected mid-stream",
				"err", werr,
				"path", c.Request().URL.Path,
				"bytes", written,
			)
			break
		}
		c.Response().Flush()
		if h.metrics != nil {
			h.metrics.StreamChunks.Inc()
		}
	}

	if h.metrics != nil {
		h.metrics.RelayedBytes.WithLabelValues(string(model.ModeStream)).Add(float64(written))
	}
	return nil
}

// Buffered relays the request after reading both bodies fully into memory.
func (h *ProxyHandler) Buffered(c echo.Context) error {
	c.Set(middleware.ModeKey, string(model.ModeBuffered))
	resp, err := h.service.ForwardBuffered(h.proxyRequest(c, h.bufferedPrefix))
	if err != nil {
		return h.mapError(c, err)
	}

	h.writeHeader(c, resp.StatusCode, resp.Header)
	n, err := c.Response().Write(resp.Data)
	if err != nil {
		h.logger.Debug("writing buffered response",
			"err", err,
			"path", c.Request().URL.Path,
		)
	}

	if h.metrics != nil {
		h.metrics.RelayedBytes.WithLabelValues(string(model.ModeBuffered)).Add(float64(n))
	}
	return nil
}

func (h *ProxyHandler) proxyRequest(c echo.Context, prefix string) *model.ProxyRequest {
	req := c.Request()
	return &model.ProxyRequest{
		Ctx:           req.Context(),
		Method:        req.Method,
		Path:          capturePath(req, prefix),
		RawQuery:      req.URL.RawQuery,
		Header:        model.HeaderFromHTTP(req.Header),
		Body:          model.NewStreamBody(req.Body),
		ContentLength: req.ContentLength,
	}
}

// capturePath returns the escaped path after "<prefix>/", so percent-encoded
// bytes reach the upstream exactly as the caller sent them.
func capturePath(req *http.Request, prefix string) string {
	p := req.URL.EscapedPath()
	if rest, ok := strings.CutPrefix(p, prefix+"/"); ok {
		return rest
	}
	return ""
}

// writeHeader replaces whatever the framework put on the response with the
// upstream's header set and status.
func (h *ProxyHandler) writeHeader(c echo.Context, status int, header model.Header) {
	dst := c.Response().Header()
	for k := range dst {
		delete(dst, k)
	}
	for _, f := range header.Fields() {
		dst.Add(f.Name, f.Value)
	}
	c.Response().WriteHeader(status)
}

func (h *ProxyHandler) streamEnded(c echo.Context, err error) {
	if errors.Is(err, context.Canceled) {
		h.logger.Debug("stream canceled",
			"path", c.Request().URL.Path,
		)
		return
	}
	if h.metrics != nil {
		h.metrics.StreamTruncations.Inc()
	}
	h.logger.Error("upstream body ended early; response truncated",
		"err", sanitizeError(err),
		"kind", client.Kind(err),
		"path", c.Request().URL.Path,
	)
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	if errors.Is(err, context.Canceled) {
		h.logger.Debug("caller disconnected before upstream responded",
			"path", c.Request().URL.Path,
		)
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	h.logger.Error("proxy error",
		"err", sanitizeError(err),
		"kind", client.Kind(err),
		"path", c.Request().URL.Path,
	)

	if errors.Is(err, service.ErrInboundBody) {
		var maxErr *http.MaxBytesError
		var he *echo.HTTPError
		if errors.As(err, &maxErr) || (errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge) {
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
				"error": "request body too large",
			})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "could not read request body",
		})
	}
	if errors.Is(err, client.ErrUpstreamTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "upstream request timed out",
		})
	}
	if errors.Is(err, client.ErrUpstreamUnreachable) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream unreachable",
		})
	}
	if errors.Is(err, client.ErrUpstreamProtocol) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream protocol error",
		})
	}
	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "upstream request failed",
	})
}

// sanitizeError redacts query strings from URLs in error messages; callers
// may put credentials there.
func sanitizeError(err error) string {
	return queryPattern.ReplaceAllString(err.Error(), "?[REDACTED]")
}
