// Package model defines shared types for the proxy.
package model

import (
	"context"
	"io"
)

// Mode selects how a request is relayed.
type Mode string

const (
	// ModeStream pipes bodies through in bounded chunks.
	ModeStream Mode = "stream"
	// ModeBuffered reads both bodies fully into memory.
	ModeBuffered Mode = "buffered"
)

// ProxyRequest represents a client request to be forwarded upstream.
type ProxyRequest struct {
	Ctx      context.Context
	Method   string
	Path     string // captured remainder after the route prefix, no leading slash
	RawQuery string // caller's query exactly as received
	Header   Header
	Body     *Body

	// ContentLength is the declared inbound body length, or -1 when unknown.
	ContentLength int64
}

// ProxyResponse is the upstream response relayed to the caller. Exactly one
// of Body and Data is set, depending on the mode that produced it.
type ProxyResponse struct {
	StatusCode int
	Header     Header
	Body       io.ReadCloser // streaming mode; caller must close
	Data       []byte        // buffered mode
}
