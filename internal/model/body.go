package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrBodyConsumed is returned when a body stream that was already handed off
// is requested again.
var ErrBodyConsumed = errors.New("request body already consumed")

type bodyState int

const (
	bodyUnconsumed   bodyState = iota // live stream, not read yet
	bodyMaterialized                  // fully read into data; replayable
	bodyHandedOff                     // stream given away; unusable
)

// Body is an inbound request body that can be read at most once. It is either
// passed through as a live stream or materialized into memory, never both.
type Body struct {
	mu     sync.Mutex
	state  bodyState
	stream io.ReadCloser
	data   []byte
}

// NewStreamBody wraps a not-yet-read stream. A nil stream is an empty body.
func NewStreamBody(rc io.ReadCloser) *Body {
	if rc == nil {
		return NewBufferedBody(nil)
	}
	return &Body{state: bodyUnconsumed, stream: rc}
}

// NewBufferedBody wraps bytes that are already in memory.
func NewBufferedBody(data []byte) *Body {
	return &Body{state: bodyMaterialized, data: data}
}

// Stream hands the live stream to the caller, who becomes responsible for
// closing it. A materialized body returns a fresh reader over its bytes.
func (b *Body) Stream() (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case bodyUnconsumed:
		b.state = bodyHandedOff
		rc := b.stream
		b.stream = nil
		return rc, nil
	case bodyMaterialized:
		return io.NopCloser(bytes.NewReader(b.data)), nil
	default:
		return nil, ErrBodyConsumed
	}
}

// Bytes materializes the body on first call and returns the same bytes on
// every later call.
func (b *Body) Bytes() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case bodyMaterialized:
		return b.data, nil
	case bodyUnconsumed:
		data, err := io.ReadAll(b.stream)
		_ = b.stream.Close()
		b.stream = nil
		if err != nil {
			b.state = bodyHandedOff
			return nil, fmt.Errorf("read body: %w", err)
		}
		b.state = bodyMaterialized
		b.data = data
		return data, nil
	default:
		return nil, ErrBodyConsumed
	}
}

// Materialized reports whether the body is held in memory.
func (b *Body) Materialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == bodyMaterialized
}
