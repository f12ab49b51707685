package service

import (
	"errors"
	"io"
	"iter"
	"sync/atomic"
)

// ErrStreamConsumed is yielded when a ChunkStream is iterated a second time.
var ErrStreamConsumed = errors.New("chunk stream already consumed")

// ChunkStream exposes a live upstream body as a finite sequence of chunks of
// at most size bytes. It can be iterated once.
type ChunkStream struct {
	body    io.ReadCloser
	size    int
	started atomic.Bool
}

func newChunkStream(body io.ReadCloser, size int) *ChunkStream {
	return &ChunkStream{body: body, size: size}
}

// All yields chunks in upstream order as they are read. The yielded slice is
// only valid until the next iteration step. A read error other than io.EOF is
// yielded once with a nil chunk and ends the sequence; a clean end yields
// nothing further.
func (s *ChunkStream) All() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if !s.started.CompareAndSwap(false, true) {
			yield(nil, ErrStreamConsumed)
			return
		}

		buf := make([]byte, s.size)
		for {
			n, err := s.body.Read(buf)
			if n > 0 && !yield(buf[:n], nil) {
				return
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// Close releases the upstream connection. It is safe to call before, during
// or after iteration.
func (s *ChunkStream) Close() error {
	return s.body.Close()
}
