package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// idleBody wraps an upstream response body. A Read that waits longer than the
// idle timeout for data cancels the request. Time spent between reads (the
// caller being slow to consume) does not count.
type idleBody struct {
	rc      io.ReadCloser
	ctx     context.Context
	cancel  context.CancelCauseFunc
	timer   *time.Timer
	timeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func newIdleBody(ctx context.Context, rc io.ReadCloser, timeout time.Duration, cancel context.CancelCauseFunc) *idleBody {
	b := &idleBody{rc: rc, ctx: ctx, cancel: cancel, timeout: timeout}
	if timeout > 0 {
		b.timer = time.AfterFunc(timeout, func() {
			cancel(fmt.Errorf("%w: no data for %s", ErrUpstreamTimeout, timeout))
		})
		b.timer.Stop()
	}
	return b
}

func (b *idleBody) Read(p []byte) (int, error) {
	if b.timer != nil {
		b.timer.Reset(b.timeout)
	}
	n, err := b.rc.Read(p)
	if b.timer != nil {
		b.timer.Stop()
	}

	if err == nil || errors.Is(err, io.EOF) {
		return n, err
	}
	if cause := context.Cause(b.ctx); errors.Is(cause, ErrUpstreamTimeout) {
		return n, cause
	}
	return n, classify(err)
}

// Close releases the upstream connection. Safe to call more than once.
func (b *idleBody) Close() error {
	b.closeOnce.Do(func() {
		if b.timer != nil {
			b.timer.Stop()
		}
		b.closeErr = b.rc.Close()
		b.cancel(nil)
	})
	return b.closeErr
}
