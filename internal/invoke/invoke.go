// Package invoke runs a single blocking operation under a deadline.
package invoke

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
	logger "github.com/sirupsen/logrus"

	"gitingest-mcp/server/internal/apperr"
)

type outcome[T any] struct {
	value T
	err   error
}

// Do runs op in its own goroutine and waits at most timeout for it.
//
// op receives a context that is cancelled when the deadline passes or the
// parent is cancelled; that is its signal to stop. Do does not wait for op to
// observe it. A deadline, its own or the parent's, yields an apperr Timeout.
// Anything op returns or panics with yields an apperr OperationFailed, as does
// cancellation of the parent. A non-positive timeout means no deadline beyond
// the parent's.
func Do[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	var zero T

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	// Buffered so an abandoned worker can still deliver and exit.
	done := make(chan outcome[T], 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.WithField("panic", r).Errorf("invoke: operation panicked\n%s", debug.Stack())
				done <- outcome[T]{err: apperr.OperationFailed(fmt.Errorf("operation panicked: %v", r))}
			}
		}()
		v, err := op(runCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				return zero, timeoutError(ctx, timeout)
			}
			return zero, apperr.OperationFailed(out.err)
		}
		return out.value, nil
	case <-runCtx.Done():
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			logger.WithField("timeout", timeout.String()).Warn("invoke: abandoning operation after deadline")
			return zero, timeoutError(ctx, timeout)
		}
		return zero, apperr.OperationFailed(errors.Wrap(ctx.Err(), "operation cancelled"))
	}
}

// timeoutError names the timeout that expired. When only the parent's
// deadline applied there is no duration to report.
func timeoutError(parent context.Context, timeout time.Duration) error {
	if timeout > 0 && parent.Err() == nil {
		return apperr.Timeout("operation timed out after %s", timeout)
	}
	return apperr.Timeout("operation timed out: deadline exceeded")
}
