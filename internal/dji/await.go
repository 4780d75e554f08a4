package dji

import (
	"context"
	"errors"
)

// Await issues call and blocks until its completion callback runs or ctx is
// done. A callback arriving after ctx is done is discarded. On ctx
// expiry the result is ErrTimeout for a deadline and ctx.Err() otherwise.
func Await(ctx context.Context, call func(done CompletionFunc)) error {
	result := make(chan error, 1)
	call(func(err error) {
		select {
		case result <- err:
		default:
		}
	})

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ContextError(ctx)
	}
}

// ContextError maps a finished context to ErrTimeout when its deadline
// passed, or to the context's own error.
func ContextError(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
