package translate

import (
	"context"
	"errors"

	"github.com/MrWong99/ocrlite/internal/resilience"
)

var errFailedResult = errors.New("translate: failed result")

// breakerProvider guards a Provider with a circuit breaker.
type breakerProvider struct {
	inner Provider
	cb    *resilience.CircuitBreaker
}

// WithBreaker wraps p so that failed results count against cb. While cb is
// open, calls return a failed [Result] with the input as fallback without
// reaching p. Cancellation is passed through and not counted as a failure.
func WithBreaker(p Provider, cb *resilience.CircuitBreaker) Provider {
	return &breakerProvider{inner: p, cb: cb}
}

// Name implements [Provider].
func (b *breakerProvider) Name() string {
	return b.inner.Name()
}

// Translate implements [Provider].
func (b *breakerProvider) Translate(ctx context.Context, text string) (Result, error) {
	if Blank(text) {
		return Success(""), nil
	}

	var (
		res    Result
		ctxErr error
	)
	err := b.cb.Execute(func() error {
		res, ctxErr = b.inner.Translate(ctx, text)
		if ctxErr == nil && res.IsError {
			return errFailedResult
		}
		return nil
	})
	if ctxErr != nil {
		return Result{}, ctxErr
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return Fail(ctx, text, "%s unavailable: %v", b.inner.Name(), err)
	}
	return res, nil
}
