package uniqueness

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/goliatone/go-formflow/pkg/validation"
)

// RateLimited throttles calls to the wrapped checker.
type RateLimited struct {
	next    validation.Checker
	limiter *rate.Limiter
}

// NewRateLimited allows perSecond checks per second with the given burst.
func NewRateLimited(next validation.Checker, perSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Check waits for a token and delegates.
func (r *RateLimited) Check(ctx context.Context, value string) (bool, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("uniqueness: rate limit: %w", err)
	}
	return r.next.Check(ctx, value)
}
