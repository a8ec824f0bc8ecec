package worker

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles calls to the judgment engine. Local inference servers
// are effectively single-consumer, so the pool's parallelism is additionally
// bounded by a shared request rate.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates an engine call limiter. A non-positive rate disables
// throttling.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if requestsPerSecond <= 0 {
		return &Limiter{}
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until the next engine call is allowed or ctx is done
func (l *Limiter) Wait(ctx context.Context) error {
	if l.limiter == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}
