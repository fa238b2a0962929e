package aa

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter serializes wire-service requests with a minimum interval between
// them. It is an explicit value owned by the client so tests can substitute
// an unthrottled one.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter builds a limiter that admits one request per minInterval.
// A non-positive interval disables throttling.
func NewLimiter(minInterval time.Duration) *Limiter {
	if minInterval <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait blocks until the next request slot opens or the context ends.
// Callers are delayed, never dropped.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
