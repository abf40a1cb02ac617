package ratelimit

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Limiter throttles per-user tool invocations. A nil Limiter (rate limiting
// disabled or Redis unavailable) allows everything; the credit gate is the
// real admission control, this only smooths abuse spikes.
type Limiter struct {
	bucket *TokenBucket
	log    *zap.Logger
	rate   float64
	burst  int
}

func NewLimiter(bucket *TokenBucket, log *zap.Logger, rate float64, burst int) *Limiter {
	if bucket == nil || rate <= 0 || burst <= 0 {
		return nil
	}
	return &Limiter{
		bucket: bucket,
		log:    log.Named("ratelimit"),
		rate:   rate,
		burst:  burst,
	}
}

// AllowTool is fail-open: a Redis error must not take tool invocation down
// with it.
func (l *Limiter) AllowTool(ctx context.Context, subjectID, tool string) *Result {
	if l == nil {
		return &Result{Allowed: true}
	}

	key := fmt.Sprintf("ratelimit:tool:%s:%s", subjectID, tool)
	res, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		l.log.Warn("rate limit check failed, allowing request",
			zap.String("tool", tool),
			zap.Error(err),
		)
		return &Result{Allowed: true}
	}
	return res
}
