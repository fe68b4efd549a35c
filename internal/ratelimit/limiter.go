package ratelimit

import (
	"context"
	"errors"
)

// ErrThrottled means no send slot opened within the limiter's wait bound.
var ErrThrottled = errors.New("send throttled")

// RateLimiter throttles outbound email per transport ("smtp", "relay").
// Wait blocks until a send slot is free, ctx is done, or the limiter gives
// up with ErrThrottled.
type RateLimiter interface {
	Allow(ctx context.Context, transport string) (bool, error)
	Wait(ctx context.Context, transport string) error
}
