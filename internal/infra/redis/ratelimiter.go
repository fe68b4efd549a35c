package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/housing-engine/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultSendsPerSec int64 = 10
	throttleKeyPrefix        = "email-throttle"
	windowSeconds            = 1
	backoffStep              = 20 * time.Millisecond
	backoffMax               = 100 * time.Millisecond

	// defaultMaxWait bounds how long one send queues behind the throttle
	// before it is reported as a failed send.
	defaultMaxWait = 2 * time.Second
)

// allowScript counts sends in the current one-second window and reports
// whether this one fits under the limit.
var allowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.RateLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter is a fixed-window send throttle shared by every api and
// worker process talking to the same mail server. Windows are keyed by
// transport and wall-clock second.
type RedisRateLimiter struct {
	client      *goredis.Client
	sendsPerSec int64
	maxWait     time.Duration
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewRedisRateLimiter(client *goredis.Client, sendsPerSec int) (*RedisRateLimiter, error) {
	return newRedisRateLimiter(client, int64(sendsPerSec), time.Now, sleepWithContext)
}

func newRedisRateLimiter(
	client *goredis.Client,
	sendsPerSec int64,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if sendsPerSec <= 0 {
		sendsPerSec = defaultSendsPerSec
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &RedisRateLimiter{
		client:      client,
		sendsPerSec: sendsPerSec,
		maxWait:     defaultMaxWait,
		now:         nowFn,
		sleep:       sleepFn,
	}, nil
}

func (r *RedisRateLimiter) Allow(ctx context.Context, transport string) (bool, error) {
	if r == nil || r.client == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}

	name := strings.ToLower(strings.TrimSpace(transport))
	if name == "" {
		return false, fmt.Errorf("transport name is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key := throttleKey(name, r.now())
	allowed, err := allowScript.Run(ctx, r.client, []string{key}, r.sendsPerSec, windowSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate send throttle: %w", err)
	}

	return allowed == 1, nil
}

func (r *RedisRateLimiter) Wait(ctx context.Context, transport string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	backoff := backoffStep
	var waited time.Duration
	for {
		allowed, err := r.Allow(ctx, transport)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}
		if waited >= r.maxWait {
			return fmt.Errorf("%w: %s over %d sends/s for %v", ratelimit.ErrThrottled, transport, r.sendsPerSec, waited)
		}

		if err := r.sleep(ctx, backoff); err != nil {
			return err
		}
		waited += backoff

		backoff = min(backoff+backoffStep, backoffMax)
	}
}

func throttleKey(transport string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%d", throttleKeyPrefix, transport, now.UTC().Unix())
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
