package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Policy is a fixed-window budget: at most Max hits per Window.
type Policy struct {
	Max    int
	Window time.Duration
}

// Enabled reports whether the policy limits anything.
func (p Policy) Enabled() bool {
	return p.Max > 0 && p.Window > 0
}

// Limiter enforces fixed-window counters in Redis. Keys are
// "<prefix>:<scope>:<subject>" with a TTL set on the first hit of a window.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a Limiter backed by redisClient.
func New(redisClient redis.UniversalClient, prefix string) *Limiter {
	if prefix == "" {
		prefix = "far"
	}
	return &Limiter{redis: redisClient, prefix: prefix}
}

func (l *Limiter) key(scope, subject string) string {
	return l.prefix + ":" + scope + ":" + strings.ToLower(subject)
}

// Check returns ErrRateLimited when subject has used up its budget in the
// current window. It does not count as a hit.
func (l *Limiter) Check(ctx context.Context, scope, subject string, policy Policy) error {
	if !policy.Enabled() || subject == "" {
		return nil
	}

	count, err := l.redis.Get(ctx, l.key(scope, subject)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(policy.Max) {
		return ErrRateLimited
	}
	return nil
}

// Hit counts one event for subject and returns ErrRateLimited once the
// budget is exceeded.
func (l *Limiter) Hit(ctx context.Context, scope, subject string, policy Policy) error {
	if !policy.Enabled() || subject == "" {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.key(scope, subject), policy.Window)
	if err != nil {
		return err
	}
	if count > int64(policy.Max) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter for subject.
func (l *Limiter) Reset(ctx context.Context, scope, subject string) error {
	if subject == "" {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(scope, subject)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Count returns the hits recorded for subject in the current window.
func (l *Limiter) Count(ctx context.Context, scope, subject string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(scope, subject)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the TTL is set only by the first hit.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}
