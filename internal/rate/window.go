package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Window is a fixed-window counter shared by every key it is asked about.
type Window struct {
	redis  redis.UniversalClient
	limit  int
	period time.Duration
}

// NewWindow allows limit hits per key in each period.
func NewWindow(redisClient redis.UniversalClient, limit int, period time.Duration) *Window {
	return &Window{redis: redisClient, limit: limit, period: period}
}

// Hit counts one event for key and returns ErrRateLimited once the count
// passes the limit.
func (w *Window) Hit(ctx context.Context, key string) error {
	count, err := w.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 {
		if err := w.redis.Expire(ctx, key, w.period).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count > int64(w.limit) {
		return ErrRateLimited
	}
	return nil
}

// Check returns ErrRateLimited when key already reached the limit, without
// counting.
func (w *Window) Check(ctx context.Context, key string) error {
	count, err := w.Count(ctx, key)
	if err != nil {
		return err
	}
	if count >= w.limit {
		return ErrRateLimited
	}
	return nil
}

// Count returns the hits recorded for key in the current window.
func (w *Window) Count(ctx context.Context, key string) (int, error) {
	count, err := w.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// Reset clears keys.
func (w *Window) Reset(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := w.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
