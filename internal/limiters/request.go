package limiters

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned when a request window is exhausted.
	ErrRateLimited = rate.ErrRateLimited
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = rate.ErrRedisUnavailable
)

// Config holds the thresholds of one request limiter.
type Config struct {
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	MaxAttempts              int
	Cooldown                 time.Duration
}

// RequestLimiter counts requests of one flow per identifier and per IP.
type RequestLimiter struct {
	window    *rate.Window
	config    Config
	namespace string
}

func newRequestLimiter(redisClient redis.UniversalClient, namespace string, cfg Config) *RequestLimiter {
	return &RequestLimiter{
		window:    rate.NewWindow(redisClient, cfg.MaxAttempts, cfg.Cooldown),
		config:    cfg,
		namespace: namespace,
	}
}

// NewPasswordResetLimiter throttles password-reset link requests.
func NewPasswordResetLimiter(redisClient redis.UniversalClient, cfg Config) *RequestLimiter {
	return newRequestLimiter(redisClient, "apr", cfg)
}

// NewActivationResendLimiter throttles activation-link resends.
func NewActivationResendLimiter(redisClient redis.UniversalClient, cfg Config) *RequestLimiter {
	return newRequestLimiter(redisClient, "aar", cfg)
}

// NewSignupLimiter throttles account creation.
func NewSignupLimiter(redisClient redis.UniversalClient, cfg Config) *RequestLimiter {
	return newRequestLimiter(redisClient, "aca", cfg)
}

// Enforce counts one request and returns ErrRateLimited when either the
// identifier or the IP window is exhausted.
func (l *RequestLimiter) Enforce(ctx context.Context, identifier, ip string) error {
	if l == nil {
		return nil
	}
	if l.config.EnableIdentifierThrottle && identifier != "" {
		if err := l.window.Hit(ctx, l.identifierKey(identifier)); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.window.Hit(ctx, l.ipKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// Cooldown returns the window length.
func (l *RequestLimiter) Cooldown() time.Duration {
	if l == nil {
		return 0
	}
	return l.config.Cooldown
}

func (l *RequestLimiter) identifierKey(identifier string) string {
	return l.namespace + "i:" + strings.ToLower(strings.TrimSpace(identifier))
}

func (l *RequestLimiter) ipKey(ip string) string {
	return l.namespace + "ip:" + ip
}
