package rate

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds login throttle parameters.
type Config struct {
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// Limiter throttles failed logins per username and, optionally, per IP.
type Limiter struct {
	window *Window
	config Config
}

// New creates a login Limiter backed by redisClient.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		window: NewWindow(redisClient, cfg.MaxLoginAttempts, cfg.LoginCooldownDuration),
		config: cfg,
	}
}

// CheckLogin reports ErrRateLimited when the username or IP has used up its
// failure budget. It does not count the attempt.
func (l *Limiter) CheckLogin(ctx context.Context, username, ip string) error {
	if err := l.window.Check(ctx, loginUserKey(username)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.window.Check(ctx, loginIPKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// IncrementLogin records a failed login.
func (l *Limiter) IncrementLogin(ctx context.Context, username, ip string) error {
	if err := l.window.Hit(ctx, loginUserKey(username)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.window.Hit(ctx, loginIPKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// ResetLogin clears the username counter after a successful login. The IP
// counter is left alone so one good account cannot launder a sprayed IP.
func (l *Limiter) ResetLogin(ctx context.Context, username string) error {
	return l.window.Reset(ctx, loginUserKey(username))
}

// LoginAttempts returns the failures recorded for username.
func (l *Limiter) LoginAttempts(ctx context.Context, username string) (int, error) {
	return l.window.Count(ctx, loginUserKey(username))
}

func loginUserKey(username string) string {
	return "al:" + username
}

func loginIPKey(ip string) string {
	return "ali:" + ip
}
