package goAccount

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines every tunable of the Engine.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	Password       PasswordConfig
	PasswordPolicy PasswordPolicyConfig
	Credentials    CredentialsConfig
	Tokens         TokenConfig
	Session        SessionConfig
	Security       SecurityConfig
	PasswordReset  PasswordResetConfig
	Activation     ActivationConfig
	Notification   NotificationConfig
	Audit          AuditConfig
	Metrics        MetricsConfig
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id cost parameters.
type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

// PasswordPolicyConfig is the strength policy for new passwords.
type PasswordPolicyConfig struct {
	MinLength      int
	MaxBytes       int
	MinCharClasses int
}

// CredentialsConfig controls the credential validator.
type CredentialsConfig struct {
	// FallbackHash is verified against for unknown usernames. Build generates
	// one with the current parameters when empty.
	FallbackHash string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenBackend selects where activation and reset token slots live.
type TokenBackend string

const (
	// TokenBackendIdentity keeps token slots in the identity store.
	TokenBackendIdentity TokenBackend = "identity"
	// TokenBackendRedis keeps token slots in Redis, expiring with their TTL.
	TokenBackendRedis TokenBackend = "redis"
)

// TokenConfig controls activation and reset tokens.
type TokenConfig struct {
	ActivationTTL time.Duration
	ResetTTL      time.Duration
	Backend       TokenBackend
	RedisPrefix   string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls server-side sessions.
type SessionConfig struct {
	RedisPrefix string
	TTL         time.Duration
}

/*
====================================
THROTTLING CONFIG
====================================
*/

// SecurityConfig controls the login throttle.
type SecurityConfig struct {
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	EnableIPThrottle      bool
}

// PasswordResetConfig controls reset requests.
type PasswordResetConfig struct {
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	MaxRequests              int
	RequestCooldown          time.Duration
	// EnumerationDelayMin and EnumerationDelayMax bound the random delay
	// applied when no account owns the address.
	EnumerationDelayMin time.Duration
	EnumerationDelayMax time.Duration
	// InvalidateSessions destroys every session of the user after a reset.
	InvalidateSessions bool
}

// ActivationConfig controls signup and activation resend throttles.
type ActivationConfig struct {
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	MaxResends               int
	ResendCooldown           time.Duration
	MaxSignupsPerIP          int
	SignupCooldown           time.Duration
}

/*
====================================
NOTIFICATION CONFIG
====================================
*/

// NotificationConfig builds the links mailed to users.
type NotificationConfig struct {
	BaseURL        string
	From           string
	ActivationPath string
	ResetPath      string

	// QueueSize bounds messages waiting for delivery. A full queue drops
	// the message and counts a notification failure.
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

/*
====================================
AUDIT AND METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a production-leaning configuration.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		PasswordPolicy: PasswordPolicyConfig{
			MinLength:      8,
			MaxBytes:       128,
			MinCharClasses: 3,
		},
		Tokens: TokenConfig{
			ActivationTTL: 24 * time.Hour,
			ResetTTL:      time.Hour,
			Backend:       TokenBackendIdentity,
			RedisPrefix:   "atk",
		},
		Session: SessionConfig{
			RedisPrefix: "as",
			TTL:         24 * time.Hour,
		},
		Security: SecurityConfig{
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			EnableIPThrottle:      false,
		},
		PasswordReset: PasswordResetConfig{
			EnableIdentifierThrottle: true,
			EnableIPThrottle:         true,
			MaxRequests:              5,
			RequestCooldown:          15 * time.Minute,
			EnumerationDelayMin:      20 * time.Millisecond,
			EnumerationDelayMax:      40 * time.Millisecond,
			InvalidateSessions:       true,
		},
		Activation: ActivationConfig{
			EnableIdentifierThrottle: true,
			EnableIPThrottle:         true,
			MaxResends:               5,
			ResendCooldown:           15 * time.Minute,
			MaxSignupsPerIP:          20,
			SignupCooldown:           time.Hour,
		},
		Notification: NotificationConfig{
			BaseURL:        "http://localhost:8080",
			From:           "no-reply@localhost",
			ActivationPath: "/api/v1/auth/signup/activate",
			ResetPath:      "/change_password",
			QueueSize:      256,
			Workers:        2,
			SendTimeout:    30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	if c.PasswordPolicy.MinLength < 1 {
		return errors.New("PasswordPolicy MinLength must be >= 1")
	}
	if c.PasswordPolicy.MaxBytes < c.PasswordPolicy.MinLength {
		return errors.New("PasswordPolicy MaxBytes must be >= MinLength")
	}

	if c.Tokens.ActivationTTL <= 0 || c.Tokens.ResetTTL <= 0 {
		return errors.New("Tokens ActivationTTL and ResetTTL must be > 0")
	}
	switch c.Tokens.Backend {
	case TokenBackendIdentity, TokenBackendRedis:
	default:
		return errors.New("Tokens Backend must be identity or redis")
	}
	if c.Tokens.Backend == TokenBackendRedis && strings.TrimSpace(c.Tokens.RedisPrefix) == "" {
		return errors.New("Tokens RedisPrefix required for the redis backend")
	}

	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Tokens.Backend == TokenBackendRedis && c.Tokens.RedisPrefix == c.Session.RedisPrefix {
		return errors.New("Tokens RedisPrefix must differ from Session RedisPrefix")
	}

	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("Security MaxLoginAttempts must be > 0")
	}
	if c.Security.LoginCooldownDuration <= 0 {
		return errors.New("Security LoginCooldownDuration must be > 0")
	}

	if c.PasswordReset.MaxRequests <= 0 || c.PasswordReset.RequestCooldown <= 0 {
		return errors.New("PasswordReset MaxRequests and RequestCooldown must be > 0")
	}
	if c.PasswordReset.EnumerationDelayMin < 0 || c.PasswordReset.EnumerationDelayMax < c.PasswordReset.EnumerationDelayMin {
		return errors.New("PasswordReset enumeration delay range is invalid")
	}

	if c.Activation.MaxResends <= 0 || c.Activation.ResendCooldown <= 0 {
		return errors.New("Activation MaxResends and ResendCooldown must be > 0")
	}
	if c.Activation.MaxSignupsPerIP <= 0 || c.Activation.SignupCooldown <= 0 {
		return errors.New("Activation MaxSignupsPerIP and SignupCooldown must be > 0")
	}

	base, err := url.Parse(c.Notification.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return errors.New("Notification BaseURL must be an absolute URL")
	}
	if !strings.HasPrefix(c.Notification.ActivationPath, "/") || !strings.HasPrefix(c.Notification.ResetPath, "/") {
		return errors.New("Notification link paths must start with /")
	}

	if c.Notification.QueueSize <= 0 || c.Notification.Workers <= 0 || c.Notification.SendTimeout <= 0 {
		return errors.New("Notification QueueSize, Workers and SendTimeout must be > 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
