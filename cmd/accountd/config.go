package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/notify"
)

// Config is the process configuration, read from the environment.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" env-default:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"15s"`

	DatabaseDSN     string        `env:"DATABASE_DSN" env-required:"true"`
	DBMaxOpenConns  int           `env:"DB_MAX_OPEN_CONNS" env-default:"20"`
	DBMaxIdleConns  int           `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	DBConnLifetime  time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`
	MigrateOnStart  bool          `env:"MIGRATE_ON_START" env-default:"true"`
	RedisAddr       string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB         int           `env:"REDIS_DB" env-default:"0"`
	TokenBackend    string        `env:"TOKEN_BACKEND" env-default:"identity"`
	ActivationTTL   time.Duration `env:"ACTIVATION_TTL" env-default:"24h"`
	ResetTTL        time.Duration `env:"RESET_TTL" env-default:"1h"`
	SessionTTL      time.Duration `env:"SESSION_TTL" env-default:"24h"`
	LoginIPThrottle bool          `env:"LOGIN_IP_THROTTLE" env-default:"false"`

	BaseURL  string `env:"BASE_URL" env-default:"http://localhost:8080"`
	MailFrom string `env:"MAIL_FROM" env-default:"no-reply@localhost"`

	// An empty SMTPHost logs messages instead of sending them.
	SMTPHost     string        `env:"SMTP_HOST" env-default:""`
	SMTPPort     int           `env:"SMTP_PORT" env-default:"587"`
	SMTPTLS      bool          `env:"SMTP_TLS" env-default:"true"`
	SMTPUsername string        `env:"SMTP_USERNAME" env-default:""`
	SMTPPassword string        `env:"SMTP_PASSWORD" env-default:""`
	SMTPTimeout  time.Duration `env:"SMTP_TIMEOUT" env-default:"10s"`

	CookieSigningKey string `env:"COOKIE_SIGNING_KEY" env-required:"true"`
	CookieSecure     bool   `env:"COOKIE_SECURE" env-default:"true"`
	CookieDomain     string `env:"COOKIE_DOMAIN" env-default:""`

	AuditLog bool `env:"AUDIT_LOG" env-default:"false"`

	// A positive OTelMetricsInterval prints OpenTelemetry metrics to stdout.
	OTelMetricsInterval time.Duration `env:"OTEL_METRICS_INTERVAL" env-default:"0s"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(cfg.CookieSigningKey) < 32 {
		return Config{}, errors.New("COOKIE_SIGNING_KEY must be at least 32 bytes")
	}
	return cfg, nil
}

// engineConfig maps the process settings onto the library defaults.
func (c Config) engineConfig() goAccount.Config {
	cfg := goAccount.DefaultConfig()
	cfg.Tokens.Backend = goAccount.TokenBackend(c.TokenBackend)
	cfg.Tokens.ActivationTTL = c.ActivationTTL
	cfg.Tokens.ResetTTL = c.ResetTTL
	cfg.Session.TTL = c.SessionTTL
	cfg.Security.EnableIPThrottle = c.LoginIPThrottle
	cfg.Notification.BaseURL = c.BaseURL
	cfg.Notification.From = c.MailFrom
	cfg.Audit.Enabled = c.AuditLog
	return cfg
}

func (c Config) smtpConfig() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		TLS:      c.SMTPTLS,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.MailFrom,
		Timeout:  c.SMTPTimeout,
	}
}
