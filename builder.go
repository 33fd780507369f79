package goAccount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/identity"
	"github.com/MrEthical07/goAccount/internal"
	"github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/internal/limiters"
	"github.com/MrEthical07/goAccount/internal/logging"
	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/internal/stores"
	"github.com/MrEthical07/goAccount/notify"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/session"
	"github.com/MrEthical07/goAccount/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     identity.Store
	notifier  notify.Sender
	templates map[notify.Kind]notify.Template
	logger    logging.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the client for sessions, throttles and, with the redis
// token backend, token slots.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithIdentityStore sets the durable user store.
func (b *Builder) WithIdentityStore(store IdentityStore) *Builder {
	b.store = store
	return b
}

// WithNotifier sets the email sender. Without one, messages are logged.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithTemplates overrides email templates per kind.
func (b *Builder) WithTemplates(set map[notify.Kind]notify.Template) *Builder {
	b.templates = set
	return b
}

func (b *Builder) WithLogger(l Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the audit destination. It only takes effect when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.store == nil {
		return nil, errors.New("identity store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = logging.Nop{}
	}
	notifier := b.notifier
	if notifier == nil {
		notifier = notify.NewLogSender(logger)
	}

	// -------- SECRET VERIFIER --------
	hasher, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.PasswordPolicy.MaxBytes,
	})
	if err != nil {
		return nil, err
	}

	policy := password.Policy{
		MinLength:      cfg.PasswordPolicy.MinLength,
		MaxBytes:       cfg.PasswordPolicy.MaxBytes,
		MinCharClasses: cfg.PasswordPolicy.MinCharClasses,
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	if cfg.Credentials.FallbackHash == "" {
		filler, _, err := internal.NewToken()
		if err != nil {
			return nil, fmt.Errorf("generate fallback secret: %w", err)
		}
		if cfg.Credentials.FallbackHash, err = hasher.Hash(filler); err != nil {
			return nil, fmt.Errorf("hash fallback secret: %w", err)
		}
	}
	// the fallback must cost as much as verifying a real hash
	weak, err := hasher.NeedsUpgrade(cfg.Credentials.FallbackHash)
	if err != nil {
		return nil, fmt.Errorf("Credentials FallbackHash: %w", err)
	}
	if weak {
		return nil, errors.New("Credentials FallbackHash uses weaker parameters than Password")
	}

	// -------- TOKENS --------
	var tokenStore identity.TokenStore = b.store
	if cfg.Tokens.Backend == TokenBackendRedis {
		tokenStore = stores.NewTokenSlotStore(b.redis, cfg.Tokens.RedisPrefix, map[identity.Purpose]time.Duration{
			identity.PurposeActivation: cfg.Tokens.ActivationTTL,
			identity.PurposeReset:      cfg.Tokens.ResetTTL,
		})
	}
	tokens, err := token.NewManager(tokenStore, token.Config{
		ActivationTTL: cfg.Tokens.ActivationTTL,
		ResetTTL:      cfg.Tokens.ResetTTL,
	})
	if err != nil {
		return nil, err
	}

	// -------- SESSIONS --------
	sessions, err := session.NewManager(session.NewStore(b.redis, cfg.Session.RedisPrefix), cfg.Session.TTL)
	if err != nil {
		return nil, err
	}

	// -------- TEMPLATES --------
	templates, err := notify.NewTemplates(b.templates)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cfg,
		store:     b.store,
		hasher:    hasher,
		policy:    policy,
		tokens:    tokens,
		sessions:  sessions,
		templates: templates,
		logger:    logger,
	}
	engine.notifier = notify.NewQueue(notifier, notify.QueueConfig{
		BufferSize:  cfg.Notification.QueueSize,
		Workers:     cfg.Notification.Workers,
		SendTimeout: cfg.Notification.SendTimeout,
		OnError: func(ctx context.Context, msg notify.Message, err error) {
			engine.metricInc(MetricNotificationFailure)
			logger.Warn(ctx, "mail not delivered", "kind", string(msg.Kind), "error", err)
		},
	})

	engine.rateLimiter = rate.New(b.redis, rate.Config{
		EnableIPThrottle:      cfg.Security.EnableIPThrottle,
		MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
		LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
	})
	engine.resetLimiter = limiters.NewPasswordResetLimiter(b.redis, limiters.Config{
		EnableIdentifierThrottle: cfg.PasswordReset.EnableIdentifierThrottle,
		EnableIPThrottle:         cfg.PasswordReset.EnableIPThrottle,
		MaxAttempts:              cfg.PasswordReset.MaxRequests,
		Cooldown:                 cfg.PasswordReset.RequestCooldown,
	})
	engine.resendLimiter = limiters.NewActivationResendLimiter(b.redis, limiters.Config{
		EnableIdentifierThrottle: cfg.Activation.EnableIdentifierThrottle,
		EnableIPThrottle:         cfg.Activation.EnableIPThrottle,
		MaxAttempts:              cfg.Activation.MaxResends,
		Cooldown:                 cfg.Activation.ResendCooldown,
	})
	engine.signupLimiter = limiters.NewSignupLimiter(b.redis, limiters.Config{
		EnableIPThrottle: cfg.Activation.EnableIPThrottle,
		MaxAttempts:      cfg.Activation.MaxSignupsPerIP,
		Cooldown:         cfg.Activation.SignupCooldown,
	})
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.flows = engine.flowDeps()

	b.built = true

	return engine, nil
}
