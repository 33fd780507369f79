package goAccount

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/identity"
	"github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/internal/flows"
	"github.com/MrEthical07/goAccount/internal/limiters"
	"github.com/MrEthical07/goAccount/internal/logging"
	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/internal/validate"
	"github.com/MrEthical07/goAccount/notify"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/session"
	"github.com/MrEthical07/goAccount/token"
)

// Engine runs login, signup, activation and password reset.
//
// Engine instances are built by [Builder.Build] and treated as immutable
// afterwards; every method is safe for concurrent use.
type Engine struct {
	config Config

	store     identity.Store
	hasher    *password.Argon2
	policy    password.Policy
	tokens    *token.Manager
	sessions  *session.Manager
	notifier  *notify.Queue
	templates *notify.Templates
	logger    logging.Logger

	rateLimiter   *rate.Limiter
	resetLimiter  *limiters.RequestLimiter
	resendLimiter *limiters.RequestLimiter
	signupLimiter *limiters.RequestLimiter

	audit   *audit.Dispatcher
	metrics *Metrics
	flows   flows.Deps
}

// Close delivers queued mail, then stops the audit dispatcher after
// draining it.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.notifier.Close()
	e.audit.Close()
}

// FlushNotifications blocks until queued activation and reset mails have
// been handed to the sender.
func (e *Engine) FlushNotifications() {
	if e == nil {
		return
	}
	e.notifier.Flush()
}

// AuditDropped reports audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the current metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// SessionTTL is the lifetime of issued sessions, for cookie expiry.
func (e *Engine) SessionTTL() time.Duration {
	if e == nil || e.sessions == nil {
		return 0
	}
	return e.sessions.TTL()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.sessions != nil && e.tokens != nil
}

// ValidateCredentials returns the user id for a correct username and password
// on an active account. It has no side effects beyond the store read.
//
// Errors: ErrInvalidCredentials, ErrInactiveAccount, ErrUnexpected.
func (e *Engine) ValidateCredentials(ctx context.Context, username, password string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	user, err := flows.RunValidateCredentials(ctx, username, password, e.flows.Credentials)
	if err != nil {
		return "", err
	}
	return user.UserID, nil
}

// Login validates credentials and binds the user to a session. The current
// session identifier is rotated; the returned one replaces it. An empty or
// stale currentSessionID yields a fresh session.
//
// Errors: ErrInvalidInput, ErrRateLimited, ErrInvalidCredentials,
// ErrInactiveAccount, ErrUnexpected.
func (e *Engine) Login(ctx context.Context, currentSessionID, username, password string) (sessionID, userID string, err error) {
	if !e.ready() {
		return "", "", ErrEngineNotReady
	}
	result, err := flows.RunLogin(ctx, currentSessionID, username, password, e.flows.Login)
	if err != nil {
		return "", "", err
	}
	return result.SessionID, result.UserID, nil
}

// Logout destroys sessionID. It is idempotent.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunLogout(ctx, sessionID, e.flows.Session)
}

// CurrentUser returns the user bound to sessionID. ok is false for unknown,
// expired and anonymous sessions. Reading does not extend the session.
func (e *Engine) CurrentUser(ctx context.Context, sessionID string) (userID string, ok bool, err error) {
	if !e.ready() {
		return "", false, ErrEngineNotReady
	}
	return flows.RunCurrentUser(ctx, sessionID, e.flows.Session)
}

func (e *Engine) flowDeps() flows.Deps {
	credentials := e.credentialDeps()
	return flows.Deps{
		Credentials:   credentials,
		Login:         e.loginDeps(credentials),
		Session:       e.sessionDeps(),
		Activation:    e.activationDeps(),
		PasswordReset: e.passwordResetDeps(),
	}
}

func (e *Engine) credentialDeps() flows.CredentialDeps {
	return flows.CredentialDeps{
		FallbackHash: e.config.Credentials.FallbackHash,
		GetUserByUsername: func(ctx context.Context, username string) (flows.User, error) {
			user, err := e.store.FindUserByUsername(ctx, username)
			if err != nil {
				return flows.User{}, err
			}
			return toFlowUser(user), nil
		},
		IsUserNotFound: isNotFound,
		VerifyPassword: e.hasher.Verify,
		Logger:         e.logger,
		Errors: flows.CredentialErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			InactiveAccount:    ErrInactiveAccount,
			Unexpected:         ErrUnexpected,
		},
	}
}

func (e *Engine) loginDeps(credentials flows.CredentialDeps) flows.LoginDeps {
	return flows.LoginDeps{
		Credentials:    credentials,
		UpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		ValidateInput: func(username, password string) error {
			return validate.Login{Username: username, Password: password}.Validate()
		},
		ClientIPFromContext: clientIPFromContext,
		CheckLimiter:        e.rateLimiter.CheckLogin,
		RecordFailure:       e.rateLimiter.IncrementLogin,
		ResetLimiter:        e.rateLimiter.ResetLogin,
		IsRateLimited:       isRateLimited,
		NeedsUpgrade:        e.hasher.NeedsUpgrade,
		HashPassword:        e.hasher.Hash,
		UpdatePasswordHash:  e.store.UpdatePasswordHash,
		RenewAndBind: func(ctx context.Context, sessionID, userID string) (string, error) {
			sess, err := e.sessions.RenewAndBind(ctx, sessionID, userID)
			if err != nil {
				return "", err
			}
			return sess.SessionID, nil
		},
		Now: time.Now,
		ObserveLatency: func(d time.Duration) {
			e.metrics.Observe(MetricLoginLatency, d)
		},
		MetricInc:     e.flowMetricInc,
		EmitAudit:     e.emitAudit,
		EmitRateLimit: e.emitRateLimit,
		Metrics: flows.LoginMetrics{
			LoginSuccess:     int(MetricLoginSuccess),
			LoginFailure:     int(MetricLoginFailure),
			LoginInactive:    int(MetricLoginInactive),
			LoginRateLimited: int(MetricLoginRateLimited),
			SessionCreated:   int(MetricSessionCreated),
			SessionRenewed:   int(MetricSessionRenewed),
		},
		Events: flows.LoginEvents{
			LoginSuccess: auditEventLoginSuccess,
			LoginFailure: auditEventLoginFailure,
		},
		Errors: flows.LoginErrors{
			InvalidInput: ErrInvalidInput,
			RateLimited:  ErrRateLimited,
		},
	}
}

func (e *Engine) sessionDeps() flows.SessionDeps {
	return flows.SessionDeps{
		UserID:    e.sessions.UserID,
		Destroy:   e.sessions.Destroy,
		Logger:    e.logger,
		MetricInc: e.flowMetricInc,
		EmitAudit: e.emitAudit,
		Metrics: flows.SessionMetrics{
			Logout: int(MetricLogout),
		},
		Events: flows.SessionEvents{
			Logout: auditEventLogout,
		},
		Errors: flows.SessionErrors{
			EngineNotReady: ErrEngineNotReady,
			Unexpected:     ErrUnexpected,
		},
	}
}

func (e *Engine) flowMetricInc(id int) {
	e.metricInc(MetricID(id))
}

func toFlowUser(u identity.User) flows.User {
	return flows.User{
		UserID:       u.UserID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Active:       u.Status == identity.StatusActive,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, identity.ErrNotFound)
}

func isRateLimited(err error) bool {
	return errors.Is(err, rate.ErrRateLimited)
}
