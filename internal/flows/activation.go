package flows

import (
	"context"
	"strings"

	"github.com/MrEthical07/goAccount/internal/logging"
)

// SignupInput is the flow-local signup request.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// ActivationMetrics carries metric IDs used by signup and activation.
type ActivationMetrics struct {
	SignupSuccess       int
	SignupDuplicate     int
	SignupRateLimited   int
	ActivationRequest   int
	ActivationSuccess   int
	ActivationFailure   int
	NotificationFailure int
}

// ActivationEvents carries audit event names used by signup and activation.
type ActivationEvents struct {
	Signup            string
	ActivationRequest string
	Activation        string
}

// ActivationErrors carries the sentinels returned by the activation flows.
type ActivationErrors struct {
	EngineNotReady error
	InvalidInput   error
	WeakPassword   error
	AccountExists  error
	RateLimited    error
	TokenNotFound  error
	Unexpected     error
}

// ActivationDeps is the dependency set of RunSignup, RunResendActivation and
// RunActivate.
type ActivationDeps struct {
	ValidateSignup      func(SignupInput) error
	ValidateEmail       func(string) error
	CheckPolicy         func(string) error
	ClientIPFromContext func(context.Context) string

	CheckSignupLimiter func(ctx context.Context, email, ip string) error
	CheckResendLimiter func(ctx context.Context, email, ip string) error
	IsRateLimited      func(error) bool

	HashPassword   func(string) (string, error)
	InsertUser     func(ctx context.Context, in SignupInput, hash string) (User, error)
	IsDuplicate    func(error) bool
	GetUserByEmail func(context.Context, string) (User, error)
	IsUserNotFound func(error) bool
	ActivateUser   func(ctx context.Context, userID string) error

	IssueToken      func(ctx context.Context, userID string) (string, error)
	RedeemToken     func(ctx context.Context, token string) (string, error)
	IsTokenNotFound func(error) bool
	IsTokenExpired  func(error) bool
	SendActivation  func(ctx context.Context, user User, token string) error

	SleepEnumerationDelay func(context.Context) error

	Logger        logging.Logger
	MetricInc     func(int)
	EmitAudit     AuditFunc
	EmitRateLimit RateLimitFunc

	Metrics ActivationMetrics
	Events  ActivationEvents
	Errors  ActivationErrors
}

// RunSignup creates a pending account and mails its activation link. Checks
// run in order: structure, password strength, throttle. A mail failure is
// logged and counted; the account still exists and resend can recover it.
func RunSignup(ctx context.Context, in SignupInput, deps ActivationDeps) (string, error) {
	normalizeActivationDeps(&deps)
	if deps.HashPassword == nil || deps.InsertUser == nil || deps.IssueToken == nil || deps.SendActivation == nil {
		return "", deps.Errors.EngineNotReady
	}

	in.Username = NormalizeUsername(in.Username)
	in.Email = NormalizeEmail(in.Email)

	if err := deps.ValidateSignup(in); err != nil {
		return "", unexpected(deps.Errors.InvalidInput, err)
	}
	if err := deps.CheckPolicy(in.Password); err != nil {
		return "", unexpected(deps.Errors.WeakPassword, err)
	}

	ip := deps.ClientIPFromContext(ctx)
	if err := deps.CheckSignupLimiter(ctx, in.Email, ip); err != nil {
		return "", limited(ctx, "signup", in.Email, err, deps.Metrics.SignupRateLimited, deps)
	}

	hash, err := deps.HashPassword(in.Password)
	if err != nil {
		deps.Logger.Error(ctx, "password hash failed", "error", err)
		return "", unexpected(deps.Errors.Unexpected, err)
	}

	user, err := deps.InsertUser(ctx, in, hash)
	if err != nil {
		if deps.IsDuplicate(err) {
			deps.MetricInc(deps.Metrics.SignupDuplicate)
			deps.EmitAudit(ctx, deps.Events.Signup, false, "", deps.Errors.AccountExists, func() map[string]string {
				return map[string]string{"username": in.Username}
			})
			return "", deps.Errors.AccountExists
		}
		deps.Logger.Error(ctx, "insert user failed", "error", err)
		return "", unexpected(deps.Errors.Unexpected, err)
	}
	deps.MetricInc(deps.Metrics.SignupSuccess)
	deps.EmitAudit(ctx, deps.Events.Signup, true, user.UserID, nil, nil)

	if err := issueActivation(ctx, user, deps); err != nil {
		return "", err
	}
	return user.UserID, nil
}

// RunResendActivation mails a fresh activation link to a pending account,
// superseding any live one. Unknown and already active addresses get the same
// result after a short randomized delay.
func RunResendActivation(ctx context.Context, email string, deps ActivationDeps) error {
	normalizeActivationDeps(&deps)
	if deps.GetUserByEmail == nil || deps.IssueToken == nil || deps.SendActivation == nil {
		return deps.Errors.EngineNotReady
	}

	email = NormalizeEmail(email)
	if err := deps.ValidateEmail(email); err != nil {
		return unexpected(deps.Errors.InvalidInput, err)
	}
	if err := deps.CheckResendLimiter(ctx, email, deps.ClientIPFromContext(ctx)); err != nil {
		return limited(ctx, "activation_resend", email, err, -1, deps)
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil && !deps.IsUserNotFound(err) {
		deps.Logger.Error(ctx, "activation lookup failed", "error", err)
		return unexpected(deps.Errors.Unexpected, err)
	}
	if err != nil || user.Active {
		if err := deps.SleepEnumerationDelay(ctx); err != nil {
			return err
		}
		deps.EmitAudit(ctx, deps.Events.ActivationRequest, true, "", nil, func() map[string]string {
			return map[string]string{"enumeration_safe": "true"}
		})
		return nil
	}

	return issueActivation(ctx, user, deps)
}

// RunActivate redeems an activation token and marks its account active.
// Unknown, superseded, consumed and expired tokens are all TokenNotFound.
func RunActivate(ctx context.Context, token string, deps ActivationDeps) (string, error) {
	normalizeActivationDeps(&deps)
	if deps.RedeemToken == nil || deps.ActivateUser == nil {
		return "", deps.Errors.EngineNotReady
	}

	token = strings.TrimSpace(token)
	if token == "" {
		deps.MetricInc(deps.Metrics.ActivationFailure)
		return "", deps.Errors.TokenNotFound
	}

	userID, err := deps.RedeemToken(ctx, token)
	if err != nil {
		switch {
		case deps.IsTokenExpired(err):
			deps.Logger.Info(ctx, "expired activation token redeemed", "user_id", userID)
		case deps.IsTokenNotFound(err):
		default:
			deps.Logger.Error(ctx, "activation redeem failed", "error", err)
			return "", unexpected(deps.Errors.Unexpected, err)
		}
		deps.MetricInc(deps.Metrics.ActivationFailure)
		deps.EmitAudit(ctx, deps.Events.Activation, false, userID, deps.Errors.TokenNotFound, nil)
		return "", deps.Errors.TokenNotFound
	}

	if err := deps.ActivateUser(ctx, userID); err != nil {
		if deps.IsUserNotFound(err) {
			deps.MetricInc(deps.Metrics.ActivationFailure)
			return "", deps.Errors.TokenNotFound
		}
		deps.Logger.Error(ctx, "activate user failed", "user_id", userID, "error", err)
		return "", unexpected(deps.Errors.Unexpected, err)
	}

	deps.MetricInc(deps.Metrics.ActivationSuccess)
	deps.EmitAudit(ctx, deps.Events.Activation, true, userID, nil, nil)
	return userID, nil
}

func issueActivation(ctx context.Context, user User, deps ActivationDeps) error {
	token, err := deps.IssueToken(ctx, user.UserID)
	if err != nil {
		deps.Logger.Error(ctx, "activation token issue failed", "user_id", user.UserID, "error", err)
		return unexpected(deps.Errors.Unexpected, err)
	}
	deps.MetricInc(deps.Metrics.ActivationRequest)
	deps.EmitAudit(ctx, deps.Events.ActivationRequest, true, user.UserID, nil, nil)

	if err := deps.SendActivation(ctx, user, token); err != nil {
		deps.MetricInc(deps.Metrics.NotificationFailure)
		deps.Logger.Warn(ctx, "activation mail not sent", "user_id", user.UserID, "error", err)
	}
	return nil
}

// limited maps a limiter error. metric < 0 skips the flow-specific counter.
func limited(ctx context.Context, scope, email string, err error, metric int, deps ActivationDeps) error {
	if deps.IsRateLimited(err) {
		if metric >= 0 {
			deps.MetricInc(metric)
		}
		deps.EmitRateLimit(ctx, scope, func() map[string]string {
			return map[string]string{"email": email}
		})
		return deps.Errors.RateLimited
	}
	deps.Logger.Error(ctx, "request limiter unavailable", "scope", scope, "error", err)
	return unexpected(deps.Errors.Unexpected, err)
}

func normalizeActivationDeps(deps *ActivationDeps) {
	deps.Logger = orLogger(deps.Logger)
	if deps.ValidateSignup == nil {
		deps.ValidateSignup = func(SignupInput) error { return nil }
	}
	if deps.ValidateEmail == nil {
		deps.ValidateEmail = func(string) error { return nil }
	}
	if deps.CheckPolicy == nil {
		deps.CheckPolicy = func(string) error { return nil }
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = noIP
	}
	if deps.CheckSignupLimiter == nil {
		deps.CheckSignupLimiter = func(context.Context, string, string) error { return nil }
	}
	if deps.CheckResendLimiter == nil {
		deps.CheckResendLimiter = func(context.Context, string, string) error { return nil }
	}
	if deps.IsRateLimited == nil {
		deps.IsRateLimited = func(error) bool { return false }
	}
	if deps.IsDuplicate == nil {
		deps.IsDuplicate = func(error) bool { return false }
	}
	if deps.IsUserNotFound == nil {
		deps.IsUserNotFound = func(error) bool { return false }
	}
	if deps.IsTokenNotFound == nil {
		deps.IsTokenNotFound = func(error) bool { return false }
	}
	if deps.IsTokenExpired == nil {
		deps.IsTokenExpired = func(error) bool { return false }
	}
	if deps.SleepEnumerationDelay == nil {
		deps.SleepEnumerationDelay = noDelay
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noAudit
	}
	if deps.EmitRateLimit == nil {
		deps.EmitRateLimit = noRateLimit
	}
}
