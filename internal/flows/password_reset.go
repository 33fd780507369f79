package flows

import (
	"context"
	"strings"

	"github.com/MrEthical07/goAccount/internal/logging"
)

// ChangePasswordInput is the flow-local password change request.
type ChangePasswordInput struct {
	ResetToken    string
	Password      string
	PasswordAgain string
}

// PasswordResetMetrics carries metric IDs used by the reset flows.
type PasswordResetMetrics struct {
	PasswordResetRequest        int
	PasswordResetConfirmSuccess int
	PasswordResetConfirmFailure int
	NotificationFailure         int
}

// PasswordResetEvents carries audit event names used by the reset flows.
type PasswordResetEvents struct {
	PasswordResetRequest string
	PasswordResetConfirm string
}

// PasswordResetErrors carries the sentinels returned by the reset flows.
type PasswordResetErrors struct {
	EngineNotReady   error
	InvalidInput     error
	PasswordMismatch error
	WeakPassword     error
	TokenNotFound    error
	RateLimited      error
	Unexpected       error
}

// PasswordResetDeps is the dependency set of RunRequestPasswordReset and
// RunChangePassword.
type PasswordResetDeps struct {
	InvalidateSessions bool

	ValidateEmail       func(string) error
	ValidateChange      func(ChangePasswordInput) error
	CheckPolicy         func(string) error
	ClientIPFromContext func(context.Context) string

	CheckRequestLimiter func(ctx context.Context, email, ip string) error
	IsRateLimited       func(error) bool

	GetUserByEmail     func(context.Context, string) (User, error)
	IsUserNotFound     func(error) bool
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(ctx context.Context, userID, hash string) error
	DestroyAllSessions func(ctx context.Context, userID string) (int, error)

	IssueToken      func(ctx context.Context, userID string) (string, error)
	RedeemToken     func(ctx context.Context, token string) (string, error)
	IsTokenNotFound func(error) bool
	IsTokenExpired  func(error) bool
	SendReset       func(ctx context.Context, user User, token string) error

	SleepEnumerationDelay func(context.Context) error

	Logger        logging.Logger
	MetricInc     func(int)
	EmitAudit     AuditFunc
	EmitRateLimit RateLimitFunc

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  PasswordResetErrors
}

// RunRequestPasswordReset mails a reset link to the account owning email.
// A new request supersedes any live reset token. Unknown addresses get the
// same nil result after a randomized delay and nothing is stored.
func RunRequestPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)
	if deps.GetUserByEmail == nil || deps.IssueToken == nil || deps.SendReset == nil {
		return deps.Errors.EngineNotReady
	}

	email = NormalizeEmail(email)
	if err := deps.ValidateEmail(email); err != nil {
		return unexpected(deps.Errors.InvalidInput, err)
	}

	if err := deps.CheckRequestLimiter(ctx, email, deps.ClientIPFromContext(ctx)); err != nil {
		if deps.IsRateLimited(err) {
			deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", deps.Errors.RateLimited, nil)
			deps.EmitRateLimit(ctx, "password_reset_request", func() map[string]string {
				return map[string]string{"email": email}
			})
			return deps.Errors.RateLimited
		}
		deps.Logger.Error(ctx, "reset limiter unavailable", "error", err)
		return unexpected(deps.Errors.Unexpected, err)
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		if !deps.IsUserNotFound(err) {
			deps.Logger.Error(ctx, "reset lookup failed", "error", err)
			return unexpected(deps.Errors.Unexpected, err)
		}
		if err := deps.SleepEnumerationDelay(ctx); err != nil {
			return err
		}
		deps.MetricInc(deps.Metrics.PasswordResetRequest)
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, true, "", nil, func() map[string]string {
			return map[string]string{"enumeration_safe": "true"}
		})
		return nil
	}

	token, err := deps.IssueToken(ctx, user.UserID)
	if err != nil {
		deps.Logger.Error(ctx, "reset token issue failed", "user_id", user.UserID, "error", err)
		return unexpected(deps.Errors.Unexpected, err)
	}
	deps.MetricInc(deps.Metrics.PasswordResetRequest)
	deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, true, user.UserID, nil, nil)

	if err := deps.SendReset(ctx, user, token); err != nil {
		deps.MetricInc(deps.Metrics.NotificationFailure)
		deps.Logger.Warn(ctx, "reset mail not sent", "user_id", user.UserID, "error", err)
	}
	return nil
}

// RunChangePassword sets a new password authorized by a reset token. The
// checks run in a fixed order: missing fields, mismatch, strength, then the
// token. The token is only consumed once the new password is acceptable.
func RunChangePassword(ctx context.Context, in ChangePasswordInput, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)
	if deps.RedeemToken == nil || deps.HashPassword == nil || deps.UpdatePasswordHash == nil {
		return deps.Errors.EngineNotReady
	}

	if err := deps.ValidateChange(in); err != nil {
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		return unexpected(deps.Errors.InvalidInput, err)
	}
	if in.Password != in.PasswordAgain {
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		return deps.Errors.PasswordMismatch
	}
	if err := deps.CheckPolicy(in.Password); err != nil {
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		return unexpected(deps.Errors.WeakPassword, err)
	}

	userID, err := deps.RedeemToken(ctx, strings.TrimSpace(in.ResetToken))
	if err != nil {
		switch {
		case deps.IsTokenExpired(err):
			deps.Logger.Info(ctx, "expired reset token redeemed", "user_id", userID)
		case deps.IsTokenNotFound(err):
		default:
			deps.Logger.Error(ctx, "reset redeem failed", "error", err)
			return unexpected(deps.Errors.Unexpected, err)
		}
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, false, "", deps.Errors.TokenNotFound, nil)
		return deps.Errors.TokenNotFound
	}

	hash, err := deps.HashPassword(in.Password)
	if err != nil {
		deps.Logger.Error(ctx, "password hash failed", "user_id", userID, "error", err)
		return unexpected(deps.Errors.Unexpected, err)
	}
	if err := deps.UpdatePasswordHash(ctx, userID, hash); err != nil {
		deps.Logger.Error(ctx, "password update failed", "user_id", userID, "error", err)
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		return unexpected(deps.Errors.Unexpected, err)
	}

	if deps.InvalidateSessions && deps.DestroyAllSessions != nil {
		if _, err := deps.DestroyAllSessions(ctx, userID); err != nil {
			deps.Logger.Warn(ctx, "sessions not invalidated after reset", "user_id", userID, "error", err)
		}
	}

	deps.MetricInc(deps.Metrics.PasswordResetConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, true, userID, nil, nil)
	return nil
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
	deps.Logger = orLogger(deps.Logger)
	if deps.ValidateEmail == nil {
		deps.ValidateEmail = func(string) error { return nil }
	}
	if deps.ValidateChange == nil {
		deps.ValidateChange = func(ChangePasswordInput) error { return nil }
	}
	if deps.CheckPolicy == nil {
		deps.CheckPolicy = func(string) error { return nil }
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = noIP
	}
	if deps.CheckRequestLimiter == nil {
		deps.CheckRequestLimiter = func(context.Context, string, string) error { return nil }
	}
	if deps.IsRateLimited == nil {
		deps.IsRateLimited = func(error) bool { return false }
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
