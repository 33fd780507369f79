package goAccount

import (
	"context"

	"github.com/MrEthical07/goAccount/identity"
	"github.com/MrEthical07/goAccount/internal/flows"
	"github.com/MrEthical07/goAccount/internal/validate"
)

// RequestPasswordReset mails a reset link to the account owning email and
// supersedes any earlier reset link. It returns nil for unknown addresses
// after a comparable delay.
//
// Errors: ErrInvalidInput, ErrRateLimited, ErrUnexpected.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunRequestPasswordReset(ctx, email, e.flows.PasswordReset)
}

// ChangePassword redeems a reset token and replaces the owner's password.
// Pending accounts stay pending. With PasswordReset.InvalidateSessions every
// session of the owner is destroyed afterwards.
//
// Errors: ErrInvalidInput, ErrPasswordMismatch, ErrWeakPassword,
// ErrTokenNotFound, ErrUnexpected.
func (e *Engine) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunChangePassword(ctx, flows.ChangePasswordInput{
		ResetToken:    req.ResetToken,
		Password:      req.Password,
		PasswordAgain: req.PasswordAgain,
	}, e.flows.PasswordReset)
}

func (e *Engine) passwordResetDeps() flows.PasswordResetDeps {
	return flows.PasswordResetDeps{
		InvalidateSessions: e.config.PasswordReset.InvalidateSessions,
		ValidateEmail:      validate.Email,
		ValidateChange: func(in flows.ChangePasswordInput) error {
			return validate.ChangePassword{
				ResetToken:    in.ResetToken,
				Password:      in.Password,
				PasswordAgain: in.PasswordAgain,
			}.Validate()
		},
		CheckPolicy:         e.policy.Check,
		ClientIPFromContext: clientIPFromContext,
		CheckRequestLimiter: e.resetLimiter.Enforce,
		IsRateLimited:       isRateLimited,
		GetUserByEmail:      e.userByEmail,
		IsUserNotFound:      isNotFound,
		HashPassword:        e.hasher.Hash,
		UpdatePasswordHash:  e.store.UpdatePasswordHash,
		DestroyAllSessions:  e.sessions.DestroyAllForUser,
		IssueToken: func(ctx context.Context, userID string) (string, error) {
			return e.tokens.Issue(ctx, userID, identity.PurposeReset)
		},
		RedeemToken: func(ctx context.Context, raw string) (string, error) {
			return e.tokens.Redeem(ctx, raw, identity.PurposeReset)
		},
		IsTokenNotFound:       isTokenNotFound,
		IsTokenExpired:        isTokenExpired,
		SendReset:             e.sendReset,
		SleepEnumerationDelay: e.sleepEnumerationDelay,
		Logger:                e.logger,
		MetricInc:             e.flowMetricInc,
		EmitAudit:             e.emitAudit,
		EmitRateLimit:         e.emitRateLimit,
		Metrics: flows.PasswordResetMetrics{
			PasswordResetRequest:        int(MetricPasswordResetRequest),
			PasswordResetConfirmSuccess: int(MetricPasswordResetConfirmSuccess),
			PasswordResetConfirmFailure: int(MetricPasswordResetConfirmFailure),
			NotificationFailure:         int(MetricNotificationFailure),
		},
		Events: flows.PasswordResetEvents{
			PasswordResetRequest: auditEventPasswordResetRequest,
			PasswordResetConfirm: auditEventPasswordResetConfirm,
		},
		Errors: flows.PasswordResetErrors{
			EngineNotReady:   ErrEngineNotReady,
			InvalidInput:     ErrInvalidInput,
			PasswordMismatch: ErrPasswordMismatch,
			WeakPassword:     ErrWeakPassword,
			TokenNotFound:    ErrTokenNotFound,
			RateLimited:      ErrRateLimited,
			Unexpected:       ErrUnexpected,
		},
	}
}
