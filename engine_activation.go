package goAccount

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAccount/identity"
	"github.com/MrEthical07/goAccount/internal/flows"
	"github.com/MrEthical07/goAccount/internal/validate"
	"github.com/MrEthical07/goAccount/token"
)

// Signup creates a pending account and mails its activation link. A mail
// failure does not fail the call; ResendActivation recovers it.
//
// Errors: ErrInvalidInput, ErrWeakPassword, ErrRateLimited, ErrAccountExists,
// ErrUnexpected.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	return flows.RunSignup(ctx, flows.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}, e.flows.Activation)
}

// ResendActivation mails a fresh activation link to a pending account,
// superseding the previous one. Unknown and already active addresses succeed
// silently.
func (e *Engine) ResendActivation(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunResendActivation(ctx, email, e.flows.Activation)
}

// Activate redeems an activation token and marks its owner active. Redeeming
// an already used token returns ErrTokenNotFound.
func (e *Engine) Activate(ctx context.Context, rawToken string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	return flows.RunActivate(ctx, rawToken, e.flows.Activation)
}

func (e *Engine) activationDeps() flows.ActivationDeps {
	return flows.ActivationDeps{
		ValidateSignup: func(in flows.SignupInput) error {
			return validate.Signup{Username: in.Username, Email: in.Email, Password: in.Password}.Validate()
		},
		ValidateEmail:       validate.Email,
		CheckPolicy:         e.policy.Check,
		ClientIPFromContext: clientIPFromContext,
		CheckSignupLimiter:  e.signupLimiter.Enforce,
		CheckResendLimiter:  e.resendLimiter.Enforce,
		IsRateLimited:       isRateLimited,
		HashPassword:        e.hasher.Hash,
		InsertUser: func(ctx context.Context, in flows.SignupInput, hash string) (flows.User, error) {
			user, err := e.store.InsertUser(ctx, identity.CreateUserInput{
				Username:     in.Username,
				Email:        in.Email,
				PasswordHash: hash,
				Status:       identity.StatusPending,
			})
			if err != nil {
				return flows.User{}, err
			}
			return toFlowUser(user), nil
		},
		IsDuplicate: func(err error) bool {
			return errors.Is(err, identity.ErrDuplicate)
		},
		GetUserByEmail: e.userByEmail,
		IsUserNotFound: isNotFound,
		ActivateUser: func(ctx context.Context, userID string) error {
			return e.store.UpdateStatus(ctx, userID, identity.StatusActive)
		},
		IssueToken: func(ctx context.Context, userID string) (string, error) {
			return e.tokens.Issue(ctx, userID, identity.PurposeActivation)
		},
		RedeemToken: func(ctx context.Context, raw string) (string, error) {
			return e.tokens.Redeem(ctx, raw, identity.PurposeActivation)
		},
		IsTokenNotFound:       isTokenNotFound,
		IsTokenExpired:        isTokenExpired,
		SendActivation:        e.sendActivation,
		SleepEnumerationDelay: e.sleepEnumerationDelay,
		Logger:                e.logger,
		MetricInc:             e.flowMetricInc,
		EmitAudit:             e.emitAudit,
		EmitRateLimit:         e.emitRateLimit,
		Metrics: flows.ActivationMetrics{
			SignupSuccess:       int(MetricSignupSuccess),
			SignupDuplicate:     int(MetricSignupDuplicate),
			SignupRateLimited:   int(MetricSignupRateLimited),
			ActivationRequest:   int(MetricActivationRequest),
			ActivationSuccess:   int(MetricActivationSuccess),
			ActivationFailure:   int(MetricActivationFailure),
			NotificationFailure: int(MetricNotificationFailure),
		},
		Events: flows.ActivationEvents{
			Signup:            auditEventSignup,
			ActivationRequest: auditEventActivationRequest,
			Activation:        auditEventActivation,
		},
		Errors: flows.ActivationErrors{
			EngineNotReady: ErrEngineNotReady,
			InvalidInput:   ErrInvalidInput,
			WeakPassword:   ErrWeakPassword,
			AccountExists:  ErrAccountExists,
			RateLimited:    ErrRateLimited,
			TokenNotFound:  ErrTokenNotFound,
			Unexpected:     ErrUnexpected,
		},
	}
}

func (e *Engine) userByEmail(ctx context.Context, email string) (flows.User, error) {
	user, err := e.store.FindUserByEmail(ctx, email)
	if err != nil {
		return flows.User{}, err
	}
	return toFlowUser(user), nil
}

func isTokenNotFound(err error) bool {
	return errors.Is(err, token.ErrNotFound)
}

func isTokenExpired(err error) bool {
	return errors.Is(err, token.ErrExpired)
}
