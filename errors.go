package goAccount

import "errors"

var (
	// ErrInvalidInput is returned for structurally invalid requests. It wraps
	// the field errors from validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is returned when a username or password is wrong.
	// Unknown users and wrong passwords are indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount is returned for correct credentials on a pending account.
	ErrInactiveAccount = errors.New("account not activated")
	// ErrTokenNotFound is returned for unknown, superseded, consumed or
	// expired activation and reset tokens.
	ErrTokenNotFound = errors.New("token not found")
	// ErrWeakPassword is returned when a new password fails the strength policy.
	ErrWeakPassword = errors.New("password too weak")
	// ErrPasswordMismatch is returned when password and password_again differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrAccountExists is returned by Signup for a taken username or email.
	ErrAccountExists = errors.New("account already exists")
	// ErrRateLimited is returned when a login or request throttle is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnexpected wraps infrastructure failures. Details are logged, never
	// shown to clients.
	ErrUnexpected = errors.New("unexpected error")
	// ErrEngineNotReady is returned by methods on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Outcome is the boundary result class of an operation.
type Outcome uint8

const (
	// OutcomeSuccess means the operation succeeded.
	OutcomeSuccess Outcome = iota
	// OutcomeClientError means the request was malformed or refused.
	OutcomeClientError
	// OutcomeUnauthorized means credentials or a token were not accepted.
	OutcomeUnauthorized
	// OutcomeForbidden means the credentials were right but the account may
	// not log in.
	OutcomeForbidden
	// OutcomeServerError means the failure is ours.
	OutcomeServerError
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeClientError:
		return "client_error"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeForbidden:
		return "forbidden"
	default:
		return "server_error"
	}
}

// Client error kinds reported in Classification.Kind.
const (
	KindInvalidInput  = "invalid_input"
	KindWeakPassword  = "weak_password"
	KindAccountExists = "account_exists"
	KindRateLimited   = "rate_limited"
)

// Classification is the result class of an error, plus the client error kind
// when Outcome is OutcomeClientError.
type Classification struct {
	Outcome Outcome
	Kind    string
}

// Classify maps an error returned by an Engine method to exactly one outcome.
// Unknown errors are server errors.
func Classify(err error) Classification {
	switch {
	case err == nil:
		return Classification{Outcome: OutcomeSuccess}
	case errors.Is(err, ErrInvalidInput):
		return Classification{Outcome: OutcomeClientError, Kind: KindInvalidInput}
	case errors.Is(err, ErrWeakPassword):
		return Classification{Outcome: OutcomeClientError, Kind: KindWeakPassword}
	case errors.Is(err, ErrAccountExists):
		return Classification{Outcome: OutcomeClientError, Kind: KindAccountExists}
	case errors.Is(err, ErrRateLimited):
		return Classification{Outcome: OutcomeClientError, Kind: KindRateLimited}
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrTokenNotFound),
		errors.Is(err, ErrPasswordMismatch):
		return Classification{Outcome: OutcomeUnauthorized}
	case errors.Is(err, ErrInactiveAccount):
		return Classification{Outcome: OutcomeForbidden}
	default:
		return Classification{Outcome: OutcomeServerError}
	}
}
