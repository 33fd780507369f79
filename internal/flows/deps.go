package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrEthical07/goAccount/internal/logging"
)

// User is the flow-local view of an identity record.
type User struct {
	UserID       string
	Username     string
	Email        string
	PasswordHash string
	Active       bool
}

// AuditFunc emits one audit event. meta is evaluated lazily so disabled audit
// costs nothing.
type AuditFunc func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string)

// RateLimitFunc emits the rate-limit audit event for scope.
type RateLimitFunc func(ctx context.Context, scope string, meta func() map[string]string)

// Deps groups every flow dependency set. The Engine builds it once at Build
// time and hands the matching set to each Run function.
type Deps struct {
	Credentials   CredentialDeps
	Login         LoginDeps
	Session       SessionDeps
	Activation    ActivationDeps
	PasswordReset PasswordResetDeps
}

func noAudit(context.Context, string, bool, string, error, func() map[string]string) {}

func noRateLimit(context.Context, string, func() map[string]string) {}

func noIP(context.Context) string { return "" }

func noMetric(int) {}

func orLogger(l logging.Logger) logging.Logger {
	if l == nil {
		return logging.Nop{}
	}
	return l
}

func noDelay(context.Context) error { return nil }

// NormalizeUsername is applied to every username before it is validated,
// throttled or looked up. Usernames stay case-sensitive.
func NormalizeUsername(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeEmail is applied to every email before it is validated,
// throttled, stored or looked up.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func unexpected(sentinel, err error) error {
	return fmt.Errorf("%w: %v", sentinel, err)
}
