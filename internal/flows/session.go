package flows

import (
	"context"

	"github.com/MrEthical07/goAccount/internal/logging"
)

// SessionMetrics carries metric IDs used by the session flows.
type SessionMetrics struct {
	Logout int
}

// SessionEvents carries audit event names used by the session flows.
type SessionEvents struct {
	Logout string
}

// SessionErrors carries the sentinels returned by the session flows.
type SessionErrors struct {
	EngineNotReady error
	Unexpected     error
}

// SessionDeps is the dependency set of RunLogout and RunCurrentUser.
type SessionDeps struct {
	UserID  func(ctx context.Context, sessionID string) (string, bool, error)
	Destroy func(ctx context.Context, sessionID string) error

	Logger    logging.Logger
	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics SessionMetrics
	Events  SessionEvents
	Errors  SessionErrors
}

// RunLogout destroys sessionID. Logging out of a missing session succeeds.
func RunLogout(ctx context.Context, sessionID string, deps SessionDeps) error {
	normalizeSessionDeps(&deps)
	if deps.Destroy == nil || deps.UserID == nil {
		return deps.Errors.EngineNotReady
	}

	userID, _, _ := deps.UserID(ctx, sessionID)
	if err := deps.Destroy(ctx, sessionID); err != nil {
		deps.Logger.Error(ctx, "session destroy failed", "error", err)
		return unexpected(deps.Errors.Unexpected, err)
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, userID, nil, nil)
	return nil
}

// RunCurrentUser reads the user bound to sessionID without extending it.
func RunCurrentUser(ctx context.Context, sessionID string, deps SessionDeps) (string, bool, error) {
	normalizeSessionDeps(&deps)
	if deps.UserID == nil {
		return "", false, deps.Errors.EngineNotReady
	}

	userID, ok, err := deps.UserID(ctx, sessionID)
	if err != nil {
		deps.Logger.Error(ctx, "session read failed", "error", err)
		return "", false, unexpected(deps.Errors.Unexpected, err)
	}
	return userID, ok, nil
}

func normalizeSessionDeps(deps *SessionDeps) {
	deps.Logger = orLogger(deps.Logger)
	if deps.MetricInc == nil {
		deps.MetricInc = noMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noAudit
	}
}
