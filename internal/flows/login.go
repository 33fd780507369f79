package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goAccount/internal/logging"
)

// CredentialErrors carries the sentinels returned by RunValidateCredentials.
type CredentialErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	InactiveAccount    error
	Unexpected         error
}

// CredentialDeps is the dependency set of the credential validator.
type CredentialDeps struct {
	// FallbackHash is verified against when the username is unknown so a
	// miss costs the same as a wrong password.
	FallbackHash string

	GetUserByUsername func(context.Context, string) (User, error)
	IsUserNotFound    func(error) bool
	VerifyPassword    func(plain, hash string) (bool, error)

	Logger logging.Logger
	Errors CredentialErrors
}

// RunValidateCredentials checks username and password against the identity
// store. It verifies first and only then looks at the account status, so a
// wrong password on a pending account is InvalidCredentials.
func RunValidateCredentials(ctx context.Context, username, password string, deps CredentialDeps) (User, error) {
	deps.Logger = orLogger(deps.Logger)
	if deps.GetUserByUsername == nil || deps.VerifyPassword == nil || deps.IsUserNotFound == nil {
		return User{}, deps.Errors.EngineNotReady
	}

	user, err := deps.GetUserByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		if !deps.IsUserNotFound(err) {
			deps.Logger.Error(ctx, "credential lookup failed", "error", err)
			return User{}, unexpected(deps.Errors.Unexpected, err)
		}
		_, _ = deps.VerifyPassword(password, deps.FallbackHash)
		return User{}, deps.Errors.InvalidCredentials
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		deps.Logger.Warn(ctx, "password verification error", "user_id", user.UserID, "error", err)
		return User{}, deps.Errors.InvalidCredentials
	}
	if !ok {
		return User{}, deps.Errors.InvalidCredentials
	}
	if !user.Active {
		return User{}, deps.Errors.InactiveAccount
	}
	return user, nil
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	UserID    string
	SessionID string
}

// LoginMetrics carries metric IDs used by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginInactive    int
	LoginRateLimited int
	SessionCreated   int
	SessionRenewed   int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess string
	LoginFailure string
}

// LoginErrors carries the sentinels returned by RunLogin in addition to the
// credential errors.
type LoginErrors struct {
	InvalidInput error
	RateLimited  error
}

// LoginDeps is the dependency set of RunLogin.
type LoginDeps struct {
	Credentials    CredentialDeps
	UpgradeOnLogin bool

	ValidateInput       func(username, password string) error
	ClientIPFromContext func(context.Context) string

	CheckLimiter  func(ctx context.Context, username, ip string) error
	RecordFailure func(ctx context.Context, username, ip string) error
	ResetLimiter  func(ctx context.Context, username string) error
	IsRateLimited func(error) bool

	NeedsUpgrade       func(hash string) (bool, error)
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(ctx context.Context, userID, hash string) error

	RenewAndBind func(ctx context.Context, sessionID, userID string) (string, error)

	Now            func() time.Time
	ObserveLatency func(time.Duration)
	MetricInc      func(int)
	EmitAudit      AuditFunc
	EmitRateLimit  RateLimitFunc

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin validates credentials and binds the user to a renewed session.
// currentSessionID may be empty; a stale or unknown identifier is replaced by
// a fresh session rather than reused.
func RunLogin(ctx context.Context, currentSessionID, username, password string, deps LoginDeps) (LoginResult, error) {
	normalizeLoginDeps(&deps)
	cerr := deps.Credentials.Errors
	if deps.RenewAndBind == nil || deps.CheckLimiter == nil {
		return LoginResult{}, cerr.EngineNotReady
	}

	start := deps.Now()
	defer func() {
		deps.ObserveLatency(deps.Now().Sub(start))
	}()

	username = NormalizeUsername(username)
	if err := deps.ValidateInput(username, password); err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		return LoginResult{}, unexpected(deps.Errors.InvalidInput, err)
	}

	ip := deps.ClientIPFromContext(ctx)
	if err := deps.CheckLimiter(ctx, username, ip); err != nil {
		if deps.IsRateLimited(err) {
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitRateLimit(ctx, "login", func() map[string]string {
				return map[string]string{"username": username}
			})
			return LoginResult{}, deps.Errors.RateLimited
		}
		deps.Credentials.Logger.Error(ctx, "login limiter unavailable", "error", err)
		return LoginResult{}, unexpected(cerr.Unexpected, err)
	}

	user, err := RunValidateCredentials(ctx, username, password, deps.Credentials)
	if err != nil {
		switch err {
		case cerr.InvalidCredentials:
			deps.MetricInc(deps.Metrics.LoginFailure)
			if deps.RecordFailure != nil {
				if lerr := deps.RecordFailure(ctx, username, ip); lerr != nil && !deps.IsRateLimited(lerr) {
					deps.Credentials.Logger.Warn(ctx, "login failure not recorded", "error", lerr)
				}
			}
		case cerr.InactiveAccount:
			deps.MetricInc(deps.Metrics.LoginInactive)
		default:
			deps.MetricInc(deps.Metrics.LoginFailure)
		}
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.UserID, err, func() map[string]string {
			return map[string]string{"username": username}
		})
		return LoginResult{}, err
	}

	if deps.ResetLimiter != nil {
		if err := deps.ResetLimiter(ctx, username); err != nil {
			deps.Credentials.Logger.Warn(ctx, "login limiter reset failed", "error", err)
		}
	}

	if deps.UpgradeOnLogin {
		upgradeHash(ctx, user, password, deps)
	}

	sessionID, err := deps.RenewAndBind(ctx, currentSessionID, user.UserID)
	if err != nil {
		deps.Credentials.Logger.Error(ctx, "session bind failed", "user_id", user.UserID, "error", err)
		deps.MetricInc(deps.Metrics.LoginFailure)
		wrapped := unexpected(cerr.Unexpected, err)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.UserID, wrapped, nil)
		return LoginResult{}, wrapped
	}

	if currentSessionID != "" {
		deps.MetricInc(deps.Metrics.SessionRenewed)
	} else {
		deps.MetricInc(deps.Metrics.SessionCreated)
	}
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.UserID, nil, nil)

	return LoginResult{UserID: user.UserID, SessionID: sessionID}, nil
}

// upgradeHash rehashes password with current parameters. Failures are logged
// and never fail the login.
func upgradeHash(ctx context.Context, user User, password string, deps LoginDeps) {
	if deps.NeedsUpgrade == nil || deps.HashPassword == nil || deps.UpdatePasswordHash == nil {
		return
	}
	needs, err := deps.NeedsUpgrade(user.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := deps.HashPassword(password)
	if err != nil {
		deps.Credentials.Logger.Warn(ctx, "password rehash failed", "user_id", user.UserID, "error", err)
		return
	}
	if err := deps.UpdatePasswordHash(ctx, user.UserID, hash); err != nil {
		deps.Credentials.Logger.Warn(ctx, "password hash upgrade not stored", "user_id", user.UserID, "error", err)
	}
}

func normalizeLoginDeps(deps *LoginDeps) {
	deps.Credentials.Logger = orLogger(deps.Credentials.Logger)
	if deps.ValidateInput == nil {
		deps.ValidateInput = func(string, string) error { return nil }
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = noIP
	}
	if deps.IsRateLimited == nil {
		deps.IsRateLimited = func(error) bool { return false }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(time.Duration) {}
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
