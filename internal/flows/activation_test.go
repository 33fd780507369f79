package flows

import (
	"context"
	"errors"
	"testing"
)

var (
	errWeak        = errors.New("weak")
	errExists      = errors.New("exists")
	errTokenGone   = errors.New("token not found")
	errDuplicate   = errors.New("store: duplicate")
	errTokenMiss   = errors.New("token: miss")
	errTokenExpire = errors.New("token: expired")
)

type fakeAccounts struct {
	users   map[string]User
	tokens  map[string]string
	live    map[string]string
	sent    []string
	sendErr error
	delays  int
	seq     int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		users:  map[string]User{},
		tokens: map[string]string{},
		live:   map[string]string{},
	}
}

func (f *fakeAccounts) issue(_ context.Context, userID string) (string, error) {
	f.seq++
	tok := userID + "-tok-" + string(rune('a'+f.seq))
	if prev, ok := f.live[userID]; ok {
		delete(f.tokens, prev)
	}
	f.live[userID] = tok
	f.tokens[tok] = userID
	return tok, nil
}

func (f *fakeAccounts) redeem(_ context.Context, tok string) (string, error) {
	userID, ok := f.tokens[tok]
	if !ok {
		return "", errTokenMiss
	}
	delete(f.tokens, tok)
	delete(f.live, userID)
	return userID, nil
}

func (f *fakeAccounts) byEmail(_ context.Context, email string) (User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, errStoreMiss
}

func activationStub(f *fakeAccounts, metrics counter) ActivationDeps {
	return ActivationDeps{
		CheckPolicy: func(p string) error {
			if len(p) < 8 {
				return errors.New("too short")
			}
			return nil
		},
		HashPassword: func(p string) (string, error) { return "hash:" + p, nil },
		InsertUser: func(_ context.Context, in SignupInput, hash string) (User, error) {
			for _, u := range f.users {
				if u.Username == in.Username || u.Email == in.Email {
					return User{}, errDuplicate
				}
			}
			u := User{UserID: "u-" + in.Username, Username: in.Username, Email: in.Email, PasswordHash: hash}
			f.users[u.UserID] = u
			return u, nil
		},
		IsDuplicate:    func(err error) bool { return errors.Is(err, errDuplicate) },
		GetUserByEmail: f.byEmail,
		IsUserNotFound: func(err error) bool { return errors.Is(err, errStoreMiss) },
		ActivateUser: func(_ context.Context, userID string) error {
			u, ok := f.users[userID]
			if !ok {
				return errStoreMiss
			}
			u.Active = true
			f.users[userID] = u
			return nil
		},
		IssueToken:      f.issue,
		RedeemToken:     f.redeem,
		IsTokenNotFound: func(err error) bool { return errors.Is(err, errTokenMiss) },
		IsTokenExpired:  func(err error) bool { return errors.Is(err, errTokenExpire) },
		SendActivation: func(_ context.Context, _ User, tok string) error {
			if f.sendErr != nil {
				return f.sendErr
			}
			f.sent = append(f.sent, tok)
			return nil
		},
		SleepEnumerationDelay: func(context.Context) error {
			f.delays++
			return nil
		},
		MetricInc: metrics.inc,
		Metrics: ActivationMetrics{
			SignupSuccess:       1,
			SignupDuplicate:     2,
			SignupRateLimited:   3,
			ActivationRequest:   4,
			ActivationSuccess:   5,
			ActivationFailure:   6,
			NotificationFailure: 7,
		},
		Errors: ActivationErrors{
			EngineNotReady: errNotReady,
			InvalidInput:   errInvalidInput,
			WeakPassword:   errWeak,
			AccountExists:  errExists,
			RateLimited:    errRateLimited,
			TokenNotFound:  errTokenGone,
			Unexpected:     errUnexpected,
		},
	}
}

func TestSignupThenActivate(t *testing.T) {
	f := newFakeAccounts()
	metrics := counter{}
	deps := activationStub(f, metrics)
	ctx := context.Background()

	userID, err := RunSignup(ctx, SignupInput{Username: " db303 ", Email: "acid@house.net", Password: "House!909"}, deps)
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if userID != "u-db303" {
		t.Fatalf("expected trimmed username in id, got %s", userID)
	}
	if f.users[userID].Active {
		t.Fatalf("expected pending user")
	}
	if len(f.sent) != 1 {
		t.Fatalf("expected one activation mail, got %d", len(f.sent))
	}

	got, err := RunActivate(ctx, f.sent[0], deps)
	if err != nil || got != userID {
		t.Fatalf("activate = %q, %v", got, err)
	}
	if !f.users[userID].Active {
		t.Fatalf("expected active user")
	}
	if _, err := RunActivate(ctx, f.sent[0], deps); err != errTokenGone {
		t.Fatalf("expected reused token to fail, got %v", err)
	}
	if metrics[1] != 1 || metrics[4] != 1 || metrics[5] != 1 || metrics[6] != 1 {
		t.Fatalf("unexpected metrics %v", metrics)
	}
}

func TestSignupOrderOfChecks(t *testing.T) {
	f := newFakeAccounts()
	deps := activationStub(f, counter{})
	limiterCalls := 0
	deps.CheckSignupLimiter = func(context.Context, string, string) error {
		limiterCalls++
		return nil
	}
	deps.ValidateSignup = func(in SignupInput) error {
		if in.Email == "" {
			return errors.New("email: cannot be blank")
		}
		return nil
	}

	if _, err := RunSignup(context.Background(), SignupInput{Username: "a", Password: "House!909"}, deps); !errors.Is(err, errInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := RunSignup(context.Background(), SignupInput{Username: "a", Email: "a@b.c", Password: "short"}, deps); !errors.Is(err, errWeak) {
		t.Fatalf("expected weak password, got %v", err)
	}
	if limiterCalls != 0 {
		t.Fatalf("limiter must not count rejected input, got %d", limiterCalls)
	}
}

func TestSignupDuplicate(t *testing.T) {
	f := newFakeAccounts()
	metrics := counter{}
	deps := activationStub(f, metrics)
	ctx := context.Background()

	if _, err := RunSignup(ctx, SignupInput{Username: "a", Email: "a@b.c", Password: "House!909"}, deps); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := RunSignup(ctx, SignupInput{Username: "a", Email: "x@b.c", Password: "House!909"}, deps); err != errExists {
		t.Fatalf("expected exists, got %v", err)
	}
	if metrics[2] != 1 {
		t.Fatalf("expected duplicate metric, got %v", metrics)
	}
}

func TestSignupMailFailureIsNotSurfaced(t *testing.T) {
	f := newFakeAccounts()
	f.sendErr = errors.New("smtp down")
	metrics := counter{}
	deps := activationStub(f, metrics)

	if _, err := RunSignup(context.Background(), SignupInput{Username: "a", Email: "a@b.c", Password: "House!909"}, deps); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if metrics[7] != 1 {
		t.Fatalf("expected notification failure metric, got %v", metrics)
	}
}

func TestSignupRateLimited(t *testing.T) {
	f := newFakeAccounts()
	metrics := counter{}
	deps := activationStub(f, metrics)
	deps.CheckSignupLimiter = func(context.Context, string, string) error { return errLimiterHit }
	deps.IsRateLimited = func(err error) bool { return errors.Is(err, errLimiterHit) }

	if _, err := RunSignup(context.Background(), SignupInput{Username: "a", Email: "a@b.c", Password: "House!909"}, deps); err != errRateLimited {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if len(f.users) != 0 || metrics[3] != 1 {
		t.Fatalf("expected no user and a rate limit metric, users=%d metrics=%v", len(f.users), metrics)
	}
}

func TestResendSupersedes(t *testing.T) {
	f := newFakeAccounts()
	deps := activationStub(f, counter{})
	ctx := context.Background()

	if _, err := RunSignup(ctx, SignupInput{Username: "a", Email: "a@b.c", Password: "House!909"}, deps); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if err := RunResendActivation(ctx, "a@b.c", deps); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if len(f.sent) != 2 {
		t.Fatalf("expected two mails, got %d", len(f.sent))
	}
	if _, err := RunActivate(ctx, f.sent[0], deps); err != errTokenGone {
		t.Fatalf("expected first token superseded, got %v", err)
	}
	if _, err := RunActivate(ctx, f.sent[1], deps); err != nil {
		t.Fatalf("activate latest: %v", err)
	}
}

func TestResendUnknownOrActiveSleeps(t *testing.T) {
	f := newFakeAccounts()
	f.users["u1"] = User{UserID: "u1", Email: "on@b.c", Active: true}
	deps := activationStub(f, counter{})

	for _, email := range []string{"ghost@b.c", "on@b.c"} {
		if err := RunResendActivation(context.Background(), email, deps); err != nil {
			t.Fatalf("%s: %v", email, err)
		}
	}
	if f.delays != 2 || len(f.sent) != 0 {
		t.Fatalf("expected two delays and no mail, delays=%d sent=%d", f.delays, len(f.sent))
	}
}

func TestActivateExpiredIsNotFound(t *testing.T) {
	deps := activationStub(newFakeAccounts(), counter{})
	deps.RedeemToken = func(context.Context, string) (string, error) { return "u1", errTokenExpire }

	if _, err := RunActivate(context.Background(), "old", deps); err != errTokenGone {
		t.Fatalf("expected token not found, got %v", err)
	}
}

func TestActivateEmptyToken(t *testing.T) {
	deps := activationStub(newFakeAccounts(), counter{})
	redeemed := false
	deps.RedeemToken = func(context.Context, string) (string, error) {
		redeemed = true
		return "", nil
	}

	if _, err := RunActivate(context.Background(), "  ", deps); err != errTokenGone {
		t.Fatalf("expected token not found, got %v", err)
	}
	if redeemed {
		t.Fatalf("empty token must not reach the store")
	}
}
