package goAccount

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goAccount/identity"
	"github.com/MrEthical07/goAccount/notify"
	"github.com/MrEthical07/goAccount/store/memory"
)

const testPassword = "House!909"

type harness struct {
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	store  *memory.Store
	mail   *notify.Recorder
	engine *Engine
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

// testConfig keeps argon2 at its floor so tests stay fast.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.PasswordReset.EnumerationDelayMin = 0
	cfg.PasswordReset.EnumerationDelayMax = time.Millisecond
	return cfg
}

func newHarness(t testing.TB, mutate ...func(*Builder)) *harness {
	t.Helper()

	mr, rdb := newTestRedis(t)
	h := &harness{
		mr:    mr,
		rdb:   rdb,
		store: memory.New(),
		mail:  notify.NewRecorder(),
	}

	b := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithIdentityStore(h.store).
		WithNotifier(h.mail)
	for _, fn := range mutate {
		fn(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	h.engine = engine
	return h
}

func (h *harness) createActive(t testing.TB, username, email, password string) string {
	t.Helper()

	hash, err := h.engine.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user, err := h.store.InsertUser(context.Background(), identity.CreateUserInput{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Status:       identity.StatusActive,
	})
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return user.UserID
}

func (h *harness) lastToken(t *testing.T, email string) string {
	t.Helper()

	h.engine.FlushNotifications()
	msg, ok := h.mail.Last(email)
	if !ok {
		t.Fatalf("no message sent to %s", email)
	}
	tok := msg.LinkToken()
	if tok == "" {
		t.Fatalf("message to %s carries no token: %q", email, msg.Link)
	}
	return tok
}
