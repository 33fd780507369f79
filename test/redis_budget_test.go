//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/session"
)

func newCountedManager(t *testing.T) (*session.Manager, *session.Store, *cmdCounter) {
	t.Helper()

	rdb, counter := newCountedClient(t)
	store := session.NewStore(rdb, "as")
	manager, err := session.NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return manager, store, counter
}

// TestSessionCreateRedisBudget verifies that creating a bound session is a
// single transactional pipeline.
func TestSessionCreateRedisBudget(t *testing.T) {
	manager, _, counter := newCountedManager(t)

	if _, err := manager.Create(context.Background(), "u1"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if counter.Pipelines() != 1 {
		t.Errorf("Create used %d pipelines; budget is 1", counter.Pipelines())
	}
	t.Logf("Create: %d commands, %d pipelines", counter.Commands(), counter.Pipelines())
}

// TestSessionReadRedisBudget verifies that resolving the current user is one
// GET with no expiry refresh.
func TestSessionReadRedisBudget(t *testing.T) {
	manager, _, counter := newCountedManager(t)
	ctx := context.Background()

	sess, err := manager.Create(ctx, "u1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	counter.Reset()

	if _, ok, err := manager.UserID(ctx, sess.SessionID); err != nil || !ok {
		t.Fatalf("UserID failed: ok=%v err=%v", ok, err)
	}
	if counter.Commands() != 1 {
		t.Errorf("UserID used %d commands; budget is 1", counter.Commands())
	}
}

// TestSessionRenewRedisBudget verifies that renewal is a read plus one
// compare-and-set script call.
func TestSessionRenewRedisBudget(t *testing.T) {
	manager, _, counter := newCountedManager(t)
	ctx := context.Background()

	sess, err := manager.Create(ctx, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	counter.Reset()

	if _, err := manager.RenewAndBind(ctx, sess.SessionID, "u1"); err != nil {
		t.Fatalf("RenewAndBind failed: %v", err)
	}

	// GET, then EVALSHA with an EVAL fallback on a cold script cache.
	if cmds := counter.Commands(); cmds > 3 {
		t.Errorf("RenewAndBind used %d commands; budget is 3", cmds)
	}
	t.Logf("RenewAndBind: %d commands", counter.Commands())
}

// TestSessionDestroyRedisBudget verifies that destroying a session is a read
// plus one script call, and destroying a missing one is a single read.
func TestSessionDestroyRedisBudget(t *testing.T) {
	manager, _, counter := newCountedManager(t)
	ctx := context.Background()

	sess, err := manager.Create(ctx, "u1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	counter.Reset()

	if err := manager.Destroy(ctx, sess.SessionID); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if cmds := counter.Commands(); cmds > 3 {
		t.Errorf("Destroy used %d commands; budget is 3", cmds)
	}

	counter.Reset()
	if err := manager.Destroy(ctx, sess.SessionID); err != nil {
		t.Fatalf("second Destroy failed: %v", err)
	}
	if cmds := counter.Commands(); cmds != 1 {
		t.Errorf("Destroy of a missing session used %d commands; budget is 1", cmds)
	}
}

// TestLoginRedisBudget bounds the Redis traffic of a full login: throttle
// check, throttle reset and session binding.
func TestLoginRedisBudget(t *testing.T) {
	rdb, counter := newCountedClient(t)
	engine, mail := newEngine(t, rdb, fastConfig())
	activeUser(t, engine, mail, "db303", "acid@house.net")
	ctx := context.Background()

	counter.Reset()
	sid, _, err := engine.Login(ctx, "", "db303", testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if cmds := counter.Commands(); cmds > 10 {
		t.Errorf("Login used %d commands; budget is 10", cmds)
	}
	t.Logf("Login: %d commands, %d pipelines", counter.Commands(), counter.Pipelines())

	counter.Reset()
	if _, ok, err := engine.CurrentUser(ctx, sid); err != nil || !ok {
		t.Fatalf("CurrentUser failed: ok=%v err=%v", ok, err)
	}
	if counter.Commands() != 1 {
		t.Errorf("CurrentUser used %d commands; budget is 1", counter.Commands())
	}
}

// TestFailedLoginRedisBudget bounds a rejected login: throttle check plus
// the failure counter.
func TestFailedLoginRedisBudget(t *testing.T) {
	rdb, counter := newCountedClient(t)
	engine, mail := newEngine(t, rdb, fastConfig())
	activeUser(t, engine, mail, "db303", "acid@house.net")

	counter.Reset()
	if _, _, err := engine.Login(context.Background(), "", "db303", "House!000"); err == nil {
		t.Fatal("expected login failure")
	}
	if cmds := counter.Commands(); cmds > 4 {
		t.Errorf("failed Login used %d commands; budget is 4", cmds)
	}
}
