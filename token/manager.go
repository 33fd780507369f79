// Package token implements the Token Lifecycle Manager for activation and
// password-reset tokens.
//
// A user holds at most one live token per purpose. Issue overwrites the single
// slot for (purpose, user), so any earlier token is superseded the moment Issue
// returns. Redeem consumes the slot atomically; a token can succeed once.
// Only SHA-256 digests reach the store.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/identity"
	"github.com/MrEthical07/goAccount/internal"
)

var (
	// ErrNotFound covers unknown, malformed, superseded and consumed tokens.
	ErrNotFound = errors.New("token: not found")
	// ErrExpired is returned for a live token older than its purpose TTL. The
	// token is consumed either way.
	ErrExpired = errors.New("token: expired")
	// ErrInvalidPurpose is returned for a purpose without a configured TTL.
	ErrInvalidPurpose = errors.New("token: invalid purpose")
	// ErrStoreUnavailable wraps store failures.
	ErrStoreUnavailable = errors.New("token: store unavailable")
)

// Config sets the time-to-live of each purpose.
type Config struct {
	ActivationTTL time.Duration
	ResetTTL      time.Duration
}

// Manager issues and redeems purpose-scoped tokens over an identity.TokenStore.
type Manager struct {
	store    identity.TokenStore
	ttl      map[identity.Purpose]time.Duration
	now      func() time.Time
	generate func() (string, [32]byte, error)
}

// NewManager returns a Manager bound to store.
func NewManager(store identity.TokenStore, cfg Config) (*Manager, error) {
	if store == nil {
		return nil, errors.New("token store required")
	}
	if cfg.ActivationTTL <= 0 || cfg.ResetTTL <= 0 {
		return nil, errors.New("token TTLs must be > 0")
	}
	return &Manager{
		store: store,
		ttl: map[identity.Purpose]time.Duration{
			identity.PurposeActivation: cfg.ActivationTTL,
			identity.PurposeReset:      cfg.ResetTTL,
		},
		now:      time.Now,
		generate: internal.NewToken,
	}, nil
}

// TTL returns the lifetime configured for purpose.
func (m *Manager) TTL(purpose identity.Purpose) time.Duration {
	return m.ttl[purpose]
}

// Issue generates a fresh token for (userID, purpose) and makes it the only
// live token for that pair.
func (m *Manager) Issue(ctx context.Context, userID string, purpose identity.Purpose) (string, error) {
	if _, ok := m.ttl[purpose]; !ok {
		return "", ErrInvalidPurpose
	}
	if userID == "" {
		return "", errors.New("token: empty user id")
	}

	tok, digest, err := m.generate()
	if err != nil {
		return "", fmt.Errorf("token: generate: %w", err)
	}
	if err := m.store.UpsertLiveToken(ctx, purpose, userID, digest, m.now().UTC()); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return tok, nil
}

// Redeem consumes tok for purpose and returns its owner.
//
// Redeem returns ErrNotFound for anything that is not a live token, ErrExpired
// for a live token past its TTL, and ErrStoreUnavailable on store failure.
func (m *Manager) Redeem(ctx context.Context, tok string, purpose identity.Purpose) (string, error) {
	ttl, ok := m.ttl[purpose]
	if !ok {
		return "", ErrInvalidPurpose
	}

	digest, err := internal.ParseToken(tok)
	if err != nil {
		return "", ErrNotFound
	}

	userID, issuedAt, err := m.store.ConsumeToken(ctx, digest, purpose)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if m.now().After(issuedAt.Add(ttl)) {
		return userID, ErrExpired
	}
	return userID, nil
}
