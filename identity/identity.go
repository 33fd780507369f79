// Package identity defines the user record, token purposes, and the Store
// contract consumed by the goAccount engine.
//
// Implementations live in store/postgres (durable) and store/memory (tests,
// demos). Every Store method must be a single atomic operation at the store
// boundary; the engine never holds a lock across a Store call.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a user or live token does not exist.
	ErrNotFound = errors.New("identity: not found")
	// ErrDuplicate is returned by InsertUser when username or email is taken.
	ErrDuplicate = errors.New("identity: duplicate user")
)

// Status is the activation state of an account.
type Status uint8

const (
	// StatusPending marks an account created by signup and not yet activated.
	StatusPending Status = iota
	// StatusActive marks an account whose activation token was redeemed.
	StatusActive
)

// String returns the persisted name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	default:
		return "unknown"
	}
}

// ParseStatus maps a persisted status name back to a Status.
func ParseStatus(v string) (Status, error) {
	switch v {
	case "pending":
		return StatusPending, nil
	case "active":
		return StatusActive, nil
	default:
		return 0, errors.New("identity: unknown status " + v)
	}
}

// Purpose scopes a token slot. A user holds at most one live token per purpose.
type Purpose uint8

const (
	// PurposeActivation tokens activate a pending account.
	PurposeActivation Purpose = iota + 1
	// PurposeReset tokens authorize a password change.
	PurposeReset
)

// String returns the persisted name of the purpose.
func (p Purpose) String() string {
	switch p {
	case PurposeActivation:
		return "activation"
	case PurposeReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeActivation || p == PurposeReset
}

// User is the durable identity record.
type User struct {
	UserID       string
	Username     string
	Email        string
	PasswordHash string
	Status       Status
	CreatedAt    time.Time
}

// CreateUserInput carries the fields required to insert a user. The store
// assigns UserID and CreatedAt.
type CreateUserInput struct {
	Username     string
	Email        string
	PasswordHash string
	Status       Status
}

// TokenStore is the token-slot subset of Store. Digest is the SHA-256 of the
// raw token; stores never see the raw token.
type TokenStore interface {
	// UpsertLiveToken overwrites the single slot for (purpose, userID).
	UpsertLiveToken(ctx context.Context, purpose Purpose, userID string, digest [32]byte, issuedAt time.Time) error
	// ConsumeToken deletes the slot holding digest for purpose and returns its
	// owner, or ErrNotFound when no live slot holds that digest.
	ConsumeToken(ctx context.Context, digest [32]byte, purpose Purpose) (string, time.Time, error)
}

// Store is the identity store consumed by the engine.
type Store interface {
	TokenStore

	FindUserByUsername(ctx context.Context, username string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	FindUserByID(ctx context.Context, userID string) (User, error)
	InsertUser(ctx context.Context, in CreateUserInput) (User, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
	UpdateStatus(ctx context.Context, userID string, status Status) error
}
