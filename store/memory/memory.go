// Package memory provides an in-process identity.Store for tests and demos.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goAccount/identity"
)

type slotKey struct {
	purpose identity.Purpose
	userID  string
}

type digestKey struct {
	purpose identity.Purpose
	digest  [32]byte
}

type slot struct {
	digest   [32]byte
	issuedAt time.Time
}

// Store is a mutex-guarded identity.Store. Each method holds the lock for its
// whole read-modify-write, mirroring a single SQL statement.
type Store struct {
	mu         sync.Mutex
	users      map[string]identity.User
	byUsername map[string]string
	byEmail    map[string]string
	slots      map[slotKey]slot
	digests    map[digestKey]string
	now        func() time.Time
}

var _ identity.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:      make(map[string]identity.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
		slots:      make(map[slotKey]slot),
		digests:    make(map[digestKey]string),
		now:        time.Now,
	}
}

func (s *Store) FindUserByUsername(_ context.Context, username string) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(s.byUsername[username])
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(s.byEmail[strings.ToLower(email)])
}

func (s *Store) FindUserByID(_ context.Context, userID string) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(userID)
}

func (s *Store) lookup(userID string) (identity.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return identity.User{}, identity.ErrNotFound
	}
	return u, nil
}

func (s *Store) InsertUser(_ context.Context, in identity.CreateUserInput) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[in.Username]; taken {
		return identity.User{}, identity.ErrDuplicate
	}
	if _, taken := s.byEmail[strings.ToLower(in.Email)]; taken {
		return identity.User{}, identity.ErrDuplicate
	}

	u := identity.User{
		UserID:       uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Status:       in.Status,
		CreatedAt:    s.now().UTC(),
	}
	s.users[u.UserID] = u
	s.byUsername[u.Username] = u.UserID
	s.byEmail[strings.ToLower(u.Email)] = u.UserID
	return u, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return identity.ErrNotFound
	}
	u.PasswordHash = passwordHash
	s.users[userID] = u
	return nil
}

func (s *Store) UpdateStatus(_ context.Context, userID string, status identity.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return identity.ErrNotFound
	}
	u.Status = status
	s.users[userID] = u
	return nil
}

func (s *Store) UpsertLiveToken(_ context.Context, purpose identity.Purpose, userID string, digest [32]byte, issuedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey{purpose: purpose, userID: userID}
	if prev, ok := s.slots[key]; ok {
		delete(s.digests, digestKey{purpose: purpose, digest: prev.digest})
	}
	s.slots[key] = slot{digest: digest, issuedAt: issuedAt}
	s.digests[digestKey{purpose: purpose, digest: digest}] = userID
	return nil
}

func (s *Store) ConsumeToken(_ context.Context, digest [32]byte, purpose identity.Purpose) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dk := digestKey{purpose: purpose, digest: digest}
	userID, ok := s.digests[dk]
	if !ok {
		return "", time.Time{}, identity.ErrNotFound
	}
	key := slotKey{purpose: purpose, userID: userID}
	live := s.slots[key]
	delete(s.digests, dk)
	delete(s.slots, key)
	return userID, live.issuedAt, nil
}

// LiveTokens reports how many token slots are occupied. Tests use it to check
// that supersession never leaves two live tokens behind.
func (s *Store) LiveTokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
