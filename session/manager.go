package session

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/internal"
)

const maxRotateAttempts = 3

// Manager issues, renews, reads and destroys sessions on a Store.
type Manager struct {
	store *Store
	ttl   time.Duration
	now   func() time.Time
	newID func() (string, error)
}

// NewManager returns a Manager that gives every written session ttl.
func NewManager(store *Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store required")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be > 0")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		newID: newSessionID,
	}, nil
}

func newSessionID() (string, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return "", err
	}
	return sid.String(), nil
}

// TTL returns the lifetime given to written sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create binds a fresh identifier to userID. userID may be empty for an
// anonymous session.
func (m *Manager) Create(ctx context.Context, userID string) (*Session, error) {
	sid, err := m.newID()
	if err != nil {
		return nil, err
	}

	now := m.now().Unix()
	sess := &Session{
		SessionID: sid,
		UserID:    userID,
		CreatedAt: now,
		RenewedAt: now,
	}
	if err := m.store.Save(ctx, sess, m.ttl); err != nil {
		return nil, err
	}
	return sess, nil
}

// Renew rotates the identifier of sessionID, keeping its bound data.
func (m *Manager) Renew(ctx context.Context, sessionID string) (*Session, error) {
	if !validID(sessionID) {
		return nil, ErrNotFound
	}
	return m.rotate(ctx, sessionID, nil)
}

// RenewAndBind rotates sessionID and binds userID in the same atomic write.
// When sessionID is empty, malformed or no longer live, a new session is
// created for userID instead.
func (m *Manager) RenewAndBind(ctx context.Context, sessionID, userID string) (*Session, error) {
	if userID == "" {
		return nil, errors.New("session: empty user id")
	}
	if !validID(sessionID) {
		return m.Create(ctx, userID)
	}

	sess, err := m.rotate(ctx, sessionID, func(s *Session) {
		s.UserID = userID
	})
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCorrupt) {
		if errors.Is(err, ErrCorrupt) {
			_ = m.store.Delete(ctx, sessionID)
		}
		return m.Create(ctx, userID)
	}
	return sess, err
}

func (m *Manager) rotate(ctx context.Context, sessionID string, bind func(*Session)) (*Session, error) {
	var lastErr error
	for attempt := 0; attempt < maxRotateAttempts; attempt++ {
		newID, err := m.newID()
		if err != nil {
			return nil, err
		}

		now := m.now().Unix()
		sess, err := m.store.Rotate(ctx, sessionID, newID, m.ttl, func(s *Session) {
			s.RenewedAt = now
			if bind != nil {
				bind(s)
			}
		})
		if !errors.Is(err, ErrConflict) {
			return sess, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// UserID reads the user bound to sessionID without side effects. ok is false
// for unknown, expired or anonymous sessions.
func (m *Manager) UserID(ctx context.Context, sessionID string) (string, bool, error) {
	if !validID(sessionID) {
		return "", false, nil
	}

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCorrupt) {
			return "", false, nil
		}
		return "", false, err
	}
	return sess.UserID, sess.Authenticated(), nil
}

// Destroy invalidates sessionID. Destroying a missing session succeeds.
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	if !validID(sessionID) {
		return nil
	}
	return m.store.Delete(ctx, sessionID)
}

// DestroyAllForUser invalidates every session bound to userID and reports
// how many were removed.
func (m *Manager) DestroyAllForUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}
	return m.store.DeleteAllForUser(ctx, userID)
}

func validID(sessionID string) bool {
	if sessionID == "" {
		return false
	}
	_, err := internal.ParseSessionID(sessionID)
	return err == nil
}
