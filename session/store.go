package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when no live session exists for an identifier.
	ErrNotFound = errors.New("session not found")
	// ErrRedisUnavailable wraps transport failures talking to Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrCorrupt is returned when a stored payload cannot be decoded.
	ErrCorrupt = errors.New("session corrupt")
	// ErrConflict is returned when a rotation raced with another writer.
	ErrConflict = errors.New("session changed during rotation")
)

const (
	rotateStatusNotFound int64 = 0
	rotateStatusConflict int64 = 1
	rotateStatusRotated  int64 = 2
)

// rotateScript swaps the payload from KEYS[1] to KEYS[2] only if KEYS[1]
// still holds ARGV[1], then moves the identifier between user indexes.
const rotateScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 1
end

local ttl = tonumber(ARGV[3])
local user_prefix = ARGV[4]
local old_user = ARGV[5]
local new_user = ARGV[6]

redis.call("DEL", KEYS[1])
redis.call("SET", KEYS[2], ARGV[2], "PX", ttl)

if old_user ~= "" then
  redis.call("SREM", user_prefix .. old_user, ARGV[7])
end
if new_user ~= "" then
  redis.call("SADD", user_prefix .. new_user, ARGV[8])
  redis.call("PEXPIRE", user_prefix .. new_user, ttl)
end

return 2
`

var rotateLua = redis.NewScript(rotateScript)

const deleteSessionScript = `
local existed = redis.call("DEL", KEYS[1])
if ARGV[2] ~= "" then
  redis.call("SREM", ARGV[2], ARGV[1])
end
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is a Redis-backed session store. Session payloads live under
// "<prefix>:<sid>" and each user's identifiers are indexed in the set
// "<prefix>:u:<userID>" so all of a user's sessions can be revoked.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session Store using prefix as the key namespace.
func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "as"
	}
	return &Store{redis: rdb, prefix: prefix}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *Store) userPrefix() string {
	return s.prefix + ":u:"
}

func (s *Store) userKey(userID string) string {
	return s.userPrefix() + userID
}

// Save writes sess with ttl and indexes it under its user, if bound.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.SessionID), data, ttl)
		if sess.UserID != "" {
			pipe.SAdd(ctx, s.userKey(sess.UserID), sess.SessionID)
			pipe.Expire(ctx, s.userKey(sess.UserID), ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads a session without touching its expiry.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	sess, _, err := s.load(ctx, sessionID)
	return sess, err
}

func (s *Store) load(ctx context.Context, sessionID string) (*Session, []byte, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	sess.SessionID = sessionID
	return sess, data, nil
}

// Rotate moves the session stored under oldID to newID, applying mutate to
// the payload first. The swap is a single compare-and-set script: if the
// payload changed since it was read, Rotate returns ErrConflict and nothing
// is written.
func (s *Store) Rotate(ctx context.Context, oldID, newID string, ttl time.Duration, mutate func(*Session)) (*Session, error) {
	current, raw, err := s.load(ctx, oldID)
	if err != nil {
		return nil, err
	}

	oldUser := current.UserID
	next := *current
	next.SessionID = newID
	if mutate != nil {
		mutate(&next)
	}

	data, err := Encode(&next)
	if err != nil {
		return nil, err
	}

	status, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{s.key(oldID), s.key(newID)},
		raw,
		data,
		ttl.Milliseconds(),
		s.userPrefix(),
		oldUser,
		next.UserID,
		oldID,
		newID,
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch status {
	case rotateStatusRotated:
		return &next, nil
	case rotateStatusNotFound:
		return nil, ErrNotFound
	case rotateStatusConflict:
		return nil, ErrConflict
	default:
		return nil, fmt.Errorf("%w: unexpected rotate status %d", ErrRedisUnavailable, status)
	}
}

// Delete removes a session and its index entry. Deleting a missing session
// is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	sess, _, err := s.load(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrCorrupt) {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	userKey := ""
	if sess != nil && sess.UserID != "" {
		userKey = s.userKey(sess.UserID)
	}

	if err := deleteSessionLua.Run(ctx, s.redis, []string{s.key(sessionID)}, sessionID, userKey).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every session indexed under userID.
//
// Not fully atomic: a session bound between the SMEMBERS read and the delete
// survives until its own expiry or the next call.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	userKey := s.userKey(userID)

	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessionKeys := make([]string, 0, len(sessionIDs))
	for _, sessionID := range sessionIDs {
		sessionKeys = append(sessionKeys, s.key(sessionID))
	}

	var deleted *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(sessionKeys) > 0 {
			deleted = pipe.Del(ctx, sessionKeys...)
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if deleted == nil {
		return 0, nil
	}
	return int(deleted.Val()), nil
}

// ActiveSessionIDs returns the identifiers indexed under userID. Entries may
// outlive their session payload until the index itself expires.
func (s *Store) ActiveSessionIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}
