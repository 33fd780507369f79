package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/identity"
	"github.com/redis/go-redis/v9"
)

const (
	slotRecordVersionV1 = 1
	slotRecordSize      = 1 + 32 + 8
	maxTxRetries        = 4
)

// ErrSlotRedisUnavailable wraps Redis transport failures.
var ErrSlotRedisUnavailable = errors.New("token slot redis unavailable")

// TokenSlotStore implements identity.TokenStore on Redis.
//
// Each (purpose, user) pair owns one slot key holding the live digest; a
// reverse key maps the digest back to its owner. Both carry the purpose TTL,
// so expired tokens are purged by Redis.
type TokenSlotStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    map[identity.Purpose]time.Duration
}

// NewTokenSlotStore returns a store keyed under prefix. ttl gives the
// retention of each purpose and must cover every purpose in use.
func NewTokenSlotStore(redisClient redis.UniversalClient, prefix string, ttl map[identity.Purpose]time.Duration) *TokenSlotStore {
	if prefix == "" {
		prefix = "atk"
	}
	return &TokenSlotStore{
		redis:  redisClient,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *TokenSlotStore) slotKey(purpose identity.Purpose, userID string) string {
	return s.prefix + ":" + purpose.String() + ":u:" + userID
}

func (s *TokenSlotStore) digestKey(purpose identity.Purpose, digest [32]byte) string {
	return s.prefix + ":" + purpose.String() + ":t:" + hex.EncodeToString(digest[:])
}

// UpsertLiveToken replaces the slot for (purpose, userID). The previous
// digest's reverse key is removed in the same transaction.
func (s *TokenSlotStore) UpsertLiveToken(ctx context.Context, purpose identity.Purpose, userID string, digest [32]byte, issuedAt time.Time) error {
	ttl, ok := s.ttl[purpose]
	if !ok || ttl <= 0 {
		return fmt.Errorf("no retention configured for purpose %s", purpose)
	}

	slotKey := s.slotKey(purpose, userID)
	encoded := encodeSlotRecord(digest, issuedAt)

	for i := 0; i < maxTxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			previous, err := tx.Get(ctx, slotKey).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}

			var staleKey string
			if err == nil {
				if prevDigest, _, decodeErr := decodeSlotRecord(previous); decodeErr == nil {
					staleKey = s.digestKey(purpose, prevDigest)
				}
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if staleKey != "" {
					pipe.Del(ctx, staleKey)
				}
				pipe.Set(ctx, slotKey, encoded, ttl)
				pipe.Set(ctx, s.digestKey(purpose, digest), userID, ttl)
				return nil
			})
			return err
		}, slotKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSlotRedisUnavailable, err)
		}
		return nil
	}

	return fmt.Errorf("%w: upsert contention", ErrSlotRedisUnavailable)
}

// ConsumeToken deletes the live slot holding digest and returns its owner
// and issue time. A digest whose slot has since been overwritten is treated
// as not found.
func (s *TokenSlotStore) ConsumeToken(ctx context.Context, digest [32]byte, purpose identity.Purpose) (string, time.Time, error) {
	digestKey := s.digestKey(purpose, digest)

	for i := 0; i < maxTxRetries; i++ {
		var (
			userID   string
			issuedAt time.Time
		)

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			owner, err := tx.Get(ctx, digestKey).Result()
			if err != nil {
				return err
			}

			slotKey := s.slotKey(purpose, owner)
			if err := tx.Watch(ctx, slotKey).Err(); err != nil {
				return err
			}

			data, err := tx.Get(ctx, slotKey).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}

			live := false
			if err == nil {
				slotDigest, at, decodeErr := decodeSlotRecord(data)
				if decodeErr == nil && subtle.ConstantTimeCompare(slotDigest[:], digest[:]) == 1 {
					live = true
					issuedAt = at
				}
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, digestKey)
				if live {
					pipe.Del(ctx, slotKey)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if !live {
				return identity.ErrNotFound
			}

			userID = owner
			return nil
		}, digestKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil), errors.Is(err, identity.ErrNotFound):
				return "", time.Time{}, identity.ErrNotFound
			default:
				return "", time.Time{}, fmt.Errorf("%w: %v", ErrSlotRedisUnavailable, err)
			}
		}
		return userID, issuedAt, nil
	}

	return "", time.Time{}, fmt.Errorf("%w: consume contention", ErrSlotRedisUnavailable)
}

func encodeSlotRecord(digest [32]byte, issuedAt time.Time) []byte {
	var buf bytes.Buffer
	buf.Grow(slotRecordSize)
	buf.WriteByte(slotRecordVersionV1)
	buf.Write(digest[:])
	_ = binary.Write(&buf, binary.BigEndian, issuedAt.UnixNano())
	return buf.Bytes()
}

func decodeSlotRecord(data []byte) ([32]byte, time.Time, error) {
	var digest [32]byte
	if len(data) != slotRecordSize || data[0] != slotRecordVersionV1 {
		return digest, time.Time{}, errors.New("invalid token slot record")
	}
	copy(digest[:], data[1:33])
	nanos := int64(binary.BigEndian.Uint64(data[33:]))
	return digest, time.Unix(0, nanos).UTC(), nil
}
