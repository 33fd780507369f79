package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// TokenSize is the raw entropy of activation and reset tokens, in bytes.
const TokenSize = 32

// ErrMalformedToken is returned by ParseToken for input that cannot be a token
// produced by NewToken.
var ErrMalformedToken = errors.New("malformed token")

type SessionID [16]byte

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewToken returns a URL-safe token carrying TokenSize random bytes and the
// digest to persist for it.
func NewToken() (string, [32]byte, error) {
	var raw [TokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", [32]byte{}, err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), sha256.Sum256(raw[:]), nil
}

// ParseToken decodes a token and returns its digest.
func ParseToken(token string) ([32]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != TokenSize {
		return [32]byte{}, ErrMalformedToken
	}
	return sha256.Sum256(raw), nil
}
