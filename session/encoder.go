package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersionCurrent = 1

var errUnsupportedVersion = errors.New("unsupported session format version")

// Encode serializes s into the compact binary layout stored in Redis:
//
//	version(1) | len(user)(1) | user | createdAt(8) | renewedAt(8)
//
// SessionID is the Redis key and is not part of the payload.
func Encode(s *Session) ([]byte, error) {
	if len(s.UserID) > 255 {
		return nil, errors.New("userID too long")
	}

	var buf bytes.Buffer
	buf.Grow(2 + len(s.UserID) + 16)

	buf.WriteByte(sessionFormatVersionCurrent)
	buf.WriteByte(byte(len(s.UserID)))
	buf.WriteString(s.UserID)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.RenewedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a payload produced by Encode.
func Decode(data []byte) (*Session, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, errUnsupportedVersion
	}

	userLen, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	user := make([]byte, userLen)
	if _, err := io.ReadFull(r, user); err != nil {
		return nil, err
	}

	s := &Session{UserID: string(user)}
	if err := binary.Read(r, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &s.RenewedAt); err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, errors.New("trailing bytes in session payload")
	}

	return s, nil
}
