package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// SessionID is a 128-bit random session identifier.
type SessionID [16]byte

// NewSessionID draws 16 bytes from crypto/rand.
func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) Bytes() []byte {
	return s[:]
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// ParseSessionID decodes the string form produced by SessionID.String.
func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	if len(sessionID) != base64.RawURLEncoding.EncodedLen(len(sid)) {
		return sid, errors.New("invalid session id size")
	}
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

// ValidSessionID reports whether s has the shape of a generated session id.
func ValidSessionID(s string) bool {
	_, err := ParseSessionID(s)
	return err == nil
}
