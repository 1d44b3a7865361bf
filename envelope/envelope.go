package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

const (
	// KeySize is the required AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce length prepended to every sealed blob.
	NonceSize = 12

	keyIDContext = "coursegate envelope key id v1"
	keyIDLength  = 8
)

var (
	// ErrConfiguration is returned by New when the key is unusable.
	ErrConfiguration = errors.New("invalid envelope configuration")
	// ErrIntegrity is returned by Open on tag mismatch or malformed input.
	ErrIntegrity = errors.New("envelope integrity check failed")
)

// Envelope performs authenticated encryption with a fixed key.
//
// Envelope is safe for concurrent use.
type Envelope struct {
	aead   cipher.AEAD
	random io.Reader
	keyID  string
}

// New builds an Envelope from a 32-byte key. Any other length fails with
// ErrConfiguration; this is a startup-time check, not a per-call one.
func New(key []byte) (*Envelope, error) {
	return newWithRandom(key, rand.Reader)
}

func newWithRandom(key []byte, random io.Reader) (*Envelope, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrConfiguration, KeySize, len(key))
	}
	if random == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrConfiguration)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	var fp [keyIDLength]byte
	blake3.DeriveKey(keyIDContext, key, fp[:])

	return &Envelope{
		aead:   aead,
		random: random,
		keyID:  hex.EncodeToString(fp[:]),
	}, nil
}

// Seal encrypts plaintext and returns nonce || ciphertext || tag.
func (e *Envelope) Seal(plaintext []byte) ([]byte, error) {
	out := make([]byte, NonceSize, NonceSize+len(plaintext)+e.aead.Overhead())
	if _, err := io.ReadFull(e.random, out[:NonceSize]); err != nil {
		return nil, fmt.Errorf("envelope nonce: %w", err)
	}
	return e.aead.Seal(out, out[:NonceSize], plaintext, nil), nil
}

// Open splits the leading nonce and decrypts the remainder. Any authentication
// failure or malformed input yields ErrIntegrity.
func (e *Envelope) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < NonceSize+e.aead.Overhead() {
		return nil, fmt.Errorf("%w: blob too short", ErrIntegrity)
	}

	nonce := sealed[:NonceSize]
	plaintext, err := e.aead.Open(nil, nonce, sealed[NonceSize:], nil)
	if err != nil {
		return nil, ErrIntegrity
	}
	return plaintext, nil
}

// KeyID returns a short non-reversible fingerprint of the key. It is safe to log
// and lets operators tell key rotation apart from tampering in audit records.
func (e *Envelope) KeyID() string {
	return e.keyID
}
