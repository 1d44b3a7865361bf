package coursegate

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/coursegate/envelope"
	"github.com/MrEthical07/coursegate/jwt"
)

// Config is the complete engine configuration.
//
// Config instances are intended to be configured during initialization and then treated as
// immutable. The engine keeps its own copy.
type Config struct {
	Session  SessionConfig
	Envelope EnvelopeConfig
	Bearer   BearerConfig
	Playback PlaybackConfig
	Cookie   CookieConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetimes and storage.
type SessionConfig struct {
	// Timeout is the lifetime of a normal session.
	Timeout time.Duration
	// RememberTimeout is the lifetime of a "remember me" session.
	RememberTimeout time.Duration
	// SlidingExpiration recomputes ExpiresAt on resolve once less than half the
	// lifetime remains.
	SlidingExpiration bool
	RedisPrefix       string
	// RetentionGrace keeps expired records physically present long enough for the
	// lazy sweep to audit them before Redis evicts the key.
	RetentionGrace time.Duration
	SweepBatchSize int
	// LazySweep runs one bounded sweep before every Resolve and ListSessions.
	LazySweep          bool
	MaxUserAgentLength int
	// MaxClaimsSize bounds the sealed payload in bytes.
	MaxClaimsSize int
}

/*
====================================
ENVELOPE CONFIG
====================================
*/

// EnvelopeConfig holds the payload encryption key.
type EnvelopeConfig struct {
	// Key must be exactly 32 bytes.
	Key []byte
}

/*
====================================
BEARER CONFIG
====================================
*/

// BearerConfig controls the legacy bearer token path.
type BearerConfig struct {
	Enabled       bool
	SigningMethod jwt.SigningMethod // "hs256" (default) or "ed25519"
	// Secret is the HS256 shared secret. It must differ from the envelope key.
	Secret     []byte
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	TokenTTL   time.Duration
	Leeway     time.Duration
}

/*
====================================
PLAYBACK CONFIG
====================================
*/

// PlaybackConfig controls signed video playback grants.
type PlaybackConfig struct {
	Enabled bool
	TTL     time.Duration
	// Secret signs playback tokens. Defaults to Bearer.Secret when empty.
	Secret []byte
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig describes the session cookie. Max-Age is always derived from the
// session lifetime chosen at creation.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous observer fan-out. The durable trail is
// always written synchronously.
type AuditConfig struct {
	ObserverBufferSize int
	DropIfFull         bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns production defaults. Envelope.Key is left empty and must
// be supplied.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			Timeout:            7 * 24 * time.Hour,
			RememberTimeout:    30 * 24 * time.Hour,
			RedisPrefix:        "cg",
			RetentionGrace:     24 * time.Hour,
			SweepBatchSize:     256,
			LazySweep:          true,
			MaxUserAgentLength: 512,
			MaxClaimsSize:      4096,
		},
		Bearer: BearerConfig{
			SigningMethod: jwt.MethodHS256,
			TokenTTL:      30 * time.Minute,
		},
		Playback: PlaybackConfig{
			TTL: time.Hour,
		},
		Cookie: CookieConfig{
			Name:     "session_id",
			Path:     "/",
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		},
		Audit: AuditConfig{
			ObserverBufferSize: 1024,
		},
	}
}

// Validate checks cfg. Every failure wraps ErrConfiguration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrConfiguration)
	}
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}

func (c *Config) validate() error {
	if len(c.Envelope.Key) != envelope.KeySize {
		return fmt.Errorf("envelope key must be %d bytes, got %d", envelope.KeySize, len(c.Envelope.Key))
	}

	s := c.Session
	if s.Timeout <= 0 {
		return errors.New("session timeout must be > 0")
	}
	if s.RememberTimeout < s.Timeout {
		return errors.New("remember timeout must be >= session timeout")
	}
	if strings.TrimSpace(s.RedisPrefix) == "" || strings.ContainsAny(s.RedisPrefix, " \t\r\n") {
		return errors.New("redis prefix must be non-empty and contain no whitespace")
	}
	if s.RetentionGrace < time.Second {
		return errors.New("retention grace must be >= 1s")
	}
	if s.SweepBatchSize <= 0 || s.SweepBatchSize > 10000 {
		return errors.New("sweep batch size must be in 1..10000")
	}
	if s.MaxUserAgentLength <= 0 || s.MaxUserAgentLength > 65535 {
		return errors.New("max user agent length must be in 1..65535")
	}
	if s.MaxClaimsSize < 256 || s.MaxClaimsSize > 1<<20 {
		return errors.New("max claims size must be in 256..1MiB")
	}

	if b := c.Bearer; b.Enabled {
		if b.TokenTTL <= 0 {
			return errors.New("bearer token ttl must be > 0")
		}
		if b.Leeway < 0 || b.Leeway > 2*time.Minute {
			return errors.New("bearer leeway must be in 0..2m")
		}
		switch b.SigningMethod {
		case jwt.MethodHS256:
			if len(b.Secret) < 32 {
				return errors.New("hs256 bearer secret must be >= 32 bytes")
			}
			if bytes.Equal(b.Secret, c.Envelope.Key) {
				return errors.New("bearer secret must differ from envelope key")
			}
		case jwt.MethodEd25519:
			if len(b.PublicKey) == 0 {
				return errors.New("ed25519 bearer requires a public key")
			}
		default:
			return fmt.Errorf("unsupported bearer signing method %q", b.SigningMethod)
		}
	}

	if p := c.Playback; p.Enabled {
		if p.TTL <= 0 || p.TTL > 24*time.Hour {
			return errors.New("playback ttl must be in (0, 24h]")
		}
		secret := c.playbackSecret()
		if len(secret) < 32 {
			return errors.New("playback secret must be >= 32 bytes")
		}
		if bytes.Equal(secret, c.Envelope.Key) {
			return errors.New("playback secret must differ from envelope key")
		}
	}

	if strings.TrimSpace(c.Cookie.Name) == "" {
		return errors.New("cookie name must be set")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("SameSite=None requires a secure cookie")
	}

	if c.Audit.ObserverBufferSize < 0 {
		return errors.New("audit observer buffer size must be >= 0")
	}
	return nil
}

func (c *Config) playbackSecret() []byte {
	if len(c.Playback.Secret) > 0 {
		return c.Playback.Secret
	}
	return c.Bearer.Secret
}

func cloneConfig(c Config) Config {
	out := c
	out.Envelope.Key = cloneBytes(c.Envelope.Key)
	out.Bearer.Secret = cloneBytes(c.Bearer.Secret)
	out.Bearer.PrivateKey = cloneBytes(c.Bearer.PrivateKey)
	out.Bearer.PublicKey = cloneBytes(c.Bearer.PublicKey)
	out.Playback.Secret = cloneBytes(c.Playback.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
