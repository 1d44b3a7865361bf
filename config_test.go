package coursegate

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/MrEthical07/coursegate/jwt"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{name: "defaults with key", mutate: func(*Config) {}, wantValid: true},
		{
			name:      "short envelope key",
			mutate:    func(c *Config) { c.Envelope.Key = c.Envelope.Key[:16] },
			wantValid: false,
		},
		{
			name:      "missing envelope key",
			mutate:    func(c *Config) { c.Envelope.Key = nil },
			wantValid: false,
		},
		{
			name:      "remember shorter than timeout",
			mutate:    func(c *Config) { c.Session.RememberTimeout = time.Hour },
			wantValid: false,
		},
		{
			name:      "zero timeout",
			mutate:    func(c *Config) { c.Session.Timeout = 0 },
			wantValid: false,
		},
		{
			name:      "prefix with space",
			mutate:    func(c *Config) { c.Session.RedisPrefix = "c g" },
			wantValid: false,
		},
		{
			name:      "retention below one second",
			mutate:    func(c *Config) { c.Session.RetentionGrace = time.Millisecond },
			wantValid: false,
		},
		{
			name:      "sweep batch zero",
			mutate:    func(c *Config) { c.Session.SweepBatchSize = 0 },
			wantValid: false,
		},
		{
			name:      "claims size too small",
			mutate:    func(c *Config) { c.Session.MaxClaimsSize = 64 },
			wantValid: false,
		},
		{
			name:      "bearer short secret",
			mutate:    func(c *Config) { c.Bearer.Secret = []byte("short") },
			wantValid: false,
		},
		{
			name:      "bearer leeway too large",
			mutate:    func(c *Config) { c.Bearer.Leeway = 3 * time.Minute },
			wantValid: false,
		},
		{
			name:      "bearer unknown method",
			mutate:    func(c *Config) { c.Bearer.SigningMethod = jwt.SigningMethod("rs256") },
			wantValid: false,
		},
		{
			name: "bearer disabled ignores secret",
			mutate: func(c *Config) {
				c.Bearer.Enabled = false
				c.Bearer.Secret = nil
			},
			wantValid: true,
		},
		{
			name: "playback falls back to bearer secret",
			mutate: func(c *Config) {
				c.Playback.Secret = nil
			},
			wantValid: true,
		},
		{
			name: "playback sharing envelope key",
			mutate: func(c *Config) {
				c.Playback.Secret = c.Envelope.Key
			},
			wantValid: false,
		},
		{
			name:      "playback ttl too long",
			mutate:    func(c *Config) { c.Playback.TTL = 48 * time.Hour },
			wantValid: false,
		},
		{
			name: "samesite none requires secure",
			mutate: func(c *Config) {
				c.Cookie.SameSite = http.SameSiteNoneMode
				c.Cookie.Secure = false
			},
			wantValid: false,
		},
		{
			name:      "empty cookie name",
			mutate:    func(c *Config) { c.Cookie.Name = " " },
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if !errors.Is(err, ErrConfiguration) {
					t.Fatalf("expected ErrConfiguration, got %v", err)
				}
			}
		})
	}
}

func TestDefaultConfigNeedsKey(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration without key, got %v", err)
	}
	if cfg.Cookie.Name != "session_id" || !cfg.Cookie.Secure || cfg.Cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookie defaults %+v", cfg.Cookie)
	}
}

func TestCloneConfigDetachesKeys(t *testing.T) {
	cfg := testConfig()
	clone := cloneConfig(cfg)
	clone.Envelope.Key[0] ^= 0xff
	clone.Bearer.Secret[0] ^= 0xff
	if cfg.Envelope.Key[0] == clone.Envelope.Key[0] || cfg.Bearer.Secret[0] == clone.Bearer.Secret[0] {
		t.Fatal("clone shares key material with its source")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Envelope.Key = []byte("too short")
	_, err := New().WithConfig(cfg).Build()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
