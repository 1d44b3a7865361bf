package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/MrEthical07/coursegate"
)

// settings is read from the environment, optionally seeded from a .env file.
type settings struct {
	RedisURL       string        `env:"COURSEGATE_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisPrefix    string        `env:"COURSEGATE_REDIS_PREFIX" envDefault:"cg"`
	SessionKey     string        `env:"COURSEGATE_SESSION_KEY"`
	SessionTimeout time.Duration `env:"COURSEGATE_SESSION_TIMEOUT" envDefault:"168h"`
	SweepBatchSize int           `env:"COURSEGATE_SWEEP_BATCH" envDefault:"256"`

	AuditDriver string `env:"COURSEGATE_AUDIT_DRIVER" envDefault:"sqlite"`
	AuditDSN    string `env:"COURSEGATE_AUDIT_DSN" envDefault:"coursegate-audit.db"`

	Output    string `env:"COURSEGATE_OUTPUT" envDefault:"yaml"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// loadSettings reads dotenv (when present) and then the process environment.
// A non-nil environment replaces the process environment, for tests.
func loadSettings(dotenv string, environment map[string]string) (settings, error) {
	var s settings
	if dotenv != "" && environment == nil {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return s, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	opts := env.Options{}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return s, fmt.Errorf("parse environment: %w", err)
	}

	switch s.AuditDriver {
	case "sqlite", "postgres", "stdout":
	default:
		return s, fmt.Errorf("unknown audit driver %q", s.AuditDriver)
	}
	switch s.Output {
	case "yaml", "json":
	default:
		return s, fmt.Errorf("unknown output format %q", s.Output)
	}
	return s, nil
}

// engineConfig maps settings onto the library configuration.
func (s settings) engineConfig() (coursegate.Config, error) {
	key, err := decodeKey(s.SessionKey)
	if err != nil {
		return coursegate.Config{}, err
	}

	cfg := coursegate.DefaultConfig()
	cfg.Envelope.Key = key
	cfg.Session.RedisPrefix = s.RedisPrefix
	cfg.Session.Timeout = s.SessionTimeout
	if cfg.Session.RememberTimeout < s.SessionTimeout {
		cfg.Session.RememberTimeout = s.SessionTimeout
	}
	cfg.Session.SweepBatchSize = s.SweepBatchSize
	if err := cfg.Validate(); err != nil {
		return coursegate.Config{}, err
	}
	return cfg, nil
}

func decodeKey(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: COURSEGATE_SESSION_KEY is not set (run `coursegate keygen`)", coursegate.ErrConfiguration)
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if key, err := enc.DecodeString(value); err == nil {
			return key, nil
		}
	}
	return nil, fmt.Errorf("%w: COURSEGATE_SESSION_KEY is not valid base64", coursegate.ErrConfiguration)
}

func (s settings) logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(s.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
