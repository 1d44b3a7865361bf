package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/coursegate"
	"github.com/MrEthical07/coursegate/audit"
	"github.com/MrEthical07/coursegate/envelope"
)

type cli struct {
	settings settings
	stdout   io.Writer
	logger   *slog.Logger

	// redis overrides COURSEGATE_REDIS_URL in tests.
	redis redis.UniversalClient
}

func keygen(w io.Writer) error {
	key := make([]byte, envelope.KeySize)
	if _, err := rand.Read(key); err != nil {
		return err
	}
	env, err := envelope.New(key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "COURSEGATE_SESSION_KEY=%s\n# key id %s\n", base64.StdEncoding.EncodeToString(key), env.KeyID())
	return err
}

// openTrail returns the configured audit trail and a close func.
func (c *cli) openTrail(ctx context.Context) (audit.Trail, func(), error) {
	switch c.settings.AuditDriver {
	case "sqlite":
		trail, err := audit.OpenSQLite(c.settings.AuditDSN)
		if err != nil {
			return nil, nil, err
		}
		return trail, func() { _ = trail.Close() }, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, c.settings.AuditDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		trail := audit.NewPostgresTrail(pool)
		if err := trail.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return trail, pool.Close, nil
	default:
		return audit.NewJSONWriterTrail(c.stdout), func() {}, nil
	}
}

func (c *cli) redisClient() (redis.UniversalClient, func(), error) {
	if c.redis != nil {
		return c.redis, func() {}, nil
	}
	opts, err := redis.ParseURL(c.settings.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	return client, func() { _ = client.Close() }, nil
}

// engine wires Redis, the audit trail and a slog observer. The returned func
// releases all of them.
func (c *cli) engine(ctx context.Context) (*coursegate.Engine, func(), error) {
	cfg, err := c.settings.engineConfig()
	if err != nil {
		return nil, nil, err
	}
	client, closeRedis, err := c.redisClient()
	if err != nil {
		return nil, nil, err
	}
	trail, closeTrail, err := c.openTrail(ctx)
	if err != nil {
		closeRedis()
		return nil, nil, err
	}

	engine, err := coursegate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithAuditTrail(trail).
		WithAuditObserver(audit.NewSlogSink(c.logger)).
		WithLogger(c.logger).
		Build()
	if err != nil {
		closeTrail()
		closeRedis()
		return nil, nil, err
	}
	if err := engine.Ping(ctx); err != nil {
		engine.Close()
		closeTrail()
		closeRedis()
		return nil, nil, err
	}

	return engine, func() {
		engine.Close()
		closeTrail()
		closeRedis()
	}, nil
}

func (c *cli) sweep(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	engine, release, err := c.engine(ctx)
	if err != nil {
		return err
	}
	defer release()

	n, err := engine.SweepExpired(ctx)
	c.logger.Info("sweep finished", slog.Int("expired", n))
	if err != nil {
		return err
	}
	return c.write(map[string]int{"expired": n})
}

func (c *cli) sessions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	userID := fs.String("user", "", "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return errors.New("sessions: -user is required")
	}

	engine, release, err := c.engine(ctx)
	if err != nil {
		return err
	}
	defer release()

	list, err := engine.ListSessions(ctx, *userID, "")
	if err != nil {
		return err
	}
	return c.write(list)
}

func (c *cli) revokeAll(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("revoke-all", flag.ContinueOnError)
	userID := fs.String("user", "", "user id")
	reason := fs.String("reason", "revoked by operator", "audit reason")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return errors.New("revoke-all: -user is required")
	}

	engine, release, err := c.engine(ctx)
	if err != nil {
		return err
	}
	defer release()

	n, err := engine.InvalidateAll(ctx, *userID, *reason)
	if err != nil {
		return err
	}
	return c.write(map[string]any{"user_id": *userID, "invalidated": n})
}

func (c *cli) audit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	userID := fs.String("user", "", "user id")
	sessionID := fs.String("session", "", "session id")
	limit := fs.Int("limit", 50, "maximum events")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" && *sessionID == "" {
		return errors.New("audit: -user or -session is required")
	}

	trail, release, err := c.openTrail(ctx)
	if err != nil {
		return err
	}
	defer release()

	reader, ok := trail.(audit.Reader)
	if !ok {
		return fmt.Errorf("audit driver %q cannot be queried", c.settings.AuditDriver)
	}
	events, err := reader.Recent(ctx, audit.Filter{UserID: *userID, SessionID: *sessionID, Limit: *limit})
	if err != nil {
		return err
	}
	return c.write(events)
}

func (c *cli) report(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	engine, release, err := c.engine(ctx)
	if err != nil {
		return err
	}
	defer release()

	r := engine.SecurityReport()
	for _, w := range r.Warnings {
		c.logger.Warn("security posture", slog.String("warning", w))
	}
	return c.write(r)
}

func (c *cli) write(v any) error {
	if c.settings.Output == "json" {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(c.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
