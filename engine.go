package coursegate

import (
	"context"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/MrEthical07/coursegate/audit"
	"github.com/MrEthical07/coursegate/envelope"
	"github.com/MrEthical07/coursegate/jwt"
	"github.com/MrEthical07/coursegate/session"
	"github.com/zeebo/blake3"
)

// Engine is the session manager and authorization engine. Build it with [Builder].
// Engine is safe for concurrent use; it holds no per-session state.
type Engine struct {
	config   Config
	store    session.Store
	envelope *envelope.Envelope

	trail     audit.Trail
	observers *audit.Dispatcher

	bearer   *jwt.Manager
	playback *jwt.Manager

	verifier    CredentialVerifier
	users       UserDirectory
	enrollments EnrollmentLookup
	resolvers   []PrincipalResolver

	handleKey [32]byte
	logger    *slog.Logger
	metrics   *Metrics
	now       func() time.Time
}

// Close drains the audit observer queue. The store and trail belong to the caller.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.observers != nil {
		e.observers.Close()
	}
}

// CookieConfig returns the configured session cookie attributes.
func (e *Engine) CookieConfig() CookieConfig {
	return e.config.Cookie
}

// KeyID returns the fingerprint of the active envelope key.
func (e *Engine) KeyID() string {
	return e.envelope.KeyID()
}

// Ping checks that the session store answers, when it supports it.
func (e *Engine) Ping(ctx context.Context) error {
	p, ok := e.store.(interface {
		Ping(context.Context) (time.Duration, error)
	})
	if !ok {
		return nil
	}
	_, err := p.Ping(ctx)
	return err
}

// AuditDropped returns how many events the observer queue dropped. The durable
// trail never drops.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.observers == nil {
		return 0
	}
	return e.observers.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// handle derives the opaque listing handle for a session id.
func (e *Engine) handle(sessionID string) string {
	h, _ := blake3.NewKeyed(e.handleKey[:])
	_, _ = h.Write([]byte(sessionID))
	return hex.EncodeToString(h.Sum(nil)[:16])
}
