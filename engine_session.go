package coursegate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/MrEthical07/coursegate/access"
	"github.com/MrEthical07/coursegate/audit"
	"github.com/MrEthical07/coursegate/internal"
	"github.com/MrEthical07/coursegate/session"
)

// Create starts a session for p and returns its grant.
//
// The login event is appended before the record is written: a failed append
// leaves no session, and a failed write leaves only a harmless login event.
func (e *Engine) Create(ctx context.Context, p access.Principal, meta RequestMetadata, opts ...CreateOption) (*Grant, error) {
	if !p.Authenticated() {
		return nil, fmt.Errorf("%w: principal must be an active user", ErrUnauthenticated)
	}
	if _, err := access.ParseRole(string(p.Role)); err != nil {
		return nil, err
	}

	var o createOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	lifetime := e.config.Session.Timeout
	if o.remember {
		lifetime = e.config.Session.RememberTimeout
	}
	if o.timeout > 0 {
		lifetime = o.timeout
	}
	if lifetime < time.Second {
		return nil, fmt.Errorf("%w: session lifetime must be >= 1s", ErrConfiguration)
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}
	now := e.now()
	payload := &sessionPayload{
		principal:    p,
		createdAt:    now,
		lastActivity: now,
		lifetime:     lifetime,
		extra:        o.claims,
	}
	sealed, err := e.seal(payload)
	if err != nil {
		return nil, err
	}
	if len(sealed) > e.config.Session.MaxClaimsSize {
		return nil, ErrClaimsTooLarge
	}

	ua := truncate(meta.UserAgent, e.config.Session.MaxUserAgentLength)
	rec := &session.Record{
		SchemaVersion:  session.CurrentSchemaVersion,
		ID:             sid.String(),
		UserID:         p.UserID,
		Payload:        sealed,
		UserAgent:      ua,
		IPAddress:      truncate(meta.IPAddress, 255),
		DeviceLabel:    truncate(internal.Classify(ua), 255),
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(lifetime),
	}

	if err := e.record(ctx, e.newEvent(ctx, audit.EventLogin, rec, "")); err != nil {
		return nil, err
	}
	if err := e.store.Put(ctx, rec); err != nil {
		return nil, err
	}

	e.metricInc(MetricSessionCreated)
	e.logger.LogAttrs(ctx, slog.LevelInfo, "session created",
		slog.String("user_id", p.UserID),
		slog.String("device", rec.DeviceLabel),
		slog.Time("expires_at", rec.ExpiresAt),
	)
	return &Grant{ID: rec.ID, ExpiresAt: rec.ExpiresAt, MaxAge: lifetime}, nil
}

// Resolve validates sessionID and returns its view. It is not read-only: every
// successful resolve rewrites the record with a fresh last-activity time.
//
// Every reason for not returning a view (absent, expired, tampered, undecodable,
// deleted concurrently) surfaces as ErrUnauthenticated. Expired and tampered
// records are deleted and audited first; if that audit fails the error is
// ErrAuditUnavailable instead.
func (e *Engine) Resolve(ctx context.Context, sessionID string) (*SessionView, error) {
	start := e.now()
	if e.metrics.LatencyEnabled() {
		defer func() { e.metrics.Observe(MetricResolveLatency, e.now().Sub(start)) }()
	}

	view, err := e.resolve(ctx, sessionID)
	if err != nil {
		e.metricInc(MetricSessionResolveMiss)
		return nil, err
	}
	e.metricInc(MetricSessionResolved)
	return view, nil
}

func (e *Engine) resolve(ctx context.Context, sessionID string) (*SessionView, error) {
	if !internal.ValidSessionID(sessionID) {
		return nil, ErrUnauthenticated
	}
	if err := e.lazySweep(ctx); err != nil {
		return nil, err
	}

	rec, err := e.store.Get(ctx, sessionID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return nil, ErrUnauthenticated
	case errors.Is(err, session.ErrCorruptRecord):
		return nil, e.reject(ctx, sessionID, audit.EventDecryptionFailed, reasonCorruptRecord, nil)
	case err != nil:
		return nil, err
	}

	now := e.now()
	if rec.Expired(now) {
		return nil, e.reject(ctx, sessionID, audit.EventExpired, reasonExpired, nil)
	}

	payload, err := e.open(rec)
	if err != nil {
		reason := reasonPayloadRejected
		if errors.Is(err, errMalformedPayload) {
			reason = err.Error()
		}
		return nil, e.reject(ctx, sessionID, audit.EventDecryptionFailed, reason, map[string]string{
			"key_id": e.envelope.KeyID(),
		})
	}
	if payload.principal.UserID != rec.UserID {
		return nil, e.reject(ctx, sessionID, audit.EventDecryptionFailed, reasonOwnerMismatch, nil)
	}

	principal := payload.principal
	if e.users != nil {
		current, ok, err := e.users.LookupUser(ctx, rec.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResolverFailed, err)
		}
		if !ok || !current.Active {
			return nil, e.reject(ctx, sessionID, audit.EventInvalidate, reasonUserInactive, nil)
		}
		principal = current
	}

	rec.LastActivityAt = now
	payload.lastActivity = now
	if e.config.Session.SlidingExpiration && rec.ExpiresAt.Sub(now) < payload.lifetime/2 {
		rec.ExpiresAt = now.Add(payload.lifetime)
	}
	if rec.Payload, err = e.seal(payload); err != nil {
		return nil, err
	}

	ok, err := e.store.Update(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnauthenticated
	}

	return &SessionView{
		ID:             rec.ID,
		Principal:      principal,
		Claims:         copyClaims(payload.extra),
		UserAgent:      rec.UserAgent,
		IPAddress:      rec.IPAddress,
		DeviceLabel:    rec.DeviceLabel,
		CreatedAt:      rec.CreatedAt,
		LastActivityAt: rec.LastActivityAt,
		ExpiresAt:      rec.ExpiresAt,
	}, nil
}

// reject ends a session that failed resolution and reports ErrUnauthenticated,
// unless ending it failed.
func (e *Engine) reject(ctx context.Context, id string, typ audit.EventType, reason string, metadata map[string]string) error {
	if _, err := e.end(ctx, id, typ, reason, metadata); err != nil {
		return err
	}
	return ErrUnauthenticated
}

// Invalidate deletes sessionID and records an invalidate event carrying reason.
// It reports false, without error, when the session was already gone.
func (e *Engine) Invalidate(ctx context.Context, sessionID, reason string) (bool, error) {
	if !internal.ValidSessionID(sessionID) {
		return false, nil
	}
	rec, err := e.end(ctx, sessionID, audit.EventInvalidate, reason, nil)
	return rec != nil, err
}

// Logout ends the caller's own session with a logout event.
func (e *Engine) Logout(ctx context.Context, sessionID string) (bool, error) {
	if !internal.ValidSessionID(sessionID) {
		return false, nil
	}
	rec, err := e.end(ctx, sessionID, audit.EventLogout, reasonLogout, nil)
	return rec != nil, err
}

// InvalidateAll deletes every live session of userID, one invalidate_all event
// per session, and returns how many it removed. Expired sessions found on the
// way are ended as expired, undecodable ones as decryption_failed; neither is
// counted.
//
// A failure on one session does not stop the others from being removed; the
// returned error joins every failure.
func (e *Engine) InvalidateAll(ctx context.Context, userID, reason string) (int, error) {
	if userID == "" {
		return 0, nil
	}
	records, err := e.store.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	now := e.now()
	count := 0
	var errs []error
	for _, rec := range records {
		typ, why := audit.EventInvalidateAll, reason
		switch {
		case rec.Corrupt():
			typ, why = audit.EventDecryptionFailed, reasonCorruptRecord
		case rec.Expired(now):
			typ, why = audit.EventExpired, reasonExpired
		}
		removed, err := e.end(ctx, rec.ID, typ, why, nil)
		if err != nil {
			errs = append(errs, err)
		}
		if removed != nil && typ == audit.EventInvalidateAll && err == nil {
			count++
		}
	}

	e.metricInc(MetricLogoutAll)
	e.logger.LogAttrs(ctx, slog.LevelInfo, "sessions invalidated",
		slog.String("user_id", userID),
		slog.Int("count", count),
		slog.String("reason", reason),
	)
	return count, errors.Join(errs...)
}

// ListSessions returns userID's live sessions, most recently active first.
// Only the row for currentID carries the raw session id; every row carries a
// handle accepted by InvalidateByHandle.
func (e *Engine) ListSessions(ctx context.Context, userID, currentID string) ([]SessionSummary, error) {
	if userID == "" {
		return nil, nil
	}
	if err := e.lazySweep(ctx); err != nil {
		return nil, err
	}
	records, err := e.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	out := make([]SessionSummary, 0, len(records))
	for _, rec := range records {
		if rec.Corrupt() || rec.Expired(now) {
			continue
		}
		s := SessionSummary{
			Handle:         e.handle(rec.ID),
			DeviceLabel:    rec.DeviceLabel,
			IPAddress:      rec.IPAddress,
			UserAgent:      rec.UserAgent,
			CreatedAt:      rec.CreatedAt,
			LastActivityAt: rec.LastActivityAt,
			ExpiresAt:      rec.ExpiresAt,
		}
		if currentID != "" && rec.ID == currentID {
			s.ID = rec.ID
			s.Current = true
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastActivityAt.Equal(out[j].LastActivityAt) {
			return out[i].LastActivityAt.After(out[j].LastActivityAt)
		}
		return out[i].Handle < out[j].Handle
	})
	return out, nil
}

// InvalidateByHandle ends the session of userID identified by a listing handle.
// Handles of other users' sessions match nothing.
func (e *Engine) InvalidateByHandle(ctx context.Context, userID, handle, reason string) (bool, error) {
	if userID == "" || handle == "" {
		return false, nil
	}
	records, err := e.store.ListByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if rec.UserID == userID && !rec.Corrupt() && e.handle(rec.ID) == handle {
			removed, err := e.end(ctx, rec.ID, audit.EventInvalidate, reason, nil)
			return removed != nil, err
		}
	}
	return false, nil
}

// Refresh sets the session's expiry to now+extendBy without touching its
// payload. It reports false when the session is gone or already expired.
func (e *Engine) Refresh(ctx context.Context, sessionID string, extendBy time.Duration) (bool, error) {
	if extendBy <= 0 {
		return false, fmt.Errorf("%w: extension must be > 0", ErrConfiguration)
	}
	if !internal.ValidSessionID(sessionID) {
		return false, nil
	}

	rec, err := e.store.Get(ctx, sessionID)
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrCorruptRecord):
		return false, nil
	case err != nil:
		return false, err
	}

	now := e.now()
	if rec.Expired(now) {
		_, err := e.end(ctx, sessionID, audit.EventExpired, reasonExpired, nil)
		return false, err
	}

	rec.ExpiresAt = now.Add(extendBy)
	ok, err := e.store.Update(ctx, rec)
	if err != nil {
		return false, err
	}
	if ok {
		e.metricInc(MetricSessionRefreshed)
	}
	return ok, nil
}

// SweepExpired removes expired sessions in batches until none remain and
// records an expired event for each. It is safe to run concurrently with
// every other operation.
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := e.sweepBatch(ctx)
		total += n
		if err != nil || n < e.config.Session.SweepBatchSize {
			return total, err
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

func (e *Engine) lazySweep(ctx context.Context) error {
	if !e.config.Session.LazySweep {
		return nil
	}
	_, err := e.sweepBatch(ctx)
	return err
}

func (e *Engine) sweepBatch(ctx context.Context) (int, error) {
	// A store error can arrive together with records already claimed; those
	// still need their events.
	removed, err := e.store.SweepExpired(ctx, e.now(), e.config.Session.SweepBatchSize)
	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	for _, rec := range removed {
		typ, reason := audit.EventExpired, reasonExpired
		if rec.CreatedAt.IsZero() {
			// Only ID and UserID survive an undecodable record.
			typ, reason = audit.EventDecryptionFailed, reasonCorruptRecord
		}
		if err := e.record(ctx, e.newEvent(ctx, typ, rec, reason)); err != nil {
			errs = append(errs, err)
			continue
		}
		if typ == audit.EventExpired {
			e.metricInc(MetricSessionExpired)
		} else {
			e.metricInc(MetricSessionTamper)
		}
	}
	e.metrics.Add(MetricSessionSwept, uint64(len(removed)))
	return len(removed), errors.Join(errs...)
}

func (e *Engine) seal(p *sessionPayload) ([]byte, error) {
	plaintext, err := p.marshal()
	if err != nil {
		return nil, fmt.Errorf("session claims: %w", err)
	}
	return e.envelope.Seal(plaintext)
}

func (e *Engine) open(rec *session.Record) (*sessionPayload, error) {
	plaintext, err := e.envelope.Open(rec.Payload)
	if err != nil {
		return nil, err
	}
	return unmarshalPayload(plaintext)
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
