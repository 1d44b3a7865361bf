package coursegate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/coursegate/audit"
	"github.com/MrEthical07/coursegate/session"
)

// Reasons recorded on events the engine emits on its own behalf.
const (
	reasonLogout          = "user logout"
	reasonExpired         = "session expired"
	reasonPayloadRejected = "payload failed authentication"
	reasonCorruptRecord   = "session record undecodable"
	reasonOwnerMismatch   = "payload owner mismatch"
	reasonUserInactive    = "user inactive or removed"
)

func (e *Engine) newEvent(ctx context.Context, typ audit.EventType, rec *session.Record, reason string) audit.Event {
	event := audit.Event{
		ID:        audit.NewEventID(),
		Type:      typ,
		Reason:    reason,
		Timestamp: e.now().UTC(),
	}
	if rec != nil {
		event.SessionID = rec.ID
		event.UserID = rec.UserID
		event.IPAddress = rec.IPAddress
		event.UserAgent = rec.UserAgent
	}
	if actor := RequestMetadataFromContext(ctx); actor.IPAddress != "" && actor.IPAddress != event.IPAddress {
		event.Metadata = map[string]string{"actor_ip": actor.IPAddress}
	}
	return event
}

// record appends event to the durable trail and, once that succeeds, mirrors it
// to observers. A failed append is logged with the complete event so it is
// recoverable from logs.
func (e *Engine) record(ctx context.Context, event audit.Event) error {
	if err := e.trail.Append(ctx, event); err != nil {
		e.metricInc(MetricAuditFailure)
		e.logger.LogAttrs(ctx, slog.LevelError, "audit append failed",
			audit.Attr(event),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %v", ErrAuditUnavailable, err)
	}
	e.observers.Emit(ctx, event)
	return nil
}

// end claims id from the store and records typ for it. It returns the removed
// record, or nil when another caller already removed it.
//
// The store delete is an atomic claim, so exactly one of any number of
// concurrent callers audits a given session.
func (e *Engine) end(ctx context.Context, id string, typ audit.EventType, reason string, metadata map[string]string) (*session.Record, error) {
	rec, err := e.store.Delete(ctx, id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return nil, nil
	case errors.Is(err, session.ErrCorruptRecord):
		if typ == audit.EventExpired {
			typ = audit.EventDecryptionFailed
			reason = reasonCorruptRecord
		}
	case err != nil:
		return nil, err
	}

	event := e.newEvent(ctx, typ, rec, reason)
	for k, v := range metadata {
		if event.Metadata == nil {
			event.Metadata = make(map[string]string, len(metadata))
		}
		event.Metadata[k] = v
	}
	if err := e.record(ctx, event); err != nil {
		return rec, err
	}

	switch typ {
	case audit.EventExpired:
		e.metricInc(MetricSessionExpired)
	case audit.EventDecryptionFailed:
		e.metricInc(MetricSessionTamper)
		e.logger.LogAttrs(ctx, slog.LevelWarn, "session payload rejected",
			slog.String("session_id", event.SessionID),
			slog.String("user_id", event.UserID),
			slog.String("reason", reason),
		)
	case audit.EventInvalidate:
		e.metricInc(MetricSessionInvalidated)
	case audit.EventInvalidateAll:
		e.metricInc(MetricSessionInvalidated)
	case audit.EventLogout:
		e.metricInc(MetricLogout)
	}
	return rec, nil
}
