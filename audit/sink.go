package audit

import (
	"context"
	"log/slog"
)

// Sink observes events that a [Trail] has already accepted. Emit must not block for long.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink forwards events to a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// SlogSink logs each event at Info level under the "audit" group.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Emit(ctx context.Context, event Event) {
	s.logger.LogAttrs(ctx, slog.LevelInfo, "session event", Attr(event))
}

// Attr renders event as a single slog group attribute.
func Attr(event Event) slog.Attr {
	attrs := []any{
		slog.String("id", event.ID),
		slog.String("type", string(event.Type)),
		slog.String("session_id", event.SessionID),
		slog.String("user_id", event.UserID),
		slog.String("ip", event.IPAddress),
		slog.String("user_agent", event.UserAgent),
		slog.Time("timestamp", event.Timestamp),
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", event.Reason))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.String("meta."+k, v))
	}
	return slog.Group("audit", attrs...)
}
