package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names a session lifecycle transition.
type EventType string

const (
	EventLogin            EventType = "login"
	EventLogout           EventType = "logout"
	EventInvalidate       EventType = "invalidate"
	EventInvalidateAll    EventType = "invalidate_all"
	EventExpired          EventType = "expired"
	EventDecryptionFailed EventType = "decryption_failed"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventLogin, EventLogout, EventInvalidate, EventInvalidateAll, EventExpired, EventDecryptionFailed:
		return true
	}
	return false
}

// Event is an immutable audit record.
type Event struct {
	ID        string            `json:"id" yaml:"id"`
	SessionID string            `json:"session_id" yaml:"session_id"`
	UserID    string            `json:"user_id" yaml:"user_id"`
	Type      EventType         `json:"event_type" yaml:"event_type"`
	IPAddress string            `json:"ip_address,omitempty" yaml:"ip_address,omitempty"`
	UserAgent string            `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	Reason    string            `json:"reason,omitempty" yaml:"reason,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
}

// NewEventID returns a time-ordered event id.
func NewEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Validate checks the fields every trail requires.
func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("audit event: missing id")
	}
	if !e.Type.Valid() {
		return fmt.Errorf("audit event: invalid type %q", e.Type)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("audit event: missing timestamp")
	}
	return nil
}

// Filter selects events for [Reader.Recent]. Empty fields match everything.
type Filter struct {
	UserID    string
	SessionID string
	Limit     int
}

const defaultRecentLimit = 100

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return defaultRecentLimit
	}
	return f.Limit
}

func (f Filter) match(e Event) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	return true
}
