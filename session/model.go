package session

import "time"

// Record is one logged-in device/browser instance.
//
// Payload is an envelope-sealed blob; the store treats it as opaque bytes.
type Record struct {
	SchemaVersion uint8

	ID     string
	UserID string

	Payload []byte

	UserAgent   string
	IPAddress   string
	DeviceLabel string

	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
}

// Expired reports whether the record is logically dead at now.
func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Corrupt reports whether r stands in for an undecodable blob. Such a record
// carries only ID and UserID.
func (r *Record) Corrupt() bool {
	return r.CreatedAt.IsZero()
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.Payload != nil {
		out.Payload = append([]byte(nil), r.Payload...)
	}
	return &out
}
