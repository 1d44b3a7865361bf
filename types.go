package coursegate

import (
	"context"
	"time"

	"github.com/MrEthical07/coursegate/access"
)

// RequestMetadata is the client information recorded with a session and its events.
type RequestMetadata struct {
	IPAddress string
	UserAgent string
}

// Credentials are what a request presents. Either field may be empty.
type Credentials struct {
	SessionID   string
	BearerToken string
}

// Grant is the result of creating a session. ID goes into the session cookie.
type Grant struct {
	ID        string
	ExpiresAt time.Time
	// MaxAge is the cookie lifetime matching ExpiresAt at creation time.
	MaxAge time.Duration
}

// SessionView is a resolved session: decrypted claims plus stored metadata.
type SessionView struct {
	ID        string
	Principal access.Principal
	// Claims holds the extra claims passed at creation, after a JSON round trip
	// (numbers come back as json.Number).
	Claims map[string]any

	UserAgent   string
	IPAddress   string
	DeviceLabel string

	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
}

// SessionSummary is one row of a session listing. ID is set only for the session
// making the request; every other row is addressed by its opaque Handle.
type SessionSummary struct {
	Handle  string `json:"handle" yaml:"handle"`
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Current bool   `json:"current" yaml:"current"`

	DeviceLabel string `json:"device" yaml:"device"`
	IPAddress   string `json:"ip_address" yaml:"ip_address"`
	UserAgent   string `json:"user_agent" yaml:"user_agent"`

	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at" yaml:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at" yaml:"expires_at"`
}

// Resolution is the outcome of hybrid principal resolution.
type Resolution struct {
	Principal access.Principal
	// Via names the resolver that produced the principal, empty when anonymous.
	Via string
	// SessionID is set when the session resolver won.
	SessionID string
}

// PlaybackGrant is the outcome of a playback request. Token is empty when access is denied.
type PlaybackGrant struct {
	Decision  access.Decision
	Token     string
	ExpiresAt time.Time
}

// CredentialVerifier checks a login identifier and secret. The engine never sees
// password hashes.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, identifier, secret string) (access.Principal, bool, error)
}

// UserDirectory returns the current state of a user, used to reject principals
// that were deactivated after their session or token was issued.
type UserDirectory interface {
	LookupUser(ctx context.Context, userID string) (access.Principal, bool, error)
	LookupUsername(ctx context.Context, username string) (access.Principal, bool, error)
}

// EnrollmentLookup reports whether a user holds a paid enrollment for a course.
type EnrollmentLookup interface {
	HasPaidEnrollment(ctx context.Context, userID, courseID string) (bool, error)
}

// EnrollmentLookupFunc adapts a function to [EnrollmentLookup].
type EnrollmentLookupFunc func(ctx context.Context, userID, courseID string) (bool, error)

func (f EnrollmentLookupFunc) HasPaidEnrollment(ctx context.Context, userID, courseID string) (bool, error) {
	return f(ctx, userID, courseID)
}

// CreateOption customizes a single Create call.
type CreateOption func(*createOptions)

type createOptions struct {
	remember bool
	timeout  time.Duration
	claims   map[string]any
}

// WithRemember selects Session.RememberTimeout instead of Session.Timeout.
func WithRemember(remember bool) CreateOption {
	return func(o *createOptions) { o.remember = remember }
}

// WithTimeout overrides the session lifetime for this call.
func WithTimeout(d time.Duration) CreateOption {
	return func(o *createOptions) { o.timeout = d }
}

// WithClaims merges extra claims into the sealed payload. Core fields
// (user_id, username, email, role, created_at, last_activity, lifetime) win on collision.
// Claims are stored as JSON: Resolve returns numbers as json.Number, nested
// objects as map[string]any and arrays as []any.
func WithClaims(claims map[string]any) CreateOption {
	return func(o *createOptions) { o.claims = claims }
}
