package coursegate

import (
	"errors"

	"github.com/MrEthical07/coursegate/envelope"
	"github.com/MrEthical07/coursegate/session"
)

var (
	// ErrConfiguration marks invalid configuration. Fatal at startup.
	ErrConfiguration = envelope.ErrConfiguration
	// ErrIntegrity marks a payload that failed authentication. The engine converts it
	// to ErrUnauthenticated after deleting and auditing the session.
	ErrIntegrity = envelope.ErrIntegrity
	// ErrStoreUnavailable marks a session store failure.
	ErrStoreUnavailable = session.ErrStoreUnavailable

	// ErrUnauthenticated covers every missing, expired, tampered or invalid credential.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrAuditUnavailable is returned when the audit trail rejects an event.
	ErrAuditUnavailable = errors.New("audit trail unavailable")
	// ErrInvalidCredentials is returned by Login for an unknown identifier or wrong secret.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is returned when an inactive user tries to log in.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrForbidden is returned when an authenticated principal lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrEngineNotReady is returned when a required capability was not configured.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrResolverFailed wraps unexpected errors from a principal resolver.
	ErrResolverFailed = errors.New("principal resolver failed")
	// ErrBearerDisabled is returned by IssueBearer when bearer tokens are off.
	ErrBearerDisabled = errors.New("bearer tokens disabled")
	// ErrPlaybackDisabled is returned when playback grants are off.
	ErrPlaybackDisabled = errors.New("playback grants disabled")
	// ErrClaimsTooLarge is returned when a sealed payload would exceed Session.MaxClaimsSize.
	ErrClaimsTooLarge = errors.New("session claims too large")
)
