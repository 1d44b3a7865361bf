package security

import "time"

// Report summarizes the security posture of a configured engine. It holds no
// secrets.
type Report struct {
	EnvelopeKeyID     string        `json:"envelope_key_id" yaml:"envelope_key_id"`
	SessionTimeout    time.Duration `json:"session_timeout" yaml:"session_timeout"`
	RememberTimeout   time.Duration `json:"remember_timeout" yaml:"remember_timeout"`
	SlidingExpiration bool          `json:"sliding_expiration" yaml:"sliding_expiration"`
	LazySweep         bool          `json:"lazy_sweep" yaml:"lazy_sweep"`

	CookieSecure   bool   `json:"cookie_secure" yaml:"cookie_secure"`
	CookieSameSite string `json:"cookie_same_site" yaml:"cookie_same_site"`

	BearerEnabled   bool          `json:"bearer_enabled" yaml:"bearer_enabled"`
	BearerAlgorithm string        `json:"bearer_algorithm,omitempty" yaml:"bearer_algorithm,omitempty"`
	BearerTTL       time.Duration `json:"bearer_ttl,omitempty" yaml:"bearer_ttl,omitempty"`
	BearerScoped    bool          `json:"bearer_scoped" yaml:"bearer_scoped"`

	PlaybackEnabled bool          `json:"playback_enabled" yaml:"playback_enabled"`
	PlaybackTTL     time.Duration `json:"playback_ttl,omitempty" yaml:"playback_ttl,omitempty"`

	UserRecheckActive bool `json:"user_recheck_active" yaml:"user_recheck_active"`
	AuditQueryable    bool `json:"audit_queryable" yaml:"audit_queryable"`
	ObserversActive   bool `json:"observers_active" yaml:"observers_active"`

	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

type ReportInput struct {
	EnvelopeKeyID     string
	SessionTimeout    time.Duration
	RememberTimeout   time.Duration
	SlidingExpiration bool
	LazySweep         bool
	CookieSecure      bool
	CookieSameSite    string
	BearerEnabled     bool
	BearerAlgorithm   string
	BearerTTL         time.Duration
	BearerIssuer      string
	BearerAudience    string
	PlaybackEnabled   bool
	PlaybackTTL       time.Duration
	HasUserDirectory  bool
	TrailIsReader     bool
	HasObservers      bool
}

// Warnings are emitted for combinations that are valid but weaken guarantees.
const (
	WarnInsecureCookie   = "session cookie is sent over plain HTTP"
	WarnSameSiteNone     = "session cookie is sent on cross-site requests"
	WarnUnscopedBearer   = "bearer tokens carry no issuer or audience"
	WarnNoUserRecheck    = "no user directory: deactivated users keep their sessions until expiry"
	WarnEndlessSliding   = "sliding expiration without lazy sweep lets idle sessions linger until swept"
	WarnLongPlayback     = "playback grants outlive one hour"
	WarnAuditUnqueryable = "audit trail cannot be queried"
)

func BuildReport(input ReportInput) Report {
	r := Report{
		EnvelopeKeyID:     input.EnvelopeKeyID,
		SessionTimeout:    input.SessionTimeout,
		RememberTimeout:   input.RememberTimeout,
		SlidingExpiration: input.SlidingExpiration,
		LazySweep:         input.LazySweep,
		CookieSecure:      input.CookieSecure,
		CookieSameSite:    input.CookieSameSite,
		BearerEnabled:     input.BearerEnabled,
		PlaybackEnabled:   input.PlaybackEnabled,
		UserRecheckActive: input.HasUserDirectory,
		AuditQueryable:    input.TrailIsReader,
		ObserversActive:   input.HasObservers,
	}

	if input.BearerEnabled {
		r.BearerAlgorithm = input.BearerAlgorithm
		r.BearerTTL = input.BearerTTL
		r.BearerScoped = input.BearerIssuer != "" && input.BearerAudience != ""
	}
	if input.PlaybackEnabled {
		r.PlaybackTTL = input.PlaybackTTL
	}

	if !input.CookieSecure {
		r.Warnings = append(r.Warnings, WarnInsecureCookie)
	}
	if input.CookieSameSite == "none" {
		r.Warnings = append(r.Warnings, WarnSameSiteNone)
	}
	if input.BearerEnabled && !r.BearerScoped {
		r.Warnings = append(r.Warnings, WarnUnscopedBearer)
	}
	if !input.HasUserDirectory {
		r.Warnings = append(r.Warnings, WarnNoUserRecheck)
	}
	if input.SlidingExpiration && !input.LazySweep {
		r.Warnings = append(r.Warnings, WarnEndlessSliding)
	}
	if input.PlaybackEnabled && input.PlaybackTTL > time.Hour {
		r.Warnings = append(r.Warnings, WarnLongPlayback)
	}
	if !input.TrailIsReader {
		r.Warnings = append(r.Warnings, WarnAuditUnqueryable)
	}
	return r
}
