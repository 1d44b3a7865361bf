package coursegate

import (
	"net/http"

	"github.com/MrEthical07/coursegate/audit"
	"github.com/MrEthical07/coursegate/internal/security"
)

// SecurityReport describes the engine's effective security posture.
type SecurityReport = security.Report

// SecurityReport summarizes the active configuration without exposing key
// material. Warnings list valid but weaker settings.
func (e *Engine) SecurityReport() SecurityReport {
	cfg := e.config
	_, queryable := e.trail.(audit.Reader)

	return security.BuildReport(security.ReportInput{
		EnvelopeKeyID:     e.envelope.KeyID(),
		SessionTimeout:    cfg.Session.Timeout,
		RememberTimeout:   cfg.Session.RememberTimeout,
		SlidingExpiration: cfg.Session.SlidingExpiration,
		LazySweep:         cfg.Session.LazySweep,
		CookieSecure:      cfg.Cookie.Secure,
		CookieSameSite:    sameSiteName(cfg.Cookie.SameSite),
		BearerEnabled:     e.bearer != nil,
		BearerAlgorithm:   string(cfg.Bearer.SigningMethod),
		BearerTTL:         cfg.Bearer.TokenTTL,
		BearerIssuer:      cfg.Bearer.Issuer,
		BearerAudience:    cfg.Bearer.Audience,
		PlaybackEnabled:   e.playback != nil,
		PlaybackTTL:       cfg.Playback.TTL,
		HasUserDirectory:  e.users != nil,
		TrailIsReader:     queryable,
		HasObservers:      e.observers != nil,
	})
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteNoneMode:
		return "none"
	case http.SameSiteLaxMode, http.SameSiteDefaultMode:
		return "lax"
	default:
		return "lax"
	}
}
