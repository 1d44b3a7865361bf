package middleware

import (
	"net/http"
	"time"

	"github.com/MrEthical07/coursegate"
	"github.com/MrEthical07/coursegate/internal"
)

// SessionID returns the session cookie value when it is well-formed.
func SessionID(r *http.Request, cfg coursegate.CookieConfig) string {
	c, err := r.Cookie(cfg.Name)
	if err != nil || !internal.ValidSessionID(c.Value) {
		return ""
	}
	return c.Value
}

// SetSessionCookie writes the cookie for a freshly created session.
func SetSessionCookie(w http.ResponseWriter, cfg coursegate.CookieConfig, grant *coursegate.Grant) {
	if grant == nil {
		return
	}
	maxAge := int(grant.MaxAge / time.Second)
	if maxAge <= 0 {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    grant.ID,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   maxAge,
		Expires:  grant.ExpiresAt.UTC(),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter, cfg coursegate.CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
}
