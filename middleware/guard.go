package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/MrEthical07/coursegate"
	"github.com/MrEthical07/coursegate/access"
)

// Options tunes request extraction.
type Options struct {
	// TrustProxyHeaders enables CF-Connecting-IP, DO-Connecting-IP,
	// X-Forwarded-For and X-Real-IP. Leave it off unless a proxy you control
	// overwrites them.
	TrustProxyHeaders bool
}

// Authenticate resolves the caller and stores the coursegate.Resolution and
// coursegate.RequestMetadata in the request context.
func Authenticate(engine *coursegate.Engine, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, coursegate.ErrEngineNotReady)
				return
			}

			meta := coursegate.RequestMetadata{
				IPAddress: ClientIP(r, opts.TrustProxyHeaders),
				UserAgent: r.UserAgent(),
			}
			ctx := coursegate.WithRequestMetadata(r.Context(), meta)

			creds := coursegate.Credentials{
				SessionID: SessionID(r, engine.CookieConfig()),
			}
			if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
				creds.BearerToken = token
			}

			res, err := engine.ResolvePrincipal(ctx, creds)
			if err != nil {
				WriteError(w, err)
				return
			}

			ctx = coursegate.WithResolution(ctx, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated must run after Authenticate.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !coursegate.PrincipalFromContext(r.Context()).Authenticated() {
			WriteError(w, coursegate.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits authenticated callers holding one of roles. Anonymous
// callers get 401, others 403.
func RequireRole(roles ...access.Role) func(http.Handler) http.Handler {
	allowed := slices.Clone(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := coursegate.PrincipalFromContext(r.Context())
			if !p.Authenticated() {
				WriteError(w, coursegate.ErrUnauthenticated)
				return
			}
			if !slices.Contains(allowed, p.Role) {
				WriteError(w, coursegate.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
