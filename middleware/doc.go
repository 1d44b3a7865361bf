// Package middleware adapts coursegate.Engine to net/http.
//
// # Chain
//
//   - [Authenticate] resolves the caller (session cookie first, then bearer
//     token) and attaches the result to the request context. Anonymous
//     requests pass through.
//   - [RequireAuthenticated] rejects anonymous callers with 401 and both
//     WWW-Authenticate challenges.
//   - [RequireRole] rejects authenticated callers without one of the listed
//     roles with 403.
//
// Infrastructure failures (session store, audit trail, resolver) surface as
// 503. They never degrade to anonymous.
//
// # Cookies
//
// [SetSessionCookie] and [ClearSessionCookie] write the session cookie using
// the Engine's CookieConfig. The cookie is always HttpOnly.
//
// # What this package must NOT do
//
//   - Decide access to content (use Engine.Authorize).
//   - Touch the session store directly.
//   - Trust forwarded-for headers unless TrustProxyHeaders is set.
package middleware
