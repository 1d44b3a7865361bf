// Package coursegate is the trust subsystem of a course platform: encrypted server-side
// sessions, hybrid principal resolution, and resource access decisions.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// coursegate is the public surface. It exposes [Engine], [Builder], [Config], and value types
// ([Grant], [SessionView], [SessionSummary]). Payload sealing lives in envelope, persistence in
// session, decisions in access, and the durable event record in audit. Callers never read or
// write session records directly.
//
// # Lifecycle
//
// A session is created by [Engine.Create] (or [Engine.Login]), touched by every successful
// [Engine.Resolve], and ends by logout, invalidate, invalidate-all, expiry, or tamper
// detection. All five endings delete the record; only the audit event type differs.
//
// # Failure semantics
//
//   - Absent, expired, tampered and malformed sessions all surface as [ErrUnauthenticated].
//   - Store failures surface as [ErrStoreUnavailable] and are never swallowed.
//   - An audit append failure fails the operation with [ErrAuditUnavailable]; a session is
//     never created without its login event.
//
// # What this package must NOT do
//
//   - Hash or compare passwords. Credentials are checked by a [CredentialVerifier].
//   - Read process environment. Configuration arrives as a [Config] value.
//   - Cache session state between calls. The store is the only source of truth.
package coursegate
