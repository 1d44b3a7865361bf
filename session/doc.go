// Package session provides durable session record persistence for the engine.
//
// A [Record] maps an opaque session id to an owner, an encrypted payload, and clear-text
// client metadata. Records are written by [Store] implementations: [RedisStore] for
// production and [MemoryStore] for tests and single-process deployments.
//
// # Binary encoding
//
// Records are persisted in a compact, versioned binary format. The encoder is
// append-only: new schema versions add fields but never reinterpret old ones.
//
// # Consistency contract
//
//   - [Store.Update] only writes when the record still exists; it never resurrects a
//     deleted session.
//   - [Store.Delete] and [Store.SweepExpired] are compare-and-delete: each removed record is
//     handed to exactly one caller, which owns the follow-up audit event.
//
// # Architecture boundaries
//
// This package does NOT decrypt payloads, classify devices, or emit audit events. Those
// responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import coursegate, envelope, or audit (no upward imports).
//   - Interpret the encrypted payload.
//   - Silently swallow storage failures; they surface as [ErrStoreUnavailable].
package session
