// Package audit records session lifecycle events.
//
// # Trails and sinks
//
// A [Trail] is the durable, append-only record: SQLite, PostgreSQL, JSON lines, or
// memory. Append is synchronous and its error is authoritative. Callers must fail the
// operation that produced the event when Append fails.
//
// A [Sink] is a best-effort observer (logs, metrics, streams). Sinks are fed by a
// [Dispatcher] after the trail has accepted the event; a slow sink never blocks a request
// and dropped deliveries are counted.
//
// # What this package must NOT do
//
//   - Update or delete recorded events.
//   - Import coursegate or session.
package audit
