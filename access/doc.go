// Package access computes resource access decisions for a resolved principal.
//
// # Tiers
//
// A resource is free (open to everyone), internal (teacher/admin only), or premium
// (paid enrollment or admin). A lesson flagged as a free preview is open regardless
// of its course's tier.
//
// # Derived actions
//
// Every denial carries a [Reason]; the [Action] suggested to the client is computed
// from that reason and the principal's anonymity, never stored alongside it.
//
// # What this package must NOT do
//
//   - Perform I/O. Enrollment facts are passed in by the caller.
//   - Import coursegate, session, or jwt.
package access
