// Package envelope seals and opens opaque session payloads with AES-256-GCM.
//
// A sealed blob is the 12-byte random nonce followed by the GCM ciphertext and tag.
// Every [Envelope.Seal] call draws a fresh nonce from crypto/rand; nonces are never
// derived from counters or reused.
//
// # Architecture boundaries
//
// envelope is a leaf package. It knows nothing about sessions, stores, or audit; the
// session engine decides what a failed [Envelope.Open] means (forced invalidation).
//
// # What this package must NOT do
//
//   - Compress or pad plaintexts.
//   - Accept keys of any length other than 32 bytes.
//   - Return partially decrypted data when authentication fails.
package envelope
