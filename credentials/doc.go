// Package credentials is a reference implementation of the credential and user lookups the
// engine consumes. The engine itself never hashes or compares passwords.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so a caller can
// re-hash after the next successful login.
//
// # What this package must NOT do
//
//   - Log plaintext passwords or hash parameters.
//   - Import coursegate or session.
package credentials
