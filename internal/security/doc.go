// Package security builds the configuration posture report returned by
// coursegate.Engine.SecurityReport.
//
// # What this package must NOT do
//
//   - Read secrets or key material beyond the envelope key id.
//   - Fail: every valid configuration yields a report, weaknesses become warnings.
package security
