// Package jwt issues and verifies the two signed token kinds the engine uses: legacy bearer
// tokens {sub, exp} and short-lived video playback grants. Both are verified strictly:
// pinned algorithm, required expiry, optional issuer/audience, and a token-use claim that
// keeps one kind from being accepted as the other.
package jwt
