package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

// FuzzParseBearer exercises the token parser with arbitrary strings.
// Goal: no panics; invalid inputs must be rejected with errors.
func FuzzParseBearer(f *testing.F) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		f.Fatal(err)
	}
	mgr, err := NewManager(Config{
		TTL:           5 * time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "fuzz-test",
		Leeway:        30 * time.Second,
		KeyID:         "k1",
	})
	if err != nil {
		f.Fatal(err)
	}

	validToken, err := mgr.CreateBearer("alice")
	if err != nil {
		f.Fatal(err)
	}
	playback, _, err := mgr.CreatePlayback("1", "c", "l", time.Minute)
	if err != nil {
		f.Fatal(err)
	}

	f.Add(validToken)
	f.Add(playback)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJFZERTQSJ9.eyJ1aWQiOiJ0ZXN0In0.invalid")
	f.Add("eyJhbGciOiJub25lIn0.eyJ1aWQiOiJ0ZXN0In0.")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := mgr.ParseBearer(input)
		if err == nil && (claims == nil || claims.Subject == "") {
			t.Fatal("ParseBearer accepted a token without subject")
		}
		pc, err := mgr.ParsePlayback(input)
		if err == nil && (pc == nil || pc.UserID == "") {
			t.Fatal("ParsePlayback accepted a token without user")
		}
	})
}
