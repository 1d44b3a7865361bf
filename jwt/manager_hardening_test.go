package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func newHSManager(t *testing.T, now func() time.Time) *Manager {
	t.Helper()
	m, err := NewManager(Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: testSecret, Now: now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerValidation(t *testing.T) {
	pub, _ := newEdKeys(t)
	cases := map[string]Config{
		"zero ttl":       {SigningMethod: MethodHS256, PrivateKey: testSecret},
		"short secret":   {TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("short")},
		"huge leeway":    {TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: testSecret, Leeway: time.Hour},
		"ed no pub":      {TTL: time.Minute, SigningMethod: MethodEd25519},
		"ed bad pub":     {TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: []byte("nope")},
		"unknown method": {TTL: time.Minute, SigningMethod: "rs256", PublicKey: pub},
	}
	for name, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestBearerRoundTrip(t *testing.T) {
	m := newHSManager(t, nil)
	token, err := m.CreateBearer("alice")
	if err != nil {
		t.Fatalf("create bearer: %v", err)
	}
	claims, err := m.ParseBearer(token)
	if err != nil {
		t.Fatalf("parse bearer: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("expected subject alice, got %q", claims.Subject)
	}
	if claims.ExpiresAt == nil {
		t.Fatal("expected exp claim")
	}

	if _, err := m.CreateBearer(""); err == nil {
		t.Fatal("expected empty subject to be rejected")
	}
}

func TestBearerExpiryEnforced(t *testing.T) {
	issued := time.Now()
	clock := issued
	m := newHSManager(t, func() time.Time { return clock })

	token, err := m.CreateBearer("alice")
	if err != nil {
		t.Fatalf("create bearer: %v", err)
	}
	clock = issued.Add(2 * time.Hour)
	if _, err := m.ParseBearer(token); !errors.Is(err, gjwt.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestBearerWithoutExpRejected(t *testing.T) {
	m := newHSManager(t, nil)
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{"sub": "alice"})
	token, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.ParseBearer(token); err == nil {
		t.Fatal("expected token without exp to be rejected")
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := BearerClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	token, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.ParseBearer(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
	if _, err := m.CreateBearer("alice"); err == nil {
		t.Fatal("expected verify-only manager to refuse signing")
	}
}

func TestWrongSecretRejected(t *testing.T) {
	m := newHSManager(t, nil)
	other, err := NewManager(Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("ffffffffffffffffffffffffffffffff")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := other.CreateBearer("alice")
	if err != nil {
		t.Fatalf("create bearer: %v", err)
	}
	if _, err := m.ParseBearer(token); err == nil {
		t.Fatal("expected signature mismatch")
	}
}

func TestIssuerAudienceAndKeyID(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "coursegate",
		Audience:      "api",
		Leeway:        30 * time.Second,
		KeyID:         "k1",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.CreateBearer("alice")
	if err != nil {
		t.Fatalf("create bearer: %v", err)
	}
	if _, err := m.ParseBearer(token); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}

	sign := func(claims gjwt.Claims, kid string) string {
		tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
		if kid != "" {
			tok.Header["kid"] = kid
		}
		s, err := tok.SignedString(priv)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	base := func() BearerClaims {
		return BearerClaims{RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    "coursegate",
			Audience:  gjwt.ClaimStrings{"api"},
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		}}
	}

	wrongIssuer := base()
	wrongIssuer.Issuer = "other"
	if _, err := m.ParseBearer(sign(wrongIssuer, "k1")); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}

	wrongAudience := base()
	wrongAudience.Audience = gjwt.ClaimStrings{"other-api"}
	if _, err := m.ParseBearer(sign(wrongAudience, "k1")); err == nil {
		t.Fatal("expected wrong audience to fail")
	}

	if _, err := m.ParseBearer(sign(base(), "")); err == nil {
		t.Fatal("expected missing kid to fail")
	}
	if _, err := m.ParseBearer(sign(base(), "k2")); err == nil {
		t.Fatal("expected unknown kid to fail")
	}

	withinLeeway := base()
	withinLeeway.ExpiresAt = gjwt.NewNumericDate(time.Now().Add(-10 * time.Second))
	if _, err := m.ParseBearer(sign(withinLeeway, "k1")); err != nil {
		t.Fatalf("expected token inside leeway to parse: %v", err)
	}
}

func TestPlaybackRoundTripAndSeparation(t *testing.T) {
	m := newHSManager(t, nil)

	token, exp, err := m.CreatePlayback("42", "course-1", "lesson-3", 10*time.Minute)
	if err != nil {
		t.Fatalf("create playback: %v", err)
	}
	if d := time.Until(exp); d <= 9*time.Minute || d > 10*time.Minute {
		t.Fatalf("unexpected playback expiry %v", d)
	}

	claims, err := m.ParsePlayback(token)
	if err != nil {
		t.Fatalf("parse playback: %v", err)
	}
	if claims.UserID != "42" || claims.CourseID != "course-1" || claims.LessonID != "lesson-3" {
		t.Fatalf("unexpected playback claims: %+v", claims)
	}

	if _, err := m.ParseBearer(token); !errors.Is(err, ErrWrongTokenUse) {
		t.Fatalf("playback token accepted as bearer: %v", err)
	}

	bearer, err := m.CreateBearer("alice")
	if err != nil {
		t.Fatalf("create bearer: %v", err)
	}
	if _, err := m.ParsePlayback(bearer); !errors.Is(err, ErrWrongTokenUse) {
		t.Fatalf("bearer token accepted as playback: %v", err)
	}

	if _, _, err := m.CreatePlayback("", "course-1", "", 0); err == nil {
		t.Fatal("expected missing user to be rejected")
	}
}
