package coursegate

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/coursegate/access"
	"github.com/MrEthical07/coursegate/audit"
	"github.com/MrEthical07/coursegate/session"
)

func TestResolvePrincipalPrefersSession(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	grant := mustCreate(t, te.Engine, alice)
	token, _, err := te.IssueBearer(bob)
	if err != nil {
		t.Fatalf("IssueBearer failed: %v", err)
	}

	res, err := te.ResolvePrincipal(ctx, Credentials{SessionID: grant.ID, BearerToken: token})
	if err != nil {
		t.Fatalf("ResolvePrincipal failed: %v", err)
	}
	if res.Via != ViaSession || res.Principal.UserID != alice.UserID || res.SessionID != grant.ID {
		t.Fatalf("expected session resolution for alice, got %+v", res)
	}
	if got := te.metrics.Value(MetricBearerAccepted) + te.metrics.Value(MetricBearerRejected); got != 0 {
		t.Fatalf("bearer token inspected although session won (%d)", got)
	}
}

func TestResolvePrincipalFallsBackToBearer(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	token, ttl, err := te.IssueBearer(bob)
	if err != nil {
		t.Fatalf("IssueBearer failed: %v", err)
	}
	if ttl <= 0 {
		t.Fatalf("expected positive ttl, got %v", ttl)
	}

	res, err := te.ResolvePrincipal(ctx, Credentials{SessionID: "AAAAAAAAAAAAAAAAAAAAAA", BearerToken: token})
	if err != nil {
		t.Fatalf("ResolvePrincipal failed: %v", err)
	}
	if res.Via != ViaBearer || res.Principal.UserID != bob.UserID || res.SessionID != "" {
		t.Fatalf("expected bearer resolution for bob, got %+v", res)
	}
}

func TestResolvePrincipalAnonymous(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	cases := []Credentials{
		{},
		{SessionID: "nope"},
		{BearerToken: "not.a.token"},
		{SessionID: "AAAAAAAAAAAAAAAAAAAAAA", BearerToken: "garbage"},
	}
	for _, creds := range cases {
		res, err := te.ResolvePrincipal(ctx, creds)
		if err != nil {
			t.Fatalf("%+v: unexpected error %v", creds, err)
		}
		if res.Principal.Authenticated() || res.Via != "" {
			t.Fatalf("%+v: expected anonymous, got %+v", creds, res)
		}
	}
}

func TestResolvePrincipalRejectsBearerForInactiveUser(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	token, _, err := te.IssueBearer(bob)
	if err != nil {
		t.Fatalf("IssueBearer failed: %v", err)
	}
	te.users.setActive(bob.UserID, false)

	res, err := te.ResolvePrincipal(ctx, Credentials{BearerToken: token})
	if err != nil {
		t.Fatalf("ResolvePrincipal failed: %v", err)
	}
	if res.Principal.Authenticated() {
		t.Fatalf("inactive user resolved: %+v", res)
	}
	if got := te.metrics.Value(MetricBearerRejected); got != 1 {
		t.Fatalf("expected 1 rejection, got %d", got)
	}
}

func TestResolvePrincipalBearerSignedWithEnvelopeKeyRejected(t *testing.T) {
	cfg := testConfig()
	cfg.Bearer.Secret = cfg.Envelope.Key
	if err := cfg.Validate(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error for shared key, got %v", err)
	}
}

type staticResolver struct {
	p   access.Principal
	err error
}

func (staticResolver) Name() string { return "static" }

func (r staticResolver) ResolvePrincipal(context.Context, Credentials) (Resolution, bool, error) {
	if r.err != nil {
		return Resolution{}, false, r.err
	}
	return Resolution{Principal: r.p}, true, nil
}

func TestResolvePrincipalCustomResolverRunsLast(t *testing.T) {
	engine, err := New().
		WithConfig(testConfig()).
		WithStore(session.NewMemoryStore()).
		WithAuditTrail(audit.NewMemoryTrail()).
		WithUserDirectory(newFakeDirectory()).
		WithResolver(staticResolver{p: admin}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	res, err := engine.ResolvePrincipal(context.Background(), Credentials{})
	if err != nil {
		t.Fatalf("ResolvePrincipal failed: %v", err)
	}
	if res.Via != "static" || !res.Principal.IsAdmin() {
		t.Fatalf("expected static resolver result, got %+v", res)
	}
}

func TestResolvePrincipalWrapsResolverErrors(t *testing.T) {
	engine, err := New().
		WithConfig(testConfig()).
		WithStore(session.NewMemoryStore()).
		WithAuditTrail(audit.NewMemoryTrail()).
		WithUserDirectory(newFakeDirectory()).
		WithResolver(staticResolver{err: errors.New("ldap down")}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.ResolvePrincipal(context.Background(), Credentials{}); !errors.Is(err, ErrResolverFailed) {
		t.Fatalf("expected ErrResolverFailed, got %v", err)
	}
}

func TestContextResolutionRoundTrip(t *testing.T) {
	ctx := context.Background()
	if PrincipalFromContext(ctx).Authenticated() {
		t.Fatal("empty context must be anonymous")
	}
	ctx = WithResolution(ctx, Resolution{Principal: alice, Via: ViaSession})
	if got := PrincipalFromContext(ctx); got != alice {
		t.Fatalf("unexpected principal %+v", got)
	}
	ctx = WithRequestMetadata(ctx, RequestMetadata{IPAddress: "192.0.2.1"})
	if got := RequestMetadataFromContext(ctx).IPAddress; got != "192.0.2.1" {
		t.Fatalf("unexpected ip %q", got)
	}
}
