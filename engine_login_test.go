package coursegate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/coursegate/audit"
	"github.com/MrEthical07/coursegate/session"
)

func TestLoginCreatesSession(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	res, err := te.Login(ctx, "Alice@Example.com", "alice-password", RequestMetadata{IPAddress: "192.0.2.10", UserAgent: "curl/8.0"}, true)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.Principal.UserID != alice.UserID {
		t.Fatalf("unexpected principal %+v", res.Principal)
	}
	if res.Grant.MaxAge != 30*24*time.Hour {
		t.Fatalf("remember-me not applied: %v", res.Grant.MaxAge)
	}

	view, err := te.Resolve(ctx, res.Grant.ID)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if view.IPAddress != "192.0.2.10" || view.DeviceLabel != "Desktop - Unknown - Unknown" {
		t.Fatalf("unexpected metadata %+v", view)
	}

	events := te.trail.Events()
	if len(events) != 1 || events[0].Type != audit.EventLogin || events[0].IPAddress != "192.0.2.10" {
		t.Fatalf("unexpected events %+v", events)
	}
	if got := te.metrics.Value(MetricLoginSuccess); got != 1 {
		t.Fatalf("expected 1 login success, got %d", got)
	}
}

func TestLoginFailures(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		identifier, secret string
		want               error
	}{
		{"alice", "wrong", ErrInvalidCredentials},
		{"nobody", "alice-password", ErrInvalidCredentials},
		{"", "alice-password", ErrInvalidCredentials},
		{"alice", "", ErrInvalidCredentials},
	}
	for _, c := range cases {
		if _, err := te.Login(ctx, c.identifier, c.secret, RequestMetadata{}, false); !errors.Is(err, c.want) {
			t.Fatalf("%q/%q: expected %v, got %v", c.identifier, c.secret, c.want, err)
		}
	}

	te.users.setActive(alice.UserID, false)
	if _, err := te.Login(ctx, "alice", "alice-password", RequestMetadata{}, false); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}

	if te.store.Len() != 0 || len(te.trail.Events()) != 0 {
		t.Fatal("failed logins must not create sessions or events")
	}
	if got := te.metrics.Value(MetricLoginFailure); got != 5 {
		t.Fatalf("expected 5 failures, got %d", got)
	}
}

func TestLoginWithoutVerifier(t *testing.T) {
	engine, err := New().
		WithConfig(testConfig()).
		WithStore(session.NewMemoryStore()).
		WithAuditTrail(audit.NewMemoryTrail()).
		WithUserDirectory(newFakeDirectory()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Login(context.Background(), "alice", "x", RequestMetadata{}, false); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}

func TestIssueBearer(t *testing.T) {
	te := newTestEngine(t)
	if _, _, err := te.IssueBearer(alice); err != nil {
		t.Fatalf("IssueBearer failed: %v", err)
	}
	if _, _, err := te.IssueBearer(Resolution{}.Principal); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	off := newTestEngine(t, func(c *Config) { c.Bearer.Enabled = false })
	if _, _, err := off.IssueBearer(alice); !errors.Is(err, ErrBearerDisabled) {
		t.Fatalf("expected ErrBearerDisabled, got %v", err)
	}
}

func TestBuilderRequirements(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).WithAuditTrail(audit.NewMemoryTrail()).Build(); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := New().WithConfig(testConfig()).WithStore(session.NewMemoryStore()).Build(); err == nil {
		t.Fatal("expected error without audit trail")
	}
	if _, err := New().WithConfig(testConfig()).WithStore(session.NewMemoryStore()).WithAuditTrail(audit.NewMemoryTrail()).Build(); err == nil {
		t.Fatal("expected error: bearer without user directory")
	}

	b := New().WithConfig(testConfig()).WithStore(session.NewMemoryStore()).WithAuditTrail(audit.NewMemoryTrail()).WithUserDirectory(newFakeDirectory())
	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected builder reuse to fail")
	}
}

func TestAuditObserverMirrorsDurableEvents(t *testing.T) {
	sink := audit.NewChannelSink(8)
	engine, err := New().
		WithConfig(testConfig()).
		WithStore(session.NewMemoryStore()).
		WithAuditTrail(audit.NewMemoryTrail()).
		WithAuditObserver(sink).
		WithUserDirectory(newFakeDirectory()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	grant := mustCreate(t, engine, alice)
	engine.Close()

	select {
	case ev := <-sink.Events():
		if ev.Type != audit.EventLogin || ev.SessionID != grant.ID {
			t.Fatalf("unexpected mirrored event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("observer did not receive event")
	}
}
