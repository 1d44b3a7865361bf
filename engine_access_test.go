package coursegate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/coursegate/access"
	"github.com/MrEthical07/coursegate/audit"
	"github.com/MrEthical07/coursegate/session"
)

func TestAuthorizeConsultsEnrollment(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	premium := access.Resource{CourseID: "go-101", LessonID: "l1", Tier: access.TierPremium}
	other := access.Resource{CourseID: "rust-201", Tier: access.TierPremium}

	tests := []struct {
		name   string
		p      access.Principal
		r      access.Resource
		allow  bool
		action access.Action
	}{
		{"enrolled student", alice, premium, true, access.ActionNone},
		{"unenrolled student", alice, other, false, access.ActionEnroll},
		{"anonymous premium", access.Anonymous(), premium, false, access.ActionLoginAndEnroll},
		{"admin premium", admin, other, true, access.ActionNone},
		{"teacher internal", bob, access.Resource{CourseID: "x", Tier: access.TierInternal}, true, access.ActionNone},
		{"student internal", alice, access.Resource{CourseID: "x", Tier: access.TierInternal}, false, access.ActionContactAdmin},
		{"anonymous preview", access.Anonymous(), access.Resource{CourseID: "x", Tier: access.TierPremium, FreePreview: true}, true, access.ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := te.Authorize(ctx, tt.p, tt.r)
			if err != nil {
				t.Fatalf("Authorize failed: %v", err)
			}
			if d.HasAccess != tt.allow || d.SuggestedAction != tt.action {
				t.Fatalf("got %+v, want allow=%v action=%s", d, tt.allow, tt.action)
			}
		})
	}
}

func TestAuthorizeWithoutLookupOnlyFailsWhenNeeded(t *testing.T) {
	engine, err := New().
		WithConfig(Config{
			Session:  DefaultConfig().Session,
			Envelope: EnvelopeConfig{Key: testEnvelopeKey},
			Cookie:   DefaultConfig().Cookie,
		}).
		WithStore(session.NewMemoryStore()).
		WithAuditTrail(audit.NewMemoryTrail()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	ctx := context.Background()

	if d, err := engine.Authorize(ctx, alice, access.Resource{CourseID: "c", Tier: access.TierFree}); err != nil || !d.HasAccess {
		t.Fatalf("free tier: %+v %v", d, err)
	}
	if _, err := engine.Authorize(ctx, alice, access.Resource{CourseID: "c", Tier: access.TierPremium}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}

func TestGrantAndVerifyPlayback(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()
	lesson := access.Resource{CourseID: "go-101", LessonID: "l7", Tier: access.TierPremium}

	grant, err := te.GrantPlayback(ctx, alice, lesson)
	if err != nil {
		t.Fatalf("GrantPlayback failed: %v", err)
	}
	if !grant.Decision.HasAccess || grant.Token == "" {
		t.Fatalf("expected token, got %+v", grant)
	}
	if want := te.clock.Now().Add(te.config.Playback.TTL).Truncate(time.Second); !grant.ExpiresAt.Equal(want) {
		t.Fatalf("unexpected expiry %v", grant.ExpiresAt)
	}

	uid, err := te.VerifyPlayback(ctx, grant.Token, "go-101", "l7")
	if err != nil || uid != alice.UserID {
		t.Fatalf("VerifyPlayback: uid=%q err=%v", uid, err)
	}
	if _, err := te.VerifyPlayback(ctx, grant.Token, "go-101", "l8"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("token replayed for another lesson: %v", err)
	}
	bearer, _, _ := te.IssueBearer(alice)
	if _, err := te.VerifyPlayback(ctx, bearer, "go-101", "l7"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("bearer token accepted as playback token: %v", err)
	}

	te.users.setActive(alice.UserID, false)
	if _, err := te.VerifyPlayback(ctx, grant.Token, "go-101", "l7"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("deactivated user kept playback: %v", err)
	}
}

func TestGrantPlaybackDenied(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	grant, err := te.GrantPlayback(ctx, alice, access.Resource{CourseID: "rust-201", LessonID: "l1", Tier: access.TierPremium})
	if err != nil {
		t.Fatalf("GrantPlayback failed: %v", err)
	}
	if grant.Decision.HasAccess || grant.Token != "" {
		t.Fatalf("expected denial without token, got %+v", grant)
	}
	if _, err := te.GrantPlayback(ctx, access.Anonymous(), access.Resource{CourseID: "c", Tier: access.TierFree}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for anonymous, got %v", err)
	}
}
