package coursegate

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/coursegate/access"
	"github.com/MrEthical07/coursegate/audit"
	"github.com/MrEthical07/coursegate/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var (
	testEnvelopeKey = bytes.Repeat([]byte{0x11}, 32)
	testBearerKey   = []byte("bearer-secret-0123456789abcdef-xyz")
	testPlaybackKey = []byte("playback-secret-0123456789abcdef-x")
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Envelope.Key = testEnvelopeKey
	cfg.Bearer.Enabled = true
	cfg.Bearer.Secret = testBearerKey
	cfg.Playback.Enabled = true
	cfg.Playback.Secret = testPlaybackKey
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC().Truncate(time.Millisecond)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeDirectory struct {
	mu        sync.Mutex
	users     map[string]access.Principal
	passwords map[string]string
	lookups   int
}

func newFakeDirectory() *fakeDirectory {
	d := &fakeDirectory{
		users:     map[string]access.Principal{},
		passwords: map[string]string{},
	}
	d.add(alice, "alice-password")
	d.add(bob, "bob-password")
	d.add(admin, "admin-password")
	return d
}

var (
	alice = access.Principal{UserID: "u-alice", Username: "alice", Email: "alice@example.com", Role: access.RoleStudent, Active: true}
	bob   = access.Principal{UserID: "u-bob", Username: "bob", Email: "bob@example.com", Role: access.RoleTeacher, Active: true}
	admin = access.Principal{UserID: "u-admin", Username: "root", Email: "root@example.com", Role: access.RoleAdmin, Active: true}
)

func (d *fakeDirectory) add(p access.Principal, password string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[p.UserID] = p
	d.passwords[p.Username] = password
}

func (d *fakeDirectory) setActive(userID string, active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.users[userID]
	p.Active = active
	d.users[userID] = p
}

func (d *fakeDirectory) VerifyCredentials(_ context.Context, identifier, secret string) (access.Principal, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.users {
		if strings.EqualFold(p.Username, identifier) || strings.EqualFold(p.Email, identifier) {
			if d.passwords[p.Username] == secret {
				return p, true, nil
			}
			return access.Principal{}, false, nil
		}
	}
	return access.Principal{}, false, nil
}

func (d *fakeDirectory) LookupUser(_ context.Context, userID string) (access.Principal, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups++
	p, ok := d.users[userID]
	return p, ok, nil
}

func (d *fakeDirectory) LookupUsername(_ context.Context, username string) (access.Principal, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups++
	for _, p := range d.users {
		if p.Username == username {
			return p, true, nil
		}
	}
	return access.Principal{}, false, nil
}

type testEngine struct {
	*Engine
	store *session.MemoryStore
	trail *audit.MemoryTrail
	clock *fakeClock
	users *fakeDirectory
}

func newTestEngine(t *testing.T, mutate ...func(*Config)) *testEngine {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	te := &testEngine{
		store: session.NewMemoryStore(),
		trail: audit.NewMemoryTrail(),
		clock: newFakeClock(),
		users: newFakeDirectory(),
	}
	engine, err := New().
		WithConfig(cfg).
		WithStore(te.store).
		WithAuditTrail(te.trail).
		WithCredentialVerifier(te.users).
		WithUserDirectory(te.users).
		WithEnrollmentLookup(EnrollmentLookupFunc(func(_ context.Context, userID, courseID string) (bool, error) {
			return userID == alice.UserID && courseID == "go-101", nil
		})).
		WithClock(te.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	te.Engine = engine
	return te
}

func newRedisTestEngine(t *testing.T) (*Engine, *miniredis.Miniredis, *audit.MemoryTrail) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	trail := audit.NewMemoryTrail()
	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(client).
		WithAuditTrail(trail).
		WithUserDirectory(newFakeDirectory()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr, trail
}

func eventTypes(events []audit.Event) []audit.EventType {
	out := make([]audit.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func mustCreate(t *testing.T, e *Engine, p access.Principal, opts ...CreateOption) *Grant {
	t.Helper()
	grant, err := e.Create(context.Background(), p, RequestMetadata{
		IPAddress: "203.0.113.7",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36",
	}, opts...)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return grant
}
