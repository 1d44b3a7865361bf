package audit_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/coursegate/audit"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, audit.Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, audit.Event) {
	<-s.gate
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	t.Parallel()
	sink := &countingSink{}
	d := audit.NewDispatcher(audit.DispatcherConfig{BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), newEvent(audit.EventLogin, "u", "s"))
	}
	d.Close()

	assert.Equal(t, int64(10), sink.count.Load())
	assert.Zero(t, d.Dropped())

	d.Emit(context.Background(), newEvent(audit.EventLogin, "u", "s"))
	assert.Equal(t, int64(10), sink.count.Load(), "emit after close is ignored")
}

func TestDispatcherDropIfFull(t *testing.T) {
	t.Parallel()
	sink := &gateSink{gate: make(chan struct{})}
	d := audit.NewDispatcher(audit.DispatcherConfig{BufferSize: 1, DropIfFull: true}, sink)

	start := time.Now()
	for i := 0; i < 20; i++ {
		d.Emit(context.Background(), newEvent(audit.EventLogin, "u", "s"))
	}
	assert.Less(t, time.Since(start), time.Second, "emit must not block when dropping")
	assert.Positive(t, d.Dropped())

	close(sink.gate)
	d.Close()
}

func TestDispatcherBlockingHonorsContext(t *testing.T) {
	t.Parallel()
	sink := &gateSink{gate: make(chan struct{})}
	d := audit.NewDispatcher(audit.DispatcherConfig{BufferSize: 1}, sink)

	// The worker takes the first event and blocks; the second fills the buffer.
	d.Emit(context.Background(), newEvent(audit.EventLogin, "u", "s"))
	d.Emit(context.Background(), newEvent(audit.EventLogin, "u", "s"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d.Emit(ctx, newEvent(audit.EventLogin, "u", "s"))
	assert.Equal(t, uint64(1), d.Dropped())

	close(sink.gate)
	d.Close()
}

func TestNilDispatcherIsNoOp(t *testing.T) {
	t.Parallel()
	d := audit.NewDispatcher(audit.DispatcherConfig{}, nil)
	require.Nil(t, d)
	d.Emit(context.Background(), newEvent(audit.EventLogin, "u", "s"))
	d.Close()
	assert.Zero(t, d.Dropped())
}

func TestSlogSink(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ev := newEvent(audit.EventDecryptionFailed, "alice", "s1")
	ev.Metadata = map[string]string{"key_id": "k1"}
	audit.NewSlogSink(logger).Emit(context.Background(), ev)

	out := buf.String()
	assert.Contains(t, out, `"type":"decryption_failed"`)
	assert.Contains(t, out, `"meta.key_id":"k1"`)
	assert.Contains(t, out, `"session_id":"s1"`)
}
