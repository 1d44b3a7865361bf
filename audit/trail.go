package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Trail is the durable append-only audit record.
type Trail interface {
	Append(ctx context.Context, event Event) error
}

// Reader reads back recent events, newest first.
type Reader interface {
	Recent(ctx context.Context, filter Filter) ([]Event, error)
}

// MemoryTrail keeps events in process. Useful for tests and demos.
type MemoryTrail struct {
	mu     sync.Mutex
	events []Event
	fail   error
}

// NewMemoryTrail returns an empty [MemoryTrail].
func NewMemoryTrail() *MemoryTrail {
	return &MemoryTrail{}
}

// Append implements [Trail].
func (m *MemoryTrail) Append(_ context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.events = append(m.events, event)
	return nil
}

// FailWith makes every subsequent Append return err. Pass nil to recover.
func (m *MemoryTrail) FailWith(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

// Events returns a copy of all recorded events in append order.
func (m *MemoryTrail) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Recent implements [Reader].
func (m *MemoryTrail) Recent(_ context.Context, filter Filter) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, 0, filter.limit())
	for i := len(m.events) - 1; i >= 0 && len(out) < filter.limit(); i-- {
		if filter.match(m.events[i]) {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

// JSONWriterTrail writes one JSON object per line. Write errors are returned,
// so the writer must be durable for the trail to be.
type JSONWriterTrail struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterTrail returns a trail writing to w.
func NewJSONWriterTrail(w io.Writer) *JSONWriterTrail {
	return &JSONWriterTrail{writer: w}
}

// Append implements [Trail].
func (s *JSONWriterTrail) Append(_ context.Context, event Event) error {
	if s == nil || s.writer == nil {
		return errors.New("audit: nil writer")
	}
	if err := event.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(data); err != nil {
		return fmt.Errorf("audit: write event: %w", err)
	}
	return nil
}

// MultiTrail appends to every trail in order and fails on the first error.
type MultiTrail []Trail

// Append implements [Trail].
func (m MultiTrail) Append(ctx context.Context, event Event) error {
	for _, t := range m {
		if err := t.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
