package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process [Store]. Records are cloned on the way in and
// out, so callers never share memory with the store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	byUser  map[string]map[string]struct{}
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		byUser:  make(map[string]map[string]struct{}),
	}
}

// Put implements [Store].
func (m *MemoryStore) Put(_ context.Context, r *Record) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("%w: missing session id", errInvalidRecord)
	}
	if r.UserID == "" {
		return fmt.Errorf("%w: empty userID", errInvalidRecord)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.records[r.ID]; ok && prev.UserID != r.UserID {
		m.unindexLocked(prev)
	}
	m.records[r.ID] = r.Clone()
	ids, ok := m.byUser[r.UserID]
	if !ok {
		ids = make(map[string]struct{})
		m.byUser[r.UserID] = ids
	}
	ids[r.ID] = struct{}{}
	return nil
}

// Get implements [Store].
func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// Update implements [Store].
func (m *MemoryStore) Update(_ context.Context, r *Record) (bool, error) {
	if r == nil || r.ID == "" {
		return false, fmt.Errorf("%w: missing session id", errInvalidRecord)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.records[r.ID]
	if !ok {
		return false, nil
	}
	next := r.Clone()
	next.UserID = prev.UserID
	m.records[r.ID] = next
	return true, nil
}

// Delete implements [Store].
func (m *MemoryStore) Delete(_ context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.unindexLocked(rec)
	delete(m.records, id)
	return rec, nil
}

// ListByUser implements [Store]. Results are ordered by id for determinism.
func (m *MemoryStore) ListByUser(_ context.Context, userID string) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.byUser[userID]
	out := make([]*Record, 0, len(ids))
	for id := range ids {
		if rec, ok := m.records[id]; ok {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SweepExpired implements [Store]. The oldest expiries are removed first.
func (m *MemoryStore) SweepExpired(_ context.Context, now time.Time, limit int) ([]*Record, error) {
	if limit <= 0 {
		return []*Record{}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	due := make([]*Record, 0)
	for _, rec := range m.records {
		if rec.Expired(now) {
			due = append(due, rec)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	for _, rec := range due {
		m.unindexLocked(rec)
		delete(m.records, rec.ID)
	}
	return due, nil
}

// Len returns the number of stored records, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MemoryStore) unindexLocked(rec *Record) {
	ids, ok := m.byUser[rec.UserID]
	if !ok {
		return
	}
	delete(ids, rec.ID)
	if len(ids) == 0 {
		delete(m.byUser, rec.UserID)
	}
}
