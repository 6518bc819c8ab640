package commandlog

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory. Entries are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewMemoryStore creates a new in-memory command log
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make([]*Entry, 0),
	}
}

func (s *MemoryStore) CreateEntry(ctx context.Context, entry *Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *entry
	s.entries = append(s.entries, &copied)
	return nil
}

func (s *MemoryStore) ListEntries(ctx context.Context, limit int) ([]*Entry, error) {
	return s.list(limit, func(*Entry) bool { return true }), nil
}

func (s *MemoryStore) ListByAction(ctx context.Context, action string, limit int) ([]*Entry, error) {
	return s.list(limit, func(e *Entry) bool { return e.Action == action }), nil
}

// list walks entries newest first; entries are appended in recording order
func (s *MemoryStore) list(limit int, match func(*Entry) bool) []*Entry {
	limit = normalizeLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Entry, 0)
	for i := len(s.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if match(s.entries[i]) {
			copied := *s.entries[i]
			result = append(result, &copied)
		}
	}
	return result
}

func (s *MemoryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := len(s.entries) - len(kept)
	s.entries = kept
	return removed, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
