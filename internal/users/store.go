package users

import (
	"context"
	"sync"
)

// InMemoryStore implements UserStore as an ordered, process-local table.
// Insertion order is preserved and duplicate (name, age) rows are allowed.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows []User
}

// NewInMemoryStore creates a new empty user table
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		rows: make([]User, 0),
	}
}

// AddUsers appends all rows as given
func (s *InMemoryStore) AddUsers(ctx context.Context, users []User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = append(s.rows, users...)
	return nil
}

// CreateUser appends one row and tags it as new
func (s *InMemoryStore) CreateUser(ctx context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.IsNew = true
	s.rows = append(s.rows, user)
	return nil
}

// DeleteUser removes all rows matching (name, age). Zero matches is not an error here.
func (s *InMemoryStore) DeleteUser(ctx context.Context, user User) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rows[:0]
	removed := 0
	for _, row := range s.rows {
		if row.SameAs(user) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	// clear the tail so the backing array does not pin removed rows
	for i := len(kept); i < len(s.rows); i++ {
		s.rows[i] = User{}
	}
	s.rows = kept
	return removed, nil
}

// HasUser reports whether any row matches (name, age)
func (s *InMemoryStore) HasUser(ctx context.Context, user User) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.rows {
		if row.SameAs(user) {
			return true, nil
		}
	}
	return false, nil
}

// GetAddedUsers returns the rows created at runtime
func (s *InMemoryStore) GetAddedUsers(ctx context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	added := make([]User, 0)
	for _, row := range s.rows {
		if row.IsNew {
			added = append(added, row)
		}
	}
	return added, nil
}

// GetAllUsers returns a copy of every row
func (s *InMemoryStore) GetAllUsers(ctx context.Context) ([]User, error) {
	return s.snapshot(), nil
}

// Count returns the number of rows
func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}

// GroupBy partitions a snapshot of the table by field
func (s *InMemoryStore) GroupBy(ctx context.Context, field string) (*Group, error) {
	return GroupByExact(s.snapshot(), field)
}

// GroupByFirstChar partitions a snapshot of the table by the first character of field
func (s *InMemoryStore) GroupByFirstChar(ctx context.Context, field string) (*Group, error) {
	return GroupByFirstChar(s.snapshot(), field)
}

// ComputeGroupMean averages field per bucket
func (s *InMemoryStore) ComputeGroupMean(ctx context.Context, group *Group, field string) (map[string]float64, error) {
	if group == nil {
		group = &Group{}
	}
	return group.Mean(field)
}

func (s *InMemoryStore) snapshot() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]User, len(s.rows))
	copy(rows, s.rows)
	return rows
}
