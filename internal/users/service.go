package users

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	store  UserStore
	loader UserLoader
	logger *zap.Logger

	// mu serializes mutations so HasUser+DeleteUser runs as one step
	mu sync.Mutex
}

// NewUserService creates a new user service instance
func NewUserService(store UserStore, loader UserLoader, logger *zap.Logger) *UserServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserServiceImpl{
		store:  store,
		loader: loader,
		logger: logger,
	}
}

// CreateUser validates and appends a new user
func (s *UserServiceImpl) CreateUser(ctx context.Context, name string, age int) (*User, error) {
	user, err := NewAddedUser(name, age)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("Created user", zap.String("name", user.Name), zap.Int("age", user.Age))
	return &user, nil
}

// DeleteUser removes every row matching (name, age).
// It fails with NotFoundError when nothing matches.
func (s *UserServiceImpl) DeleteUser(ctx context.Context, name string, age int) (int, error) {
	target := User{Name: name, Age: age}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.store.HasUser(ctx, target)
	if err != nil {
		return 0, fmt.Errorf("failed to look up user: %w", err)
	}
	if !exists {
		return 0, NewUserNotFoundError(target)
	}

	removed, err := s.store.DeleteUser(ctx, target)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info("Deleted user",
		zap.String("name", name),
		zap.Int("age", age),
		zap.Int("removed", removed))
	return removed, nil
}

// AddUsers appends rows keeping their provenance
func (s *UserServiceImpl) AddUsers(ctx context.Context, users []User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.AddUsers(ctx, users); err != nil {
		return fmt.Errorf("failed to add users: %w", err)
	}
	s.logger.Info("Added users", zap.Int("count", len(users)))
	return nil
}

// GetAddedUsers returns the users created at runtime
func (s *UserServiceImpl) GetAddedUsers(ctx context.Context) ([]User, error) {
	return s.store.GetAddedUsers(ctx)
}

// GetAllUsers returns every user
func (s *UserServiceImpl) GetAllUsers(ctx context.Context) ([]User, error) {
	return s.store.GetAllUsers(ctx)
}

// CalcAverageAgeByFirstLetter groups users by the first character of their name
// and returns the mean age of each group
func (s *UserServiceImpl) CalcAverageAgeByFirstLetter(ctx context.Context) (map[string]float64, error) {
	return s.GroupMean(ctx, FieldName, true, FieldAge)
}

// GroupMean groups users by field (or its first character) and averages another field per group
func (s *UserServiceImpl) GroupMean(ctx context.Context, by string, firstChar bool, field string) (map[string]float64, error) {
	var (
		group *Group
		err   error
	)
	if firstChar {
		group, err = s.store.GroupByFirstChar(ctx, by)
	} else {
		group, err = s.store.GroupBy(ctx, by)
	}
	if err != nil {
		return nil, err
	}

	return s.store.ComputeGroupMean(ctx, group, field)
}

// Bootstrap parses the startup source into persisted users.
// The caller is responsible for adding them with AddUsers.
func (s *UserServiceImpl) Bootstrap(ctx context.Context, source string) ([]User, error) {
	return s.loader.InitUsers(ctx, source)
}

// LoadUsers parses a bulk-import file into new users
func (s *UserServiceImpl) LoadUsers(ctx context.Context, source string) ([]User, error) {
	return s.loader.LoadUsers(ctx, source)
}

// ImportUsers parses r and adds every row as a new user.
// Nothing is added if any row fails validation.
func (s *UserServiceImpl) ImportUsers(ctx context.Context, r io.Reader) (*ImportResult, error) {
	users, err := s.loader.Parse(ctx, r, ProvenanceNew)
	if err != nil {
		return nil, err
	}
	if err := s.AddUsers(ctx, users); err != nil {
		return nil, err
	}

	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	return &ImportResult{Imported: len(users), Total: total}, nil
}
