package users

import (
	"context"
	"io"
)

// UserStore defines the interface for the tabular user store
type UserStore interface {
	// AddUsers appends rows keeping each row's provenance
	AddUsers(ctx context.Context, users []User) error
	// CreateUser appends a single row tagged as new
	CreateUser(ctx context.Context, user User) error
	// DeleteUser removes every row matching (name, age) and returns how many were removed
	DeleteUser(ctx context.Context, user User) (int, error)
	// HasUser reports whether at least one row matches (name, age)
	HasUser(ctx context.Context, user User) (bool, error)

	GetAddedUsers(ctx context.Context) ([]User, error)
	GetAllUsers(ctx context.Context) ([]User, error)
	Count(ctx context.Context) (int, error)

	// GroupBy partitions the rows by the exact value of field
	GroupBy(ctx context.Context, field string) (*Group, error)
	// GroupByFirstChar partitions the rows by the first character of field
	GroupByFirstChar(ctx context.Context, field string) (*Group, error)
	// ComputeGroupMean averages field within each bucket of group
	ComputeGroupMean(ctx context.Context, group *Group, field string) (map[string]float64, error)
}

// UserLoader defines the interface for parsing tabular sources into users
type UserLoader interface {
	// InitUsers parses the bootstrap source into persisted users
	InitUsers(ctx context.Context, source string) ([]User, error)
	// LoadUsers parses a bulk-import source into new users
	LoadUsers(ctx context.Context, source string) ([]User, error)
	// Parse reads rows from r tagging them with the given provenance
	Parse(ctx context.Context, r io.Reader, provenance Provenance) ([]User, error)
}

// UserService defines the interface for user service operations
type UserService interface {
	CreateUser(ctx context.Context, name string, age int) (*User, error)
	DeleteUser(ctx context.Context, name string, age int) (int, error)
	AddUsers(ctx context.Context, users []User) error
	GetAddedUsers(ctx context.Context) ([]User, error)
	GetAllUsers(ctx context.Context) ([]User, error)
	CalcAverageAgeByFirstLetter(ctx context.Context) (map[string]float64, error)
	GroupMean(ctx context.Context, by string, firstChar bool, field string) (map[string]float64, error)

	// Bootstrap parses the startup source; the caller adds the result with AddUsers
	Bootstrap(ctx context.Context, source string) ([]User, error)
	// LoadUsers parses a bulk-import file without adding it
	LoadUsers(ctx context.Context, source string) ([]User, error)
	// ImportUsers parses a bulk-import stream and adds every row as new
	ImportUsers(ctx context.Context, r io.Reader) (*ImportResult, error)
}
