package health

import (
	"context"
	"fmt"
	"os"
)

// Counter is satisfied by the user store
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Pinger is satisfied by the command log
type Pinger interface {
	Ping(ctx context.Context) error
}

// UserStoreChecker checks that the user table answers queries
type UserStoreChecker struct {
	store Counter
}

// NewUserStoreChecker creates a user store health checker
func NewUserStoreChecker(store Counter) *UserStoreChecker {
	return &UserStoreChecker{store: store}
}

func (u *UserStoreChecker) HealthCheck(ctx context.Context) error {
	if u.store == nil {
		return fmt.Errorf("user store is nil")
	}
	_, err := u.store.Count(ctx)
	return err
}

func (u *UserStoreChecker) IsCritical() bool {
	return true
}

func (u *UserStoreChecker) Name() string {
	return "user_store"
}

// CommandLogChecker checks the command log backend.
// Commands still execute when it is down, so it is not critical.
type CommandLogChecker struct {
	log Pinger
}

// NewCommandLogChecker creates a command log health checker
func NewCommandLogChecker(log Pinger) *CommandLogChecker {
	return &CommandLogChecker{log: log}
}

func (c *CommandLogChecker) HealthCheck(ctx context.Context) error {
	if c.log == nil {
		return fmt.Errorf("command log is nil")
	}
	return c.log.Ping(ctx)
}

func (c *CommandLogChecker) IsCritical() bool {
	return false
}

func (c *CommandLogChecker) Name() string {
	return "command_log"
}

// SourceFileChecker checks that the bootstrap source is still readable
type SourceFileChecker struct {
	path string
}

// NewSourceFileChecker creates a bootstrap source health checker
func NewSourceFileChecker(path string) *SourceFileChecker {
	return &SourceFileChecker{path: path}
}

func (s *SourceFileChecker) HealthCheck(ctx context.Context) error {
	info, err := os.Stat(s.path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", s.path)
	}
	return nil
}

func (s *SourceFileChecker) IsCritical() bool {
	return false
}

func (s *SourceFileChecker) Name() string {
	return "bootstrap_source"
}

// ConfigChecker checks configuration validity
type ConfigChecker struct {
	validate func() error
}

// NewConfigChecker creates a config health checker from a validation function
func NewConfigChecker(validate func() error) *ConfigChecker {
	return &ConfigChecker{validate: validate}
}

func (c *ConfigChecker) HealthCheck(ctx context.Context) error {
	if c.validate == nil {
		return fmt.Errorf("configuration is nil")
	}
	return c.validate()
}

func (c *ConfigChecker) IsCritical() bool {
	return true
}

func (c *ConfigChecker) Name() string {
	return "configuration"
}
