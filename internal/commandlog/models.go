package commandlog

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Backends supported by NewStore
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// DefaultListLimit is used when a caller asks for a non-positive number of entries
const DefaultListLimit = 50

// MaxListLimit caps a single listing
const MaxListLimit = 1000

// Entry is an audit record of one dispatched command.
// Action is empty when the text could not be understood.
type Entry struct {
	bun.BaseModel `bun:"table:command_logs,alias:cl"`

	ID         string    `bun:"id,pk" json:"id"`
	Action     string    `bun:"action" json:"action"`
	Text       string    `bun:"text,notnull" json:"text"`
	Success    bool      `bun:"success,notnull" json:"success"`
	ErrorType  string    `bun:"error_type" json:"error_type,omitempty"`
	ErrorMsg   string    `bun:"error_msg" json:"error_msg,omitempty"`
	DurationMs int64     `bun:"duration_ms,notnull" json:"duration_ms"`
	Timestamp  time.Time `bun:"timestamp,notnull,default:current_timestamp" json:"timestamp"`
}

// Validate validates the entry before it is stored
func (e *Entry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("entry ID cannot be empty")
	}
	if e.Text == "" {
		return fmt.Errorf("command text cannot be empty")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp cannot be zero")
	}
	if e.DurationMs < 0 {
		return fmt.Errorf("duration cannot be negative")
	}
	return nil
}

// Summary aggregates a window of entries
type Summary struct {
	TotalCommands   int             `json:"total_commands"`
	Succeeded       int             `json:"succeeded"`
	Failed          int             `json:"failed"`
	SuccessRate     float64         `json:"success_rate"`
	AvgDurationMs   float64         `json:"avg_duration_ms"`
	ActionBreakdown map[string]int  `json:"action_breakdown"`
	ErrorPatterns   []*ErrorPattern `json:"error_patterns"`
	FirstCommand    *time.Time      `json:"first_command,omitempty"`
	LastCommand     *time.Time      `json:"last_command,omitempty"`
}

// ErrorPattern counts failures sharing an action and error type
type ErrorPattern struct {
	Action       string    `json:"action"`
	ErrorType    string    `json:"error_type"`
	Count        int       `json:"count"`
	LastOccurred time.Time `json:"last_occurred"`
	SampleError  string    `json:"sample_error"`
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
