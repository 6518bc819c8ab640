package commandlog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options selects and configures a backend
type Options struct {
	Backend        string
	SQLitePath     string
	PostgresDSN    string
	MaxConnections int
}

// NewStore opens the backend named by opts.Backend
func NewStore(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return NewSQLiteStore(opts.SQLitePath)
	case BackendPostgres:
		db, err := OpenPostgres(ctx, opts.PostgresDSN, opts.MaxConnections)
		if err != nil {
			return nil, err
		}
		store, err := NewPostgresStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported command log backend: %s", opts.Backend)
	}
}

// Recorder writes entries to a Store. Recording failures are logged and never returned.
type Recorder struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewRecorder creates a new recorder
func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Record stores one command outcome. cmdErr is nil for a successful command.
func (r *Recorder) Record(ctx context.Context, text, action string, started time.Time, cmdErr error, errType string) {
	entry := &Entry{
		ID:         uuid.New().String(),
		Action:     action,
		Text:       text,
		Success:    cmdErr == nil,
		DurationMs: r.now().Sub(started).Milliseconds(),
		Timestamp:  started.UTC(),
	}
	if cmdErr != nil {
		entry.ErrorMsg = cmdErr.Error()
		entry.ErrorType = errType
	}
	if entry.DurationMs < 0 {
		entry.DurationMs = 0
	}

	if err := r.store.CreateEntry(ctx, entry); err != nil {
		r.logger.Warn("Failed to record command",
			zap.String("action", action),
			zap.Error(err))
	}
}

// List returns the newest entries first, optionally filtered by action
func (r *Recorder) List(ctx context.Context, action string, limit int) ([]*Entry, error) {
	if action != "" {
		return r.store.ListByAction(ctx, action, limit)
	}
	return r.store.ListEntries(ctx, limit)
}

// Summary aggregates the newest limit entries
func (r *Recorder) Summary(ctx context.Context, limit int) (*Summary, error) {
	entries, err := r.store.ListEntries(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list command log: %w", err)
	}
	return Summarize(entries), nil
}

// Prune removes entries older than retention
func (r *Recorder) Prune(ctx context.Context, retention time.Duration) (int, error) {
	removed, err := r.store.DeleteOlderThan(ctx, r.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to prune command log: %w", err)
	}
	if removed > 0 {
		r.logger.Info("Pruned command log", zap.Int("removed", removed), zap.Duration("retention", retention))
	}
	return removed, nil
}

// StartRetention prunes on every interval until ctx is done. A zero retention disables pruning.
func (r *Recorder) StartRetention(ctx context.Context, retention, interval time.Duration) {
	if retention <= 0 || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.Prune(ctx, retention); err != nil {
					r.logger.Warn("Command log retention failed", zap.Error(err))
				}
			}
		}
	}()
}

// Ping reports whether the backing store is reachable
func (r *Recorder) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// Summarize computes success rate, action breakdown and error patterns over entries
func Summarize(entries []*Entry) *Summary {
	summary := &Summary{
		TotalCommands:   len(entries),
		ActionBreakdown: make(map[string]int),
		ErrorPatterns:   []*ErrorPattern{},
	}
	if len(entries) == 0 {
		return summary
	}

	patterns := make(map[string]*ErrorPattern)
	var totalDuration int64
	var first, last *time.Time

	for _, e := range entries {
		if e.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		totalDuration += e.DurationMs

		action := e.Action
		if action == "" {
			action = "unknown"
		}
		summary.ActionBreakdown[action]++

		if !e.Success {
			errType := e.ErrorType
			if errType == "" {
				errType = extractErrorType(e.ErrorMsg)
			}
			key := action + ":" + errType
			p, ok := patterns[key]
			if !ok {
				p = &ErrorPattern{Action: action, ErrorType: errType, SampleError: e.ErrorMsg}
				patterns[key] = p
			}
			p.Count++
			if e.Timestamp.After(p.LastOccurred) {
				p.LastOccurred = e.Timestamp
			}
		}

		ts := e.Timestamp
		if first == nil || ts.Before(*first) {
			first = &ts
		}
		if last == nil || ts.After(*last) {
			last = &ts
		}
	}

	summary.SuccessRate = float64(summary.Succeeded) / float64(summary.TotalCommands)
	summary.AvgDurationMs = float64(totalDuration) / float64(summary.TotalCommands)
	summary.FirstCommand = first
	summary.LastCommand = last

	for _, p := range patterns {
		summary.ErrorPatterns = append(summary.ErrorPatterns, p)
	}
	sort.Slice(summary.ErrorPatterns, func(i, j int) bool {
		a, b := summary.ErrorPatterns[i], summary.ErrorPatterns[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Action+a.ErrorType < b.Action+b.ErrorType
	})

	return summary
}

// extractErrorType classifies an untyped error message
func extractErrorType(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "not found"):
		return "not_found"
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "deadline"):
		return "timeout"
	case strings.Contains(lower, "validation"), strings.Contains(lower, "invalid"):
		return "validation"
	default:
		return "other"
	}
}
