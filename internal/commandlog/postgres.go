package commandlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *bun.DB
}

// OpenPostgres connects to PostgreSQL and verifies the connection
func OpenPostgres(ctx context.Context, dsn string, maxConnections int) (*bun.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	if maxConnections <= 0 {
		maxConnections = 10
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	sqldb.SetMaxOpenConns(maxConnections)
	sqldb.SetMaxIdleConns(maxConnections / 2)
	sqldb.SetConnMaxLifetime(time.Hour)

	db := bun.NewDB(sqldb, pgdialect.New())

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// NewPostgresStore creates the command log table if needed and returns the store
func NewPostgresStore(ctx context.Context, db *bun.DB) (*PostgresStore, error) {
	_, err := db.NewCreateTable().
		Model((*Entry)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create table for %T: %w", (*Entry)(nil), err)
	}

	for _, indexSQL := range []string{
		`CREATE INDEX IF NOT EXISTS idx_command_logs_timestamp ON command_logs (timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_command_logs_action ON command_logs (action, timestamp DESC)`,
	} {
		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return nil, fmt.Errorf("failed to create index with SQL %q: %w", indexSQL, err)
		}
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateEntry(ctx context.Context, entry *Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	_, err := s.db.NewInsert().Model(entry).Exec(ctx)
	return err
}

func (s *PostgresStore) ListEntries(ctx context.Context, limit int) ([]*Entry, error) {
	entries := make([]*Entry, 0)
	err := s.db.NewSelect().
		Model(&entries).
		Order("timestamp DESC").
		Limit(normalizeLimit(limit)).
		Scan(ctx)
	return entries, err
}

func (s *PostgresStore) ListByAction(ctx context.Context, action string, limit int) ([]*Entry, error) {
	entries := make([]*Entry, 0)
	err := s.db.NewSelect().
		Model(&entries).
		Where("action = ?", action).
		Order("timestamp DESC").
		Limit(normalizeLimit(limit)).
		Scan(ctx)
	return entries, err
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.NewDelete().
		Model((*Entry)(nil)).
		Where("timestamp < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
