package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/georgeshao/canned-status/internal/journal"
)

//go:embed schema.sql
var schemaSQL string

const insertRecordSQL = `INSERT INTO records (id, token, outcome, status_code, method, remote_ip, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type SQLiteStore struct {
	db *sql.DB
}

func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(schemaSQL)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, records []*journal.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertRecordSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.ID,
			rec.Token,
			rec.Outcome,
			rec.StatusCode,
			rec.Method,
			rec.RemoteIP,
			rec.CreatedAt.UnixNano(),
		); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *SQLiteStore) List(ctx context.Context, filter journal.Filter) ([]*journal.Record, int, error) {
	var where []string
	var args []interface{}

	if filter.Outcome != nil {
		where = append(where, "outcome = ?")
		args = append(args, *filter.Outcome)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM records" + whereClause(where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	if filter.Cursor != nil {
		ts := filter.Cursor.CreatedAt.UnixNano()
		where = append(where, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, ts, ts, filter.Cursor.ID)
	}
	args = append(args, filter.EffectiveLimit())

	query := "SELECT id, token, outcome, status_code, method, remote_ip, created_at FROM records" +
		whereClause(where) +
		" ORDER BY created_at DESC, id DESC LIMIT ?"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*journal.Record
	for rows.Next() {
		var rec journal.Record
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.Token, &rec.Outcome, &rec.StatusCode, &rec.Method, &rec.RemoteIP, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.CreatedAt = time.Unix(0, createdAt)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list records: %w", err)
	}

	return records, total, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*journal.Stats, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT outcome, COUNT(*) FROM records GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	defer rows.Close()

	stats := &journal.Stats{ByOutcome: make(map[string]int)}
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats.ByOutcome[outcome] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats, nil
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
