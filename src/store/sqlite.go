package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"buildmail-agent/src/contracts"
	"buildmail-agent/src/retry"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS notification_records (
		project    TEXT    NOT NULL,
		number     INTEGER NOT NULL,
		message_id TEXT    NOT NULL,
		subject    TEXT    NOT NULL DEFAULT '',
		variant    TEXT    NOT NULL DEFAULT '',
		recipients TEXT    NOT NULL DEFAULT '[]',
		sent_at    TEXT    NOT NULL,
		PRIMARY KEY (project, number)
	)
`

// SQLiteStore keeps records in a local SQLite file. It is the default store
// for the CLI.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path. The path
// ":memory:" opens a private in-memory database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dsn := path + "?_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps an in-memory database consistent and
	// serializes writers on a file.
	db.SetMaxOpenConns(1)

	err = retry.DoContext(ctx, migrateRetries, migrateDelay, func(ctx context.Context, attempt int) error {
		if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// SaveRecord inserts rec unless the build already has a record.
func (s *SQLiteStore) SaveRecord(ctx context.Context, rec *contracts.NotificationRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	recipients, err := encodeRecipients(rec.Recipients)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notification_records (project, number, message_id, subject, variant, recipients, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project, number) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		rec.Project,
		rec.Number,
		rec.MessageID,
		rec.Subject,
		rec.Variant,
		recipients,
		rec.SentAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrExists{Project: rec.Project, Number: rec.Number}
	}
	return nil
}

// GetRecord reads the record for a build.
func (s *SQLiteStore) GetRecord(ctx context.Context, project string, number int) (*contracts.NotificationRecord, error) {
	query := `
		SELECT project, number, message_id, subject, variant, recipients, sent_at
		FROM notification_records
		WHERE project = ? AND number = ?
	`

	rec, err := scanSQLiteRecord(s.db.QueryRowContext(ctx, query, project, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound{Project: project, Number: number}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// ListRecords returns a project's records ordered by build number.
func (s *SQLiteStore) ListRecords(ctx context.Context, project string) ([]contracts.NotificationRecord, error) {
	query := `
		SELECT project, number, message_id, subject, variant, recipients, sent_at
		FROM notification_records
		WHERE project = ?
		ORDER BY number
	`

	rows, err := s.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []contracts.NotificationRecord{}
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (*contracts.NotificationRecord, error) {
	var (
		rec        contracts.NotificationRecord
		recipients string
		sentAt     string
	)
	if err := row.Scan(
		&rec.Project,
		&rec.Number,
		&rec.MessageID,
		&rec.Subject,
		&rec.Variant,
		&recipients,
		&sentAt,
	); err != nil {
		return nil, err
	}

	var err error
	if rec.Recipients, err = decodeRecipients([]byte(recipients)); err != nil {
		return nil, err
	}
	if rec.SentAt, err = time.Parse(time.RFC3339Nano, sentAt); err != nil {
		return nil, fmt.Errorf("failed to parse sent_at %q: %w", sentAt, err)
	}
	return &rec, nil
}
