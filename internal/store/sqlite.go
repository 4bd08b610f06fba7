package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id         TEXT PRIMARY KEY,
    started_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS log_headers (
    run_id  TEXT NOT NULL REFERENCES runs(id),
    log     TEXT NOT NULL,
    columns TEXT NOT NULL,
    PRIMARY KEY (run_id, log)
);

CREATE TABLE IF NOT EXISTS log_rows (
    id     INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id),
    log    TEXT NOT NULL,
    data   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_log_rows_run_log ON log_rows(run_id, log, id);
`

// SQLiteStore keeps the logs of one run in a SQLite database. Rows are
// stored as JSON arrays.
type SQLiteStore struct {
	db    *sql.DB
	runID string
}

// OpenSQLite opens (or creates) the database at dsn and registers a new run.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store.OpenSQLite: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store.OpenSQLite: apply schema: %w", err)
	}

	s := &SQLiteStore{db: db, runID: uuid.New().String()}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		s.runID, time.Now().UTC(),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("store.OpenSQLite: insert run: %w", err)
	}
	return s, nil
}

// RunID identifies this run's rows.
func (s *SQLiteStore) RunID() string {
	return s.runID
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Sink returns the sink for the named log of this run.
func (s *SQLiteStore) Sink(name string) *SQLiteSink {
	return &SQLiteSink{store: s, name: name}
}

// Header reads back the header of a log.
func (s *SQLiteStore) Header(ctx context.Context, name string) ([]string, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT columns FROM log_headers WHERE run_id = ? AND log = ?`,
		s.runID, name,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store.Header: %w", err)
	}
	var header []string
	if err := json.Unmarshal([]byte(data), &header); err != nil {
		return nil, fmt.Errorf("store.Header: decode: %w", err)
	}
	return header, nil
}

// Rows reads back the rows of a log in write order. Numbers decode as
// float64.
func (s *SQLiteStore) Rows(ctx context.Context, name string) ([][]any, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM log_rows WHERE run_id = ? AND log = ? ORDER BY id`,
		s.runID, name,
	)
	if err != nil {
		return nil, fmt.Errorf("store.Rows: %w", err)
	}
	defer rows.Close()

	var result [][]any
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store.Rows: scan: %w", err)
		}
		var row []any
		if err := json.Unmarshal([]byte(data), &row); err != nil {
			return nil, fmt.Errorf("store.Rows: decode: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// SQLiteSink is one named log of a SQLiteStore.
type SQLiteSink struct {
	store *SQLiteStore
	name  string

	mu     sync.Mutex
	header []string
	last   []any
}

func (s *SQLiteSink) SetHeader(header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("store.SetHeader: encode: %w", err)
	}
	if _, err := s.store.db.ExecContext(context.Background(),
		`INSERT INTO log_headers (run_id, log, columns) VALUES (?, ?, ?)
		 ON CONFLICT(run_id, log) DO UPDATE SET columns = excluded.columns`,
		s.store.runID, s.name, string(data),
	); err != nil {
		return fmt.Errorf("store.SetHeader: %w", err)
	}
	s.header = slices.Clone(header)
	return nil
}

func (s *SQLiteSink) Write(row []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkRow(s.header, row); err != nil {
		return err
	}
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("store.Write: encode: %w", err)
	}
	if _, err := s.store.db.ExecContext(context.Background(),
		`INSERT INTO log_rows (run_id, log, data) VALUES (?, ?, ?)`,
		s.store.runID, s.name, string(data),
	); err != nil {
		return fmt.Errorf("store.Write: %w", err)
	}
	s.last = slices.Clone(row)
	return nil
}

func (s *SQLiteSink) LastByKey(column string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lastByKey(s.header, s.last, column)
}
