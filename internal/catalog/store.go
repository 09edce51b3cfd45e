package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Source is the read-only view of the catalog consumed by the answering
// engine. Implementations must be safe for concurrent use.
type Source interface {
	// All returns every record in the catalog snapshot, valid or not.
	All(ctx context.Context) ([]Record, error)
	// Get returns the record with the given name, or sql.ErrNoRows-wrapped
	// error if absent.
	Get(ctx context.Context, name string) (Record, error)
	// Names returns all record names, including invalid records. Used for
	// "fund exists but has no valid data" messaging.
	Names(ctx context.Context) ([]string, error)
}

// SQLiteStore persists the catalog snapshot in a local SQLite database.
// It implements Source and additionally supports writes for the import path.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the catalog database,
// ~/.fundfaq/catalog.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("catalog: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".fundfaq")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("catalog: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "catalog.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS funds (
    name              TEXT PRIMARY KEY,
    expense_ratio     TEXT,
    exit_load         TEXT,
    minimum_sip       TEXT,
    lock_in           TEXT,
    riskometer        TEXT,
    benchmark         TEXT,
    source_url        TEXT NOT NULL,
    scraped_at        TEXT,
    validation_status TEXT NOT NULL
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("catalog: migrate: %w", err)
	}
	return nil
}

// Put inserts or replaces a record keyed by its name.
func (s *SQLiteStore) Put(ctx context.Context, r Record) error {
	if r.Name == "" {
		return fmt.Errorf("catalog: put: record name must not be empty")
	}
	const q = `
INSERT INTO funds
    (name, expense_ratio, exit_load, minimum_sip, lock_in, riskometer, benchmark, source_url, scraped_at, validation_status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
    expense_ratio     = excluded.expense_ratio,
    exit_load         = excluded.exit_load,
    minimum_sip       = excluded.minimum_sip,
    lock_in           = excluded.lock_in,
    riskometer        = excluded.riskometer,
    benchmark         = excluded.benchmark,
    source_url        = excluded.source_url,
    scraped_at        = excluded.scraped_at,
    validation_status = excluded.validation_status`
	_, err := s.db.ExecContext(ctx, q,
		r.Name, r.ExpenseRatio, r.ExitLoad, r.MinimumSIP, r.LockIn,
		r.Riskometer, r.Benchmark, r.SourceURL, r.ScrapedAt, r.ValidationStatus,
	)
	if err != nil {
		return fmt.Errorf("catalog: put %q: %w", r.Name, err)
	}
	return nil
}

// All returns every record in the catalog, ordered by name for determinism.
func (s *SQLiteStore) All(ctx context.Context) ([]Record, error) {
	const q = `
SELECT name, expense_ratio, exit_load, minimum_sip, lock_in, riskometer,
       benchmark, source_url, scraped_at, validation_status
FROM   funds
ORDER  BY name`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("catalog: all: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Name, &r.ExpenseRatio, &r.ExitLoad, &r.MinimumSIP,
			&r.LockIn, &r.Riskometer, &r.Benchmark, &r.SourceURL, &r.ScrapedAt,
			&r.ValidationStatus); err != nil {
			return nil, fmt.Errorf("catalog: all scan: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: all rows: %w", err)
	}
	return records, nil
}

// Get returns the record with the given name.
func (s *SQLiteStore) Get(ctx context.Context, name string) (Record, error) {
	const q = `
SELECT name, expense_ratio, exit_load, minimum_sip, lock_in, riskometer,
       benchmark, source_url, scraped_at, validation_status
FROM   funds
WHERE  name = ?`
	var r Record
	err := s.db.QueryRowContext(ctx, q, name).Scan(&r.Name, &r.ExpenseRatio,
		&r.ExitLoad, &r.MinimumSIP, &r.LockIn, &r.Riskometer, &r.Benchmark,
		&r.SourceURL, &r.ScrapedAt, &r.ValidationStatus)
	if err != nil {
		return Record{}, fmt.Errorf("catalog: get %q: %w", name, err)
	}
	return r, nil
}

// Names returns all record names, ordered by name.
func (s *SQLiteStore) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM funds ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("catalog: names scan: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: names rows: %w", err)
	}
	return names, nil
}

// Valid returns only the records whose validation status is "valid",
// ordered by name. This is the set seen by index builds.
func Valid(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// Ping verifies the database connection, for readiness probes.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("catalog: ping: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("catalog: close: %w", err)
	}
	return nil
}

// snapshotFile is the JSON shape written by the acquisition pipeline:
// either a {"funds": {name: record}} document or a bare list of records.
type snapshotFile struct {
	Funds map[string]Record `json:"funds"`
}

// ImportFile loads an acquisition snapshot JSON file into the store.
// Both the keyed-object form and the list form are accepted. Returns the
// number of records imported.
func (s *SQLiteStore) ImportFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("catalog: import %s: %w", path, err)
	}

	var records []Record

	var doc snapshotFile
	if err := json.Unmarshal(data, &doc); err == nil && len(doc.Funds) > 0 {
		for name, r := range doc.Funds {
			if r.Name == "" {
				r.Name = name
			}
			records = append(records, r)
		}
	} else {
		var list []Record
		if err := json.Unmarshal(data, &list); err != nil {
			return 0, fmt.Errorf("catalog: import %s: unrecognized snapshot format: %w", path, err)
		}
		records = list
	}

	count := 0
	for _, r := range records {
		if r.Name == "" {
			continue
		}
		if err := s.Put(ctx, r); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
