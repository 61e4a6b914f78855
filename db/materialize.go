package db

import (
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Materializer replays the changelog into an embedded DuckDB database so
// that commit histories can be queried with SQL. Each table's changes
// are applied incrementally: a Sync only reads commits past the last
// applied watermark.
type Materializer struct {
	db      *sql.DB
	applied map[string]int64
}

// NewMaterializer opens an in-memory DuckDB instance with the changelog
// table prepared.
func NewMaterializer() (*Materializer, error) {
	duck, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	_, err = duck.Exec(`CREATE TABLE IF NOT EXISTS changelog (
		commit_id VARCHAR,
		table_name VARCHAR,
		ts BIGINT,
		schema_version INTEGER,
		change VARCHAR
	)`)
	if err != nil {
		duck.Close()
		return nil, fmt.Errorf("failed to create changelog table: %w", err)
	}

	return &Materializer{
		db:      duck,
		applied: make(map[string]int64),
	}, nil
}

// Sync pulls table commits newer than the applied watermark from the
// engine and appends their changes to the changelog. Returns the number
// of commits applied.
func (m *Materializer) Sync(engine *Engine, table string) (int, error) {
	commits, err := engine.CommitsSince(table, m.applied[table])
	if err != nil {
		return 0, err
	}
	if len(commits) == 0 {
		return 0, nil
	}

	tx, err := m.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin changelog txn: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO changelog VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare changelog insert: %w", err)
	}
	defer stmt.Close()

	for _, commit := range commits {
		for _, change := range commit.Changes {
			if _, err := stmt.Exec(commit.ID, commit.Table, commit.Timestamp, commit.SchemaVersion, change); err != nil {
				return 0, fmt.Errorf("failed to apply commit %s: %w", commit.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit changelog txn: %w", err)
	}

	m.applied[table] = commits[len(commits)-1].Timestamp
	return len(commits), nil
}

// AppliedWatermark returns the timestamp of the last commit applied for
// a table.
func (m *Materializer) AppliedWatermark(table string) int64 {
	return m.applied[table]
}

// ChangeCount returns how many individual changes the changelog holds
// for a table.
func (m *Materializer) ChangeCount(table string) (int64, error) {
	var count int64
	err := m.db.QueryRow(`SELECT COUNT(*) FROM changelog WHERE table_name = ?`, table).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count changes: %w", err)
	}
	return count, nil
}

// Query runs an arbitrary SQL query against the materialized changelog.
func (m *Materializer) Query(query string, args ...any) (*sql.Rows, error) {
	return m.db.Query(query, args...)
}

func (m *Materializer) Close() error {
	return m.db.Close()
}
