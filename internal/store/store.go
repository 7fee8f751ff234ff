// Package store keeps local state in DuckDB: the cached graph schema and
// the history of answered questions.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"
)

// FileName is the database file created inside the data directory.
const FileName = "cypherqa.duckdb"

var (
	// ErrCacheMiss is returned when no schema has been cached for a database.
	ErrCacheMiss        = errors.New("no cache entry found")
	// ErrCacheExpired is returned when the cached schema is older than allowed.
	ErrCacheExpired     = errors.New("cache expired")
	// ErrQuestionNotFound is returned when no history entry has the given id.
	ErrQuestionNotFound = errors.New("question not found")
)

type DB struct {
	conn    *sql.DB
	dataDir string
	logger  *slog.Logger
}

// Open opens (creating if needed) the store in dataDir.
func Open(dataDir string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, FileName)

	conn, err := sql.Open("duckdb", dbPath)
	if err != nil {
		logger.Error("Failed to open DuckDB database", "error", err, "db_path", dbPath)
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	d := &DB{conn: conn, dataDir: dataDir, logger: logger}
	if err := d.createTables(); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

// createTables creates the cache and history tables
func (d *DB) createTables() error {
	statements := []struct {
		name string
		ddl  string
	}{
		{"graph_schema_cache", `
			CREATE TABLE IF NOT EXISTS graph_schema_cache (
				cache_key VARCHAR PRIMARY KEY,
				description TEXT,
				fetched_at TIMESTAMP,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`},
		{"query_history", `
			CREATE TABLE IF NOT EXISTS query_history (
				id VARCHAR PRIMARY KEY,
				question TEXT,
				status VARCHAR,
				answer TEXT,
				final_query TEXT,
				row_count INTEGER,
				attempts INTEGER,
				asked_at TIMESTAMP,
				duration_ms BIGINT
			)
		`},
		{"attempt_log", `
			CREATE TABLE IF NOT EXISTS attempt_log (
				question_id VARCHAR,
				attempt INTEGER,
				kind VARCHAR,
				query_text TEXT,
				error_message TEXT
			)
		`},
	}

	for _, s := range statements {
		if _, err := d.conn.Exec(s.ddl); err != nil {
			d.logger.Error("Failed to create table", "table", s.name, "error", err)
			return fmt.Errorf("failed to create %s table: %w", s.name, err)
		}
	}
	return nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}
