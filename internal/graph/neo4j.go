// Package graph is the Neo4j side of the system: it describes the schema and
// runs validated, read-only statements.
package graph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"cypherqa/internal/cypher"
)

// Result is the tabular output of one statement.
type Result struct {
	Columns []string
	Rows    []map[string]any

	// Truncated is set when the statement produced more rows than MaxRows.
	Truncated bool
}

// Len returns the number of rows.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// ExecutionError reports a statement the database rejected. Its message is
// the database's own message, which is what the repair prompt needs.
type ExecutionError struct {
	Statement string
	Err       error
}

func (e *ExecutionError) Error() string {
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Config holds Neo4j connection configuration
type Config struct {
	URI      string
	Username string
	Password string
	Database string
	// MaxRows bounds how many records one statement may return.
	MaxRows int
	Logger  *slog.Logger
}

// Client runs read-only statements against Neo4j.
type Client struct {
	driver neo4j.DriverWithContext
	config Config
	logger *slog.Logger
}

const defaultMaxRows = 5000

// Connect creates the driver and verifies connectivity.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j at %s: %w", cfg.URI, err)
	}

	if cfg.MaxRows <= 0 {
		cfg.MaxRows = defaultMaxRows
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger.Info("Connected to Neo4j", "uri", cfg.URI, "database", cfg.Database)

	return &Client{driver: driver, config: cfg, logger: logger}, nil
}

// Close closes the Neo4j connection
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Run executes a validated statement in a read transaction.
func (c *Client) Run(ctx context.Context, query cypher.ValidatedQuery) (*Result, error) {
	if query.IsZero() {
		return nil, fmt.Errorf("refusing to run unvalidated query")
	}

	start := time.Now()
	result, err := c.read(ctx, query.String(), nil)
	if err != nil {
		c.logger.Warn("Cypher execution failed", "error", err, "query", query.String())
		return nil, &ExecutionError{Statement: query.String(), Err: err}
	}

	c.logger.Info("Cypher executed",
		"rows", result.Len(),
		"truncated", result.Truncated,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// read runs statement in a read-mode session. Schema introspection uses it
// directly since its procedure calls are fixed and read-only.
func (c *Client) read(ctx context.Context, statement string, params map[string]any) (*Result, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: c.config.Database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, statement, params)
		if err != nil {
			return nil, err
		}

		keys, err := res.Keys()
		if err != nil {
			return nil, err
		}

		result := collectRows(ctx, res, keys, c.config.MaxRows)
		return result, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return out.(*Result), nil
}

// recordSource is the part of a driver result that collectRows reads.
type recordSource interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// collectRows reads at most maxRows records and marks the result as
// truncated when another record was still pending.
func collectRows(ctx context.Context, src recordSource, keys []string, maxRows int) *Result {
	result := &Result{Columns: keys, Rows: []map[string]any{}}
	for src.Next(ctx) {
		if len(result.Rows) >= maxRows {
			result.Truncated = true
			break
		}
		result.Rows = append(result.Rows, normalizeRecord(src.Record()))
	}
	return result
}
