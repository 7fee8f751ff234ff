package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// SchemaCacheKey identifies one database on one server. Database names
// repeat across servers ("neo4j" is the default everywhere), so the URI is
// part of the key.
func SchemaCacheKey(uri, database string) string {
	return strings.TrimRight(uri, "/") + "/" + database
}

// SaveSchema stores the schema description under a SchemaCacheKey
func (d *DB) SaveSchema(ctx context.Context, key, description string, fetchedAt time.Time) error {
	query := `
		INSERT INTO graph_schema_cache (cache_key, description, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE SET
			description = EXCLUDED.description,
			fetched_at = EXCLUDED.fetched_at,
			created_at = CURRENT_TIMESTAMP
	`

	if _, err := d.conn.ExecContext(ctx, query, key, description, fetchedAt); err != nil {
		d.logger.Error("Failed to save schema cache", "error", err, "key", key)
		return fmt.Errorf("failed to save schema cache: %w", err)
	}

	d.logger.Info("Saved graph schema to cache", "key", key, "chars", len(description))
	return nil
}

// LoadSchema returns the description cached under key if it is no older
// than maxAge.
func (d *DB) LoadSchema(ctx context.Context, key string, maxAge time.Duration) (string, time.Time, error) {
	query := `
		SELECT description, fetched_at
		FROM graph_schema_cache
		WHERE cache_key = $1
	`

	var description string
	var fetchedAt time.Time
	err := d.conn.QueryRowContext(ctx, query, key).Scan(&description, &fetchedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, ErrCacheMiss
		}
		d.logger.Error("Failed to load schema cache", "error", err, "key", key)
		return "", time.Time{}, fmt.Errorf("failed to load schema cache: %w", err)
	}

	if time.Since(fetchedAt) > maxAge {
		return "", time.Time{}, ErrCacheExpired
	}

	d.logger.Info("Loaded graph schema from cache", "key", key, "age_minutes", int(time.Since(fetchedAt).Minutes()))
	return description, fetchedAt, nil
}

// SchemaLoader fetches a fresh schema description.
type SchemaLoader interface {
	Schema(ctx context.Context) (string, error)
}

// CachedSchema serves the schema description from the store, asking the
// loader only when the cached copy is missing, expired or bypassed.
type CachedSchema struct {
	db      *DB
	loader  SchemaLoader
	key     string
	ttl     time.Duration
	refresh bool
	logger  *slog.Logger
}

// NewCachedSchema creates a CachedSchema for a SchemaCacheKey. A ttl of zero disables caching.
// When refresh is set the first lookup ignores the cache.
func NewCachedSchema(db *DB, loader SchemaLoader, key string, ttl time.Duration, refresh bool) *CachedSchema {
	return &CachedSchema{
		db:      db,
		loader:  loader,
		key:     key,
		ttl:     ttl,
		refresh: refresh,
		logger:  db.logger,
	}
}

// Schema implements agent.SchemaSource.
func (c *CachedSchema) Schema(ctx context.Context) (string, error) {
	if c.ttl > 0 && !c.refresh {
		description, _, err := c.db.LoadSchema(ctx, c.key, c.ttl)
		if err == nil {
			return description, nil
		}
		if !errors.Is(err, ErrCacheMiss) && !errors.Is(err, ErrCacheExpired) {
			c.logger.Warn("Schema cache unavailable, introspecting", "error", err)
		}
	}

	description, err := c.loader.Schema(ctx)
	if err != nil {
		return "", err
	}
	c.refresh = false

	if c.ttl > 0 {
		// SaveSchema logs its own failure
		_ = c.db.SaveSchema(ctx, c.key, description, time.Now())
	}
	return description, nil
}
