package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cypherqa/internal/agent"
	"cypherqa/internal/graph"
)

// SetupTestDB creates a store in a temporary directory
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type countingLoader struct {
	description string
	err         error
	calls       int
}

func (l *countingLoader) Schema(ctx context.Context) (string, error) {
	l.calls++
	return l.description, l.err
}

func TestOpenCreatesDatabaseFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	db, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
		t.Errorf("Expected database file to exist: %v", err)
	}
}

func TestSchemaCacheRoundTrip(t *testing.T) {
	db := SetupTestDB(t)
	ctx := context.Background()

	if _, _, err := db.LoadSchema(ctx, "neo4j", time.Hour); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Expected ErrCacheMiss, got %v", err)
	}

	if err := db.SaveSchema(ctx, "neo4j", "Node properties:\nBook {title: STRING}", time.Now()); err != nil {
		t.Fatalf("SaveSchema failed: %v", err)
	}
	got, _, err := db.LoadSchema(ctx, "neo4j", time.Hour)
	if err != nil {
		t.Fatalf("LoadSchema failed: %v", err)
	}
	if got != "Node properties:\nBook {title: STRING}" {
		t.Errorf("Unexpected description %q", got)
	}

	// overwrite with an old timestamp
	if err := db.SaveSchema(ctx, "neo4j", "old", time.Now().Add(-2*time.Hour)); err != nil {
		t.Fatalf("SaveSchema failed: %v", err)
	}
	if _, _, err := db.LoadSchema(ctx, "neo4j", time.Hour); !errors.Is(err, ErrCacheExpired) {
		t.Errorf("Expected ErrCacheExpired, got %v", err)
	}
}

func TestCachedSchema(t *testing.T) {
	ctx := context.Background()

	t.Run("introspects once within ttl", func(t *testing.T) {
		db := SetupTestDB(t)
		loader := &countingLoader{description: "schema v1"}
		cached := NewCachedSchema(db, loader, "neo4j", time.Hour, false)

		for i := 0; i < 3; i++ {
			got, err := cached.Schema(ctx)
			if err != nil {
				t.Fatalf("Schema failed: %v", err)
			}
			if got != "schema v1" {
				t.Errorf("Unexpected schema %q", got)
			}
		}
		if loader.calls != 1 {
			t.Errorf("Expected 1 introspection, got %d", loader.calls)
		}
	})

	t.Run("refresh bypasses cache once", func(t *testing.T) {
		db := SetupTestDB(t)
		if err := db.SaveSchema(ctx, "neo4j", "stale", time.Now()); err != nil {
			t.Fatalf("SaveSchema failed: %v", err)
		}
		loader := &countingLoader{description: "fresh"}
		cached := NewCachedSchema(db, loader, "neo4j", time.Hour, true)

		got, _ := cached.Schema(ctx)
		if got != "fresh" {
			t.Errorf("Expected fresh schema, got %q", got)
		}
		got, _ = cached.Schema(ctx)
		if got != "fresh" || loader.calls != 1 {
			t.Errorf("Expected cached fresh schema after refresh, got %q with %d calls", got, loader.calls)
		}
	})

	t.Run("zero ttl disables cache", func(t *testing.T) {
		db := SetupTestDB(t)
		loader := &countingLoader{description: "live"}
		cached := NewCachedSchema(db, loader, "neo4j", 0, false)

		_, _ = cached.Schema(ctx)
		_, _ = cached.Schema(ctx)
		if loader.calls != 2 {
			t.Errorf("Expected 2 introspections, got %d", loader.calls)
		}
		if _, _, err := db.LoadSchema(ctx, "neo4j", time.Hour); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("Expected nothing cached, got %v", err)
		}
	})

	t.Run("servers sharing a database name are cached apart", func(t *testing.T) {
		db := SetupTestDB(t)
		dev := &countingLoader{description: "dev schema"}
		prod := &countingLoader{description: "prod schema"}

		devKey := SchemaCacheKey("neo4j://dev.local:7687", "neo4j")
		prodKey := SchemaCacheKey("neo4j://prod.local:7687", "neo4j")
		if devKey == prodKey {
			t.Fatalf("Expected distinct keys, got %q", devKey)
		}

		if got, _ := NewCachedSchema(db, dev, devKey, time.Hour, false).Schema(ctx); got != "dev schema" {
			t.Errorf("Unexpected dev schema %q", got)
		}
		got, err := NewCachedSchema(db, prod, prodKey, time.Hour, false).Schema(ctx)
		if err != nil {
			t.Fatalf("Schema failed: %v", err)
		}
		if got != "prod schema" {
			t.Errorf("Expected prod schema, got %q", got)
		}
		if prod.calls != 1 {
			t.Errorf("Expected prod server to be introspected once, got %d", prod.calls)
		}

		// the dev entry is still served from the cache
		if got, _ := NewCachedSchema(db, dev, devKey, time.Hour, false).Schema(ctx); got != "dev schema" || dev.calls != 1 {
			t.Errorf("Expected cached dev schema, got %q with %d calls", got, dev.calls)
		}
	})

	t.Run("loader error is returned", func(t *testing.T) {
		db := SetupTestDB(t)
		cached := NewCachedSchema(db, &countingLoader{err: errors.New("unreachable")}, "neo4j", time.Hour, false)

		if _, err := cached.Schema(ctx); err == nil {
			t.Error("Expected loader error")
		}
	})
}

func TestSchemaCacheKey(t *testing.T) {
	testCases := []struct {
		uri      string
		database string
		expected string
	}{
		{"neo4j://localhost:7687", "neo4j", "neo4j://localhost:7687/neo4j"},
		{"neo4j+s://abc.databases.neo4j.io/", "movies", "neo4j+s://abc.databases.neo4j.io/movies"},
	}

	for _, tc := range testCases {
		if got := SchemaCacheKey(tc.uri, tc.database); got != tc.expected {
			t.Errorf("SchemaCacheKey(%q, %q) = %q, expected %q", tc.uri, tc.database, got, tc.expected)
		}
	}
}

func TestRecordAndHistory(t *testing.T) {
	db := SetupTestDB(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	failed := &agent.Answer{
		ID:       "q-1",
		Question: "Who wrote the most books?",
		Status:   agent.StatusExhausted,
		Text:     "Could not answer",
		Query:    "MATCH (a:Autor) RETURN a;",
		AskedAt:  base,
		Duration: 1500 * time.Millisecond,
		Outcome: &agent.Outcome{
			AttemptsUsed: 3,
			Attempts: []agent.AttemptRecord{
				{Attempt: 1, Query: "MATCH (a:Autor) RETURN a;", Kind: agent.KindExecution, Err: errors.New("unknown label")},
				{Attempt: 2, Kind: agent.KindExtraction, Err: errors.New("no query")},
				{Attempt: 3, Query: "MATCH (a:Autor) RETURN a;", Kind: agent.KindExecution, Err: errors.New("unknown label")},
			},
		},
	}
	answered := &agent.Answer{
		ID:       "q-2",
		Question: "How many books?",
		Status:   agent.StatusSuccess,
		Text:     "There are 8 books.",
		Query:    "MATCH (b:Book) RETURN count(b) AS n;",
		Result:   &graph.Result{Columns: []string{"n"}, Rows: []map[string]any{{"n": int64(8)}}},
		AskedAt:  base.Add(30 * time.Second),
		Outcome:  &agent.Outcome{AttemptsUsed: 1},
	}

	for _, a := range []*agent.Answer{failed, answered} {
		if err := db.Record(ctx, a); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := db.RecentQuestions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentQuestions failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "q-2" {
		t.Errorf("Expected newest first, got %s", entries[0].ID)
	}
	if entries[0].RowCount != 1 || entries[0].Attempts != 1 {
		t.Errorf("Unexpected counts: rows=%d attempts=%d", entries[0].RowCount, entries[0].Attempts)
	}
	if entries[1].Duration != 1500*time.Millisecond {
		t.Errorf("Unexpected duration %v", entries[1].Duration)
	}

	q, err := db.Question(ctx, "q-1")
	if err != nil {
		t.Fatalf("Question failed: %v", err)
	}
	if len(q.Failures) != 3 {
		t.Fatalf("Expected 3 failures, got %d", len(q.Failures))
	}
	if q.Failures[1].Kind != string(agent.KindExtraction) || q.Failures[1].Query != "" {
		t.Errorf("Unexpected second failure %+v", q.Failures[1])
	}
	if q.Failures[2].Error != "unknown label" {
		t.Errorf("Unexpected error text %q", q.Failures[2].Error)
	}

	if _, err := db.Question(ctx, "missing"); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("Expected ErrQuestionNotFound, got %v", err)
	}

	limited, err := db.RecentQuestions(ctx, 1)
	if err != nil {
		t.Fatalf("RecentQuestions failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected 1 entry with limit 1, got %d", len(limited))
	}
}

func TestRecordDuplicateID(t *testing.T) {
	db := SetupTestDB(t)
	ctx := context.Background()
	a := &agent.Answer{ID: "dup", Question: "q", Status: agent.StatusSuccess, AskedAt: time.Now()}

	if err := db.Record(ctx, a); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := db.Record(ctx, a); err == nil {
		t.Error("Expected primary key violation on duplicate id")
	}
}

func TestHistoryStats(t *testing.T) {
	db := SetupTestDB(t)
	ctx := context.Background()

	empty, err := db.HistoryStats(ctx)
	if err != nil {
		t.Fatalf("HistoryStats on empty store failed: %v", err)
	}
	if empty.Questions != 0 || empty.AvgAttempts != 0 {
		t.Errorf("Expected empty stats, got %+v", empty)
	}

	answers := []*agent.Answer{
		{ID: "a", Status: agent.StatusSuccess, AskedAt: time.Now(), Outcome: &agent.Outcome{AttemptsUsed: 1}},
		{ID: "b", Status: agent.StatusSuccess, AskedAt: time.Now(), Outcome: &agent.Outcome{
			AttemptsUsed: 2,
			Attempts:     []agent.AttemptRecord{{Attempt: 1, Kind: agent.KindExecution, Err: errors.New("x")}},
		}},
		{ID: "c", Status: agent.StatusExhausted, AskedAt: time.Now(), Outcome: &agent.Outcome{
			AttemptsUsed: 3,
			Attempts: []agent.AttemptRecord{
				{Attempt: 1, Kind: agent.KindUnsafeQuery, Err: errors.New("x")},
				{Attempt: 2, Kind: agent.KindExecution, Err: errors.New("x")},
				{Attempt: 3, Kind: agent.KindExecution, Err: errors.New("x")},
			},
		}},
	}
	for _, a := range answers {
		if err := db.Record(ctx, a); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	stats, err := db.HistoryStats(ctx)
	if err != nil {
		t.Fatalf("HistoryStats failed: %v", err)
	}
	if stats.Questions != 3 {
		t.Errorf("Expected 3 questions, got %d", stats.Questions)
	}
	if stats.AvgAttempts != 2 {
		t.Errorf("Expected 2 average attempts, got %v", stats.AvgAttempts)
	}
	if stats.ByStatus[agent.StatusSuccess] != 2 || stats.ByStatus[agent.StatusExhausted] != 1 {
		t.Errorf("Unexpected status counts %v", stats.ByStatus)
	}
	if stats.FailureKinds[string(agent.KindExecution)] != 3 || stats.FailureKinds[string(agent.KindUnsafeQuery)] != 1 {
		t.Errorf("Unexpected failure kinds %v", stats.FailureKinds)
	}
}
