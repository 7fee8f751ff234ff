package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cypherqa/internal/agent"
)

// HistoryEntry is one answered question.
type HistoryEntry struct {
	ID       string        `json:"id"`
	Question string        `json:"question"`
	Status   string        `json:"status"`
	Answer   string        `json:"answer"`
	Query    string        `json:"query,omitempty"`
	RowCount int           `json:"row_count"`
	Attempts int           `json:"attempts"`
	AskedAt  time.Time     `json:"asked_at"`
	Duration time.Duration `json:"duration_ns"`
	Failures []AttemptLog  `json:"failures,omitempty"`
}

// AttemptLog is one failed attempt of a stored question.
type AttemptLog struct {
	Attempt int    `json:"attempt"`
	Kind    string `json:"kind"`
	Query   string `json:"query,omitempty"`
	Error   string `json:"error"`
}

// Record implements agent.Recorder. The question and its failed attempts are
// written in one transaction.
func (d *DB) Record(ctx context.Context, answer *agent.Answer) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Ignore error - will fail if transaction was committed
	}()

	attempts := 0
	var failures []agent.AttemptRecord
	if answer.Outcome != nil {
		attempts = answer.Outcome.AttemptsUsed
		failures = answer.Outcome.Attempts
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO query_history (id, question, status, answer, final_query, row_count, attempts, asked_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, answer.ID, answer.Question, answer.Status, answer.Text, answer.Query,
		answer.Result.Len(), attempts, answer.AskedAt, answer.Duration.Milliseconds())
	if err != nil {
		d.logger.Error("Failed to save question history", "error", err, "id", answer.ID)
		return fmt.Errorf("failed to save question history: %w", err)
	}

	for _, rec := range failures {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO attempt_log (question_id, attempt, kind, query_text, error_message)
			VALUES ($1, $2, $3, $4, $5)
		`, answer.ID, rec.Attempt, string(rec.Kind), rec.Query, rec.Message())
		if err != nil {
			return fmt.Errorf("failed to save attempt %d: %w", rec.Attempt, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit question history: %w", err)
	}

	d.logger.Info("Saved question history", "id", answer.ID, "status", answer.Status, "failed_attempts", len(failures))
	return nil
}

// RecentQuestions returns up to limit questions, newest first.
func (d *DB) RecentQuestions(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, question, status, answer, final_query, row_count, attempts, asked_at, duration_ms
		FROM query_history
		ORDER BY asked_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var query sql.NullString
		var durationMS int64
		if err := rows.Scan(&e.ID, &e.Question, &e.Status, &e.Answer, &query, &e.RowCount, &e.Attempts, &e.AskedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Query = query.String
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return entries, nil
}

// Question returns one stored question with its failed attempts.
func (d *DB) Question(ctx context.Context, id string) (*HistoryEntry, error) {
	var e HistoryEntry
	var query sql.NullString
	var durationMS int64

	err := d.conn.QueryRowContext(ctx, `
		SELECT id, question, status, answer, final_query, row_count, attempts, asked_at, duration_ms
		FROM query_history
		WHERE id = $1
	`, id).Scan(&e.ID, &e.Question, &e.Status, &e.Answer, &query, &e.RowCount, &e.Attempts, &e.AskedAt, &durationMS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
		}
		return nil, fmt.Errorf("failed to load question: %w", err)
	}
	e.Query = query.String
	e.Duration = time.Duration(durationMS) * time.Millisecond

	rows, err := d.conn.QueryContext(ctx, `
		SELECT attempt, kind, query_text, error_message
		FROM attempt_log
		WHERE question_id = $1
		ORDER BY attempt
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a AttemptLog
		var q sql.NullString
		if err := rows.Scan(&a.Attempt, &a.Kind, &q, &a.Error); err != nil {
			return nil, fmt.Errorf("failed to scan attempt row: %w", err)
		}
		a.Query = q.String
		e.Failures = append(e.Failures, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempts: %w", err)
	}

	return &e, nil
}

// Stats aggregates the stored history.
type Stats struct {
	Questions   int            `json:"questions"`
	ByStatus    map[string]int `json:"by_status"`
	AvgAttempts float64        `json:"avg_attempts"`

	// FailureKinds counts failed attempts by error kind.
	FailureKinds map[string]int `json:"failure_kinds"`
}

// HistoryStats summarizes how questions have fared.
func (d *DB) HistoryStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByStatus: map[string]int{}, FailureKinds: map[string]int{}}

	var avg sql.NullFloat64
	err := d.conn.QueryRowContext(ctx, `
		SELECT count(*), avg(attempts)
		FROM query_history
	`).Scan(&stats.Questions, &avg)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize history: %w", err)
	}
	stats.AvgAttempts = avg.Float64

	if err := d.countInto(ctx, stats.ByStatus, `
		SELECT status, count(*) FROM query_history GROUP BY status
	`); err != nil {
		return nil, err
	}
	if err := d.countInto(ctx, stats.FailureKinds, `
		SELECT kind, count(*) FROM attempt_log GROUP BY kind
	`); err != nil {
		return nil, err
	}
	return stats, nil
}

func (d *DB) countInto(ctx context.Context, counts map[string]int, query string) error {
	rows, err := d.conn.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to count history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[key] = n
	}
	return rows.Err()
}
