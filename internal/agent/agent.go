// Package agent answers natural-language questions about a Neo4j graph by
// generating Cypher, checking it, running it and repairing it on failure.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cypherqa/internal/cypher"
	"cypherqa/internal/graph"
	"cypherqa/internal/llm"
)

// Answer statuses.
const (
	StatusSuccess   = "success"
	StatusExhausted = "exhausted"
	StatusFatal     = "fatal"
)

// SchemaSource describes the graph.
type SchemaSource interface {
	Schema(ctx context.Context) (string, error)
}

// Recorder stores finished questions.
type Recorder interface {
	Record(ctx context.Context, answer *Answer) error
}

// Answer is the user-facing result of one question.
type Answer struct {
	ID       string
	Question string
	Status   string
	// Text is the interpreted answer, or the failure report.
	Text     string
	Query    string
	Result   *graph.Result
	Outcome  *Outcome
	AskedAt  time.Time
	Duration time.Duration
}

// SessionConfig holds the collaborators of a Session.
type SessionConfig struct {
	gen      llm.Generator
	exec     Executor
	schema   SchemaSource
	recorder Recorder
	logger   *slog.Logger
}

// SessionOption is a functional option for configuring the session
type SessionOption func(*SessionConfig) error

// WithGenerator sets the text-generation service
func WithGenerator(gen llm.Generator) SessionOption {
	return func(c *SessionConfig) error {
		if gen == nil {
			return fmt.Errorf("generator cannot be nil")
		}
		c.gen = gen
		return nil
	}
}

// WithExecutor sets the statement executor
func WithExecutor(exec Executor) SessionOption {
	return func(c *SessionConfig) error {
		if exec == nil {
			return fmt.Errorf("executor cannot be nil")
		}
		c.exec = exec
		return nil
	}
}

// WithSchemaSource sets where the schema description comes from
func WithSchemaSource(src SchemaSource) SessionOption {
	return func(c *SessionConfig) error {
		if src == nil {
			return fmt.Errorf("schema source cannot be nil")
		}
		c.schema = src
		return nil
	}
}

// WithRecorder stores every finished question
func WithRecorder(rec Recorder) SessionOption {
	return func(c *SessionConfig) error {
		c.recorder = rec
		return nil
	}
}

// WithLogger sets the session logger
func WithLogger(logger *slog.Logger) SessionOption {
	return func(c *SessionConfig) error {
		c.logger = logger
		return nil
	}
}

// Session answers questions one at a time against a fixed set of
// process-wide collaborators.
type Session struct {
	mu          sync.Mutex
	config      *SessionConfig
	controller  *Controller
	interpreter *Interpreter
	logger      *slog.Logger

	schema string
}

// NewSession creates a Session. Generator, executor and schema source are
// required.
func NewSession(opts ...SessionOption) (*Session, error) {
	config := &SessionConfig{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if config.gen == nil {
		return nil, fmt.Errorf("generator is required (use WithGenerator)")
	}
	if config.exec == nil {
		return nil, fmt.Errorf("executor is required (use WithExecutor)")
	}
	if config.schema == nil {
		return nil, fmt.Errorf("schema source is required (use WithSchemaSource)")
	}

	logger := orDiscard(config.logger)
	return &Session{
		config:      config,
		controller:  NewController(config.gen, config.exec, logger),
		interpreter: NewInterpreter(config.gen, logger),
		logger:      logger,
	}, nil
}

// Schema returns the schema description, loading it on first use.
func (s *Session) Schema(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadSchema(ctx)
}

func (s *Session) loadSchema(ctx context.Context) (string, error) {
	if s.schema != "" {
		return s.schema, nil
	}
	schema, err := s.config.schema.Schema(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load graph schema: %w", err)
	}
	s.schema = schema
	return schema, nil
}

// Ask answers one question. The error is non-nil only when the schema
// cannot be loaded; query failures are reported in the Answer.
func (s *Session) Ask(ctx context.Context, question string) (*Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema, err := s.loadSchema(ctx)
	if err != nil {
		return nil, err
	}

	answer := &Answer{
		ID:       uuid.NewString(),
		Question: question,
		AskedAt:  time.Now(),
	}

	out := s.controller.Run(ctx, question, schema)
	answer.Outcome = out
	answer.Query = out.LastQuery

	switch {
	case out.Succeeded():
		answer.Status = StatusSuccess
		answer.Result = out.Result
		answer.Text = s.interpreter.Interpret(ctx, question, out.Result, out.Query.String())
	case out.Fatal:
		answer.Status = StatusFatal
		answer.Text = FormatFailure(out)
	default:
		answer.Status = StatusExhausted
		answer.Text = FormatFailure(out)
	}
	answer.Duration = time.Since(answer.AskedAt)

	if s.config.recorder != nil {
		if err := s.config.recorder.Record(ctx, answer); err != nil {
			s.logger.Warn("Failed to record question history", "error", err, "id", answer.ID)
		}
	}

	return answer, nil
}

// Execute validates and runs a hand-written statement.
func (s *Session) Execute(ctx context.Context, statement string) (cypher.ValidatedQuery, *graph.Result, error) {
	query, err := cypher.Validate(statement)
	if err != nil {
		return cypher.ValidatedQuery{}, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.config.exec.Run(ctx, query)
	if err != nil {
		return query, nil, err
	}
	return query, result, nil
}
