package agent

import (
	"context"
	"log/slog"

	"cypherqa/internal/cypher"
	"cypherqa/internal/llm"
)

// Repairer asks the model to fix a query the database or the validator
// rejected.
type Repairer struct {
	gen    llm.Generator
	logger *slog.Logger
}

// NewRepairer creates a Repairer.
func NewRepairer(gen llm.Generator, logger *slog.Logger) *Repairer {
	return &Repairer{gen: gen, logger: orDiscard(logger)}
}

// Repair returns a corrected, validated query, or nil when none could be
// obtained. A nil result is an expected outcome, not a failure of the
// caller.
func (r *Repairer) Repair(ctx context.Context, failedQuery, errorMessage, schema string) *cypher.ValidatedQuery {
	prompt := buildRepairPrompt(failedQuery, errorMessage, schema)

	text, err := r.gen.Generate(ctx, llm.Request{System: repairSystem, Prompt: prompt})
	if err != nil {
		r.logger.Warn("Repair generation failed", "error", err, "query", failedQuery)
		return nil
	}

	raw, err := cypher.Extract(text)
	if err != nil {
		r.logger.Warn("No query in repair response", "error", err, "response_preview", truncate(text, 200))
		return nil
	}

	fixed, err := cypher.Validate(raw)
	if err != nil {
		r.logger.Warn("Repaired query rejected", "error", err, "query", raw)
		return nil
	}

	r.logger.Info("Query repaired", "original", failedQuery, "repaired", fixed.String())
	return &fixed
}
