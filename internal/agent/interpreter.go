package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"cypherqa/internal/graph"
	"cypherqa/internal/llm"
)

// NoResultsMessage is returned for an empty result without asking the model.
const NoResultsMessage = `The query ran successfully but returned no results. This can happen when:
- no data in the graph matches the question,
- the criteria are too specific (exact names, spellings or ranges), or
- the generated query does not capture what the question meant.

Try rephrasing the question or loosening its criteria.`

// Interpreter turns query results into a natural-language answer.
type Interpreter struct {
	gen    llm.Generator
	logger *slog.Logger
}

// NewInterpreter creates an Interpreter.
func NewInterpreter(gen llm.Generator, logger *slog.Logger) *Interpreter {
	return &Interpreter{gen: gen, logger: orDiscard(logger)}
}

// Interpret answers question from result. It never fails: a generator error
// yields a short message with the row count and the error text.
func (i *Interpreter) Interpret(ctx context.Context, question string, result *graph.Result, query string) string {
	if result.Len() == 0 {
		return NoResultsMessage
	}

	prompt, err := buildInterpretPrompt(question, query, resultColumns(result), result.Rows, result.Truncated)
	if err != nil {
		i.logger.Error("Failed to build analysis prompt", "error", err)
		return degradedAnswer(result.Len(), err)
	}

	text, err := i.gen.Generate(ctx, llm.Request{System: interpretSystem, Prompt: prompt})
	if err != nil {
		i.logger.Error("Result analysis failed", "error", err, "rows", result.Len())
		return degradedAnswer(result.Len(), err)
	}
	return text
}

func degradedAnswer(rows int, err error) string {
	return fmt.Sprintf("The query returned %d rows, but they could not be summarized: %v", rows, err)
}

// resultColumns returns the driver's column order, or the sorted keys of the
// first row when it is missing.
func resultColumns(result *graph.Result) []string {
	if len(result.Columns) > 0 {
		return result.Columns
	}
	if len(result.Rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(result.Rows[0]))
	for k := range result.Rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
