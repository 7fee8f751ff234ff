package agent

import (
	"context"
	"log/slog"

	"cypherqa/internal/cypher"
	"cypherqa/internal/graph"
	"cypherqa/internal/llm"
)

// Executor runs a validated statement.
type Executor interface {
	Run(ctx context.Context, query cypher.ValidatedQuery) (*graph.Result, error)
}

// Controller drives one question through synthesis, validation, execution
// and repair until a query succeeds or MaxAttempts is used up.
type Controller struct {
	synth    *Synthesizer
	repairer *Repairer
	exec     Executor
	logger   *slog.Logger
}

// NewController creates a Controller. The same generator serves synthesis
// and repair.
func NewController(gen llm.Generator, exec Executor, logger *slog.Logger) *Controller {
	logger = orDiscard(logger)
	return &Controller{
		synth:    NewSynthesizer(gen, logger),
		repairer: NewRepairer(gen, logger),
		exec:     exec,
		logger:   logger,
	}
}

// run holds the mutable state of one Controller.Run call.
type run struct {
	question string
	schema   string
	attempt  int
	attempts []AttemptRecord

	raw   string
	query cypher.ValidatedQuery

	lastErr   error
	lastQuery string
}

// Run answers question against schema. It never returns nil.
//
// A failed attempt is recorded, then repaired when a failed statement
// exists: a repaired query goes straight to execution on the next attempt,
// otherwise the next attempt starts over from synthesis with every failed
// attempt so far in the prompt. A generation failure on the first attempt
// ends the run at once since there is nothing to repair.
func (c *Controller) Run(ctx context.Context, question, schema string) *Outcome {
	r := &run{question: question, schema: schema, attempt: 1}
	out := &Outcome{Trace: []State{StateInit}}

	state := StateGenerating
	for {
		out.Trace = append(out.Trace, state)

		switch state {
		case StateGenerating:
			text, err := c.synth.Synthesize(ctx, r.question, r.schema, r.attempts)
			if err != nil {
				if r.attempt == 1 {
					c.logger.Error("Cypher generation failed before any candidate", "error", err, "question", question)
					r.record("", err)
					out.Fatal = true
					state = StateExhausted
					continue
				}
				state = c.fail(r, "", err)
				continue
			}
			r.raw = text
			state = StateValidating

		case StateValidating:
			candidate, err := cypher.Extract(r.raw)
			if err != nil {
				state = c.fail(r, "", err)
				continue
			}
			query, err := cypher.Validate(candidate)
			if err != nil {
				state = c.fail(r, candidate, err)
				continue
			}
			r.query = query
			state = StateExecuting

		case StateExecuting:
			c.logger.Info("Executing generated Cypher", "attempt", r.attempt, "query", truncate(r.query.String(), 150))
			result, err := c.exec.Run(ctx, r.query)
			if err != nil {
				state = c.fail(r, r.query.String(), err)
				continue
			}
			out.Trace = append(out.Trace, StateSuccess)
			out.State = StateSuccess
			out.Query = r.query
			out.Result = result
			out.Attempts = r.attempts
			out.AttemptsUsed = r.attempt
			out.LastQuery = r.query.String()
			c.logger.Info("Question answered", "question", question, "attempt", r.attempt, "rows", result.Len())
			return out

		case StateRepairing:
			failedQuery, failedErr := r.lastQuery, r.lastErr
			r.attempt++
			state = StateGenerating
			if failedQuery == "" {
				continue
			}
			if fixed := c.repairer.Repair(ctx, failedQuery, failedErr.Error(), r.schema); fixed != nil {
				r.query = *fixed
				state = StateExecuting
			}

		case StateExhausted:
			out.State = StateExhausted
			out.Attempts = r.attempts
			out.AttemptsUsed = r.attempt
			out.LastErr = r.lastErr
			out.LastQuery = r.lastAttemptedQuery()
			if !out.Fatal {
				c.logger.Warn("Attempts exhausted", "question", question, "attempts", len(r.attempts), "last_error", r.lastErr)
			}
			return out
		}
	}
}

// fail records the current attempt and picks the next state.
func (c *Controller) fail(r *run, query string, err error) State {
	rec := r.record(query, err)
	c.logger.Warn("Attempt failed",
		"attempt", rec.Attempt,
		"kind", rec.Kind,
		"error", err,
		"query", query,
		"max_attempts", MaxAttempts)

	if r.attempt >= MaxAttempts {
		return StateExhausted
	}
	return StateRepairing
}

func (r *run) record(query string, err error) AttemptRecord {
	rec := AttemptRecord{Attempt: r.attempt, Query: query, Kind: classify(err), Err: err}
	r.attempts = append(r.attempts, rec)
	r.lastErr = err
	r.lastQuery = query
	return rec
}

// lastAttemptedQuery returns the most recent statement any attempt got as
// far as isolating.
func (r *run) lastAttemptedQuery() string {
	for i := len(r.attempts) - 1; i >= 0; i-- {
		if r.attempts[i].Query != "" {
			return r.attempts[i].Query
		}
	}
	return ""
}
