package agent

import (
	"context"
	"errors"
	"sync"

	"cypherqa/internal/cypher"
	"cypherqa/internal/graph"
	"cypherqa/internal/llm"
)

// reply is one scripted generator response.
type reply struct {
	text string
	err  error
}

// scriptedGenerator answers synthesis, repair and interpretation requests
// from separate queues. An exhausted queue repeats its last reply.
type scriptedGenerator struct {
	mu        sync.Mutex
	synthesis []reply
	repair    []reply
	interpret []reply
	requests  map[string][]llm.Request
}

func newScriptedGenerator() *scriptedGenerator {
	return &scriptedGenerator{requests: map[string][]llm.Request{}}
}

func (g *scriptedGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var queue *[]reply
	switch req.System {
	case synthesisSystem:
		queue = &g.synthesis
	case repairSystem:
		queue = &g.repair
	case interpretSystem:
		queue = &g.interpret
	default:
		return "", errors.New("unexpected system prompt")
	}
	g.requests[req.System] = append(g.requests[req.System], req)

	if len(*queue) == 0 {
		return "", &llm.GenerationError{Provider: "fake", Err: errors.New("no scripted reply")}
	}
	r := (*queue)[0]
	if len(*queue) > 1 {
		*queue = (*queue)[1:]
	}
	return r.text, r.err
}

func (g *scriptedGenerator) calls(system string) []llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[system]
}

// execStep is one scripted executor response.
type execStep struct {
	result *graph.Result
	err    error
}

// fakeExecutor replays steps; the last step repeats.
type fakeExecutor struct {
	steps    []execStep
	executed []string
}

func (e *fakeExecutor) Run(ctx context.Context, query cypher.ValidatedQuery) (*graph.Result, error) {
	e.executed = append(e.executed, query.String())
	if len(e.steps) == 0 {
		return &graph.Result{}, nil
	}
	s := e.steps[0]
	if len(e.steps) > 1 {
		e.steps = e.steps[1:]
	}
	return s.result, s.err
}

func execFailure(msg string) execStep {
	return execStep{err: &graph.ExecutionError{Err: errors.New(msg)}}
}

type staticSchema struct {
	text  string
	err   error
	calls int
}

func (s *staticSchema) Schema(ctx context.Context) (string, error) {
	s.calls++
	return s.text, s.err
}

type memoryRecorder struct {
	answers []*Answer
}

func (r *memoryRecorder) Record(ctx context.Context, a *Answer) error {
	r.answers = append(r.answers, a)
	return nil
}

const testSchema = "Node properties:\nBook {title: STRING, year: INTEGER}\n"

func fenced(q string) string {
	return "```cypher\n" + q + "\n```"
}

func booksByYear() *graph.Result {
	return &graph.Result{
		Columns: []string{"year", "count"},
		Rows: []map[string]any{
			{"year": int64(2020), "count": int64(3)},
			{"year": int64(2021), "count": int64(5)},
		},
	}
}
