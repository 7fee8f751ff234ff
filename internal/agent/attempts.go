package agent

import (
	"errors"
	"fmt"
	"strings"

	"cypherqa/internal/cypher"
	"cypherqa/internal/graph"
	"cypherqa/internal/llm"
)

// MaxAttempts bounds the generate-or-repair / validate / execute cycles per
// question.
const MaxAttempts = 3

// State is a step of the retry controller.
type State int

const (
	StateInit State = iota
	StateGenerating
	StateValidating
	StateExecuting
	StateRepairing
	StateSuccess
	StateExhausted
)

var stateNames = map[State]string{
	StateInit:       "init",
	StateGenerating: "generating",
	StateValidating: "validating",
	StateExecuting:  "executing",
	StateRepairing:  "repairing",
	StateSuccess:    "success",
	StateExhausted:  "exhausted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrorKind classifies why an attempt failed.
type ErrorKind string

const (
	KindUnsafeQuery ErrorKind = "UnsafeQueryError"
	KindExtraction  ErrorKind = "ExtractionError"
	KindGeneration  ErrorKind = "GenerationError"
	KindExecution   ErrorKind = "ExecutionError"
	KindOther       ErrorKind = "Error"
)

// classify maps an error to its kind.
func classify(err error) ErrorKind {
	var (
		unsafe     *cypher.UnsafeQueryError
		extraction *cypher.ExtractionError
		generation *llm.GenerationError
		execution  *graph.ExecutionError
	)
	switch {
	case errors.As(err, &unsafe):
		return KindUnsafeQuery
	case errors.As(err, &extraction):
		return KindExtraction
	case errors.As(err, &generation):
		return KindGeneration
	case errors.As(err, &execution):
		return KindExecution
	default:
		return KindOther
	}
}

// AttemptRecord is one failed attempt. Query is empty when no statement was
// isolated.
type AttemptRecord struct {
	Attempt int
	Query   string
	Kind    ErrorKind
	Err     error
}

// Message returns the error text.
func (r AttemptRecord) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// formatAttempts serializes prior attempts for the synthesis prompt.
func formatAttempts(records []AttemptRecord) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "Attempt %d:\n", r.Attempt)
		if r.Query != "" {
			fmt.Fprintf(&b, "Query: %s\n", r.Query)
		} else {
			b.WriteString("Query: (none produced)\n")
		}
		fmt.Fprintf(&b, "Error (%s): %s\n\n", r.Kind, r.Message())
	}
	return strings.TrimRight(b.String(), "\n")
}

// Outcome is the terminal result of one controller run.
type Outcome struct {
	State State
	// Query and Result are set on success.
	Query  cypher.ValidatedQuery
	Result *graph.Result
	// Attempts lists every failed attempt in order.
	Attempts []AttemptRecord
	// AttemptsUsed counts attempts started, including a successful one.
	AttemptsUsed int
	LastErr      error
	LastQuery    string
	// Fatal is set when generation failed before any candidate existed.
	Fatal bool
	// Trace lists the states visited, starting with StateInit.
	Trace []State
}

// Succeeded reports whether the run ended in StateSuccess.
func (o *Outcome) Succeeded() bool {
	return o.State == StateSuccess
}
