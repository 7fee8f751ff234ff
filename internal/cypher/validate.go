// Package cypher isolates Cypher statements from model output and guards
// them before they reach the database.
package cypher

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Delimiter terminates every validated statement.
const Delimiter = ";"

// mutatingClause is one entry of the write-operation denylist.
type mutatingClause struct {
	Keyword string
	Pattern *regexp.Regexp
}

// denylist is checked in order; DETACH DELETE comes before DELETE so the
// error names the more specific clause.
var denylist = []mutatingClause{
	{Keyword: "DETACH DELETE", Pattern: regexp.MustCompile(`(?i)\bDETACH\s+DELETE\b`)},
	{Keyword: "CREATE", Pattern: regexp.MustCompile(`(?i)\bCREATE\b`)},
	{Keyword: "DELETE", Pattern: regexp.MustCompile(`(?i)\bDELETE\b`)},
	{Keyword: "SET", Pattern: regexp.MustCompile(`(?i)\bSET\b`)},
	{Keyword: "MERGE", Pattern: regexp.MustCompile(`(?i)\bMERGE\b`)},
	{Keyword: "REMOVE", Pattern: regexp.MustCompile(`(?i)\bREMOVE\b`)},
}

// ErrEmptyQuery is returned when there is no statement text to validate.
var ErrEmptyQuery = errors.New("empty query")

// UnsafeQueryError reports a statement that would modify the graph.
type UnsafeQueryError struct {
	Keyword string
	Query   string
}

func (e *UnsafeQueryError) Error() string {
	return fmt.Sprintf("unsafe query: contains mutating operation %s", e.Keyword)
}

// ValidatedQuery is a read-only statement that passed Validate. The zero
// value is not a valid query.
type ValidatedQuery struct {
	text string
}

// String returns the statement text, terminated by Delimiter.
func (q ValidatedQuery) String() string {
	return q.text
}

// IsZero reports whether q was not produced by Validate.
func (q ValidatedQuery) IsZero() bool {
	return q.text == ""
}

// Validate rejects statements containing a mutating clause and normalizes
// the rest: surrounding whitespace is trimmed and a trailing delimiter is
// added when missing. Validating an already validated statement returns it
// unchanged.
func Validate(raw string) (ValidatedQuery, error) {
	for _, clause := range denylist {
		if clause.Pattern.MatchString(raw) {
			return ValidatedQuery{}, &UnsafeQueryError{Keyword: clause.Keyword, Query: raw}
		}
	}

	text := strings.TrimSpace(raw)
	if strings.TrimSpace(strings.TrimSuffix(text, Delimiter)) == "" {
		return ValidatedQuery{}, ErrEmptyQuery
	}
	if !strings.HasSuffix(text, Delimiter) {
		text += Delimiter
	}

	return ValidatedQuery{text: text}, nil
}

// Denylist returns the mutating keywords Validate rejects, in check order.
func Denylist() []string {
	keywords := make([]string, len(denylist))
	for i, clause := range denylist {
		keywords[i] = clause.Keyword
	}
	return keywords
}
