package cypher

import (
	"fmt"
	"regexp"
	"strings"
)

// ExtractionError reports model output with no recognizable statement.
type ExtractionError struct {
	Response string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("no Cypher query found in response (%d chars)", len(e.Response))
}

// extractRule isolates a statement from a model response. ok is false when
// the rule does not apply.
type extractRule struct {
	Name  string
	Apply func(response string) (query string, ok bool)
}

var (
	fencePattern = regexp.MustCompile("(?is)```[ \\t]*cypher\\b[ \\t]*\\n?(.*?)```")

	// A MATCH clause is always followed by a pattern, optionally bound to a
	// path variable. Requiring the "(" keeps prose like "to match" out.
	matchStartPattern = regexp.MustCompile(`(?i)\b(?:OPTIONAL\s+)?MATCH\s+(?:\w+\s*=\s*)?\(`)
	upperMatchPattern = regexp.MustCompile(`^(?:OPTIONAL\s+)?MATCH\b`)
	returnPattern     = regexp.MustCompile(`(?i)\bRETURN\b`)
	spanEndPattern    = regexp.MustCompile(";|\n[ \t]*\n|```")

	// Upper-case only: lower-case "where"/"with"/"return" are ordinary
	// English words in model chatter.
	grammarKeywords = []*regexp.Regexp{
		regexp.MustCompile(`\bMATCH\b`),
		regexp.MustCompile(`\bRETURN\b`),
		regexp.MustCompile(`\bWHERE\b`),
		regexp.MustCompile(`\bWITH\b`),
		regexp.MustCompile(`\bUNWIND\b`),
		regexp.MustCompile(`\bCALL\b`),
	}
)

// extractRules are tried in order; the first that applies wins.
var extractRules = []extractRule{
	{Name: "fenced-block", Apply: fromFence},
	{Name: "match-span", Apply: fromMatchSpan},
	{Name: "keyword-scan", Apply: fromKeywords},
}

// Extract isolates an executable Cypher statement from free-form model
// output. It prefers a ```cypher fenced block, then a span starting at a
// MATCH clause and running to a ";", a blank line, a closing fence or the
// end of the text, then the whole response if it contains query keywords.
func Extract(response string) (string, error) {
	for _, rule := range extractRules {
		if query, ok := rule.Apply(response); ok {
			return query, nil
		}
	}
	return "", &ExtractionError{Response: response}
}

func fromFence(response string) (string, bool) {
	m := fencePattern.FindStringSubmatch(response)
	if m == nil {
		return "", false
	}
	query := strings.TrimSpace(m[1])
	return query, query != ""
}

// fromMatchSpan prefers the first MATCH span that reaches a RETURN clause.
// A span without RETURN is only taken when its MATCH is upper-case, the same
// rule fromKeywords applies to bare keywords.
func fromMatchSpan(response string) (string, bool) {
	fallback := ""
	for _, loc := range matchStartPattern.FindAllStringIndex(response, -1) {
		span := response[loc[0]:]
		if end := spanEndPattern.FindStringIndex(span); end != nil {
			span = span[:end[0]]
		}
		span = strings.TrimSpace(span)
		if returnPattern.MatchString(span) {
			return span, true
		}
		if fallback == "" && upperMatchPattern.MatchString(span) {
			fallback = span
		}
	}
	return fallback, fallback != ""
}

func fromKeywords(response string) (string, bool) {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return "", false
	}
	for _, kw := range grammarKeywords {
		if kw.MatchString(trimmed) {
			return trimmed, true
		}
	}
	return "", false
}
