package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"cypherqa/internal/graph"
)

// suggestions are shown whenever a question could not be answered.
var suggestions = []string{
	"Rephrase the question using the names of things in the graph.",
	"Be more specific about what you want counted, listed or compared.",
	"Check that the data you are asking about exists in the database.",
}

// FormatFailure renders an exhausted outcome as markdown.
func FormatFailure(out *Outcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Could not answer the question after %d attempt(s).**\n\n", len(out.Attempts))
	if out.LastErr != nil {
		fmt.Fprintf(&b, "Last error (%s):\n\n```\n%s\n```\n\n", classify(out.LastErr), out.LastErr.Error())
	}
	if out.LastQuery != "" {
		fmt.Fprintf(&b, "Last attempted query:\n\n```cypher\n%s\n```\n\n", out.LastQuery)
	}

	b.WriteString("Suggestions:\n")
	for _, s := range suggestions {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	return b.String()
}

// FormatTable renders up to previewRows rows as a markdown table.
func FormatTable(result *graph.Result) string {
	if result.Len() == 0 {
		return "No results found.\n"
	}

	columns := resultColumns(result)

	var b strings.Builder
	b.WriteString("| ")
	for _, col := range columns {
		b.WriteString(fmt.Sprintf("%s | ", col))
	}
	b.WriteString("\n|")
	for range columns {
		b.WriteString("---|")
	}
	b.WriteString("\n")

	for i, row := range result.Rows {
		if i >= previewRows {
			break
		}
		b.WriteString("| ")
		for _, col := range columns {
			b.WriteString(formatCell(row[col]))
			b.WriteString(" | ")
		}
		b.WriteString("\n")
	}

	if result.Len() > previewRows {
		fmt.Fprintf(&b, "\n*(Showing first %d of %d rows)*\n", previewRows, result.Len())
	}
	if result.Truncated {
		fmt.Fprintf(&b, "\n*(Result cut off at %d rows; more rows exist)*\n", result.Len())
	}
	return b.String()
}

func formatCell(val any) string {
	switch v := val.(type) {
	case nil:
		return "NULL"
	case float64:
		return fmt.Sprintf("%.2f", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case string:
		return strings.ReplaceAll(v, "|", `\|`)
	case []any, map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return strings.ReplaceAll(string(data), "|", `\|`)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// truncate shortens s to at most maxLen bytes on a rune boundary, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
