package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// defaultLimit is the row cap the model is told to use when the question
// does not ask for a specific number of results.
const defaultLimit = 25

// previewRows caps how many result rows are shown to the interpreter.
const previewRows = 50

const (
	synthesisSystem = "You are an expert Neo4j developer who translates questions into read-only Cypher queries."
	repairSystem    = "You are an expert Neo4j developer who fixes broken Cypher queries."
	interpretSystem = "You are a data analyst who explains graph query results in plain language."
)

// constructionRules are included in every synthesis prompt.
var constructionRules = []string{
	"Use only the node labels, relationship types and properties listed in the schema.",
	fmt.Sprintf("Unless the question asks for a specific number of results, end the query with LIMIT %d.", defaultLimit),
	"Compare text case-insensitively, e.g. toLower(n.name) CONTAINS toLower('value').",
	"For superlative questions (most, least, highest, top, latest) use ORDER BY with DESC or ASC and a LIMIT.",
	"Guard optional properties with IS NOT NULL before comparing, sorting or aggregating them.",
	"Never create, update, merge, remove or delete data.",
	"Return only the query in a single ```cypher fenced block.",
}

func buildSynthesisPrompt(question, schema string, prior []AttemptRecord) string {
	var b strings.Builder

	b.WriteString("Write a Cypher query that answers the question below.\n\n")
	b.WriteString("Schema:\n")
	b.WriteString(schema)
	b.WriteString("\n\nRules:\n")
	for _, rule := range constructionRules {
		b.WriteString("- ")
		b.WriteString(rule)
		b.WriteString("\n")
	}

	if len(prior) > 0 {
		b.WriteString("\nIMPORTANT: the previous attempts below failed. Do not repeat the same approach; ")
		b.WriteString("take a different route to the answer that avoids these errors.\n\n")
		b.WriteString(formatAttempts(prior))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	return b.String()
}

func buildRepairPrompt(failedQuery, errorMessage, schema string) string {
	return fmt.Sprintf(`The following Cypher query failed.

Query:
%s

Error:
%s

Schema:
%s

Return one corrected, read-only query that uses the schema's labels, relationship types and property names exactly as written. Return only the query in a single `+"```cypher"+` fenced block.`,
		failedQuery, errorMessage, schema)
}

func buildInterpretPrompt(question, query string, columns []string, rows []map[string]any, truncated bool) (string, error) {
	preview := rows
	if len(preview) > previewRows {
		preview = preview[:previewRows]
	}

	data, err := json.MarshalIndent(preview, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result rows: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	fmt.Fprintf(&b, "Cypher query:\n%s\n\n", query)
	if truncated {
		fmt.Fprintf(&b, "Row count: %d (cut off at the row limit; the full result has more rows)\n", len(rows))
	} else {
		fmt.Fprintf(&b, "Row count: %d\n", len(rows))
	}
	fmt.Fprintf(&b, "Columns: %s\n\n", strings.Join(columns, ", "))
	if len(rows) > previewRows {
		fmt.Fprintf(&b, "First %d rows:\n", previewRows)
	} else {
		b.WriteString("Rows:\n")
	}
	b.Write(data)
	b.WriteString("\n\nAnswer the question from these results. Mention the specific values that support the answer.")
	return b.String(), nil
}
