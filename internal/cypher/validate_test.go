package cypher

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsMutatingClauses(t *testing.T) {
	testCases := []struct {
		name    string
		query   string
		keyword string
	}{
		{name: "create", query: "CREATE (b:Book {title: 'x'}) RETURN b", keyword: "CREATE"},
		{name: "lower case create", query: "create (b:Book)", keyword: "CREATE"},
		{name: "delete", query: "MATCH (b:Book) DELETE b", keyword: "DELETE"},
		{name: "detach delete", query: "MATCH (n) DETACH DELETE n", keyword: "DETACH DELETE"},
		{name: "mixed case detach delete", query: "match (n) Detach  Delete n", keyword: "DETACH DELETE"},
		{name: "set", query: "MATCH (b:Book) SET b.year = 2020 RETURN b", keyword: "SET"},
		{name: "merge", query: "MERGE (a:Author {name: 'x'})", keyword: "MERGE"},
		{name: "remove", query: "MATCH (b:Book) REMOVE b.year", keyword: "REMOVE"},
		{name: "keyword across newline", query: "MATCH (b)\nset b.x = 1", keyword: "SET"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			vq, err := Validate(tc.query)
			require.Error(t, err)
			assert.True(t, vq.IsZero())

			var unsafe *UnsafeQueryError
			require.True(t, errors.As(err, &unsafe), "expected UnsafeQueryError, got %T", err)
			assert.Equal(t, tc.keyword, unsafe.Keyword)
			assert.Equal(t, tc.query, unsafe.Query)
		})
	}
}

func TestValidateAcceptsReadOnlyQueries(t *testing.T) {
	testCases := []struct {
		name     string
		query    string
		expected string
	}{
		{
			name:     "appends delimiter",
			query:    "MATCH (b:Book) RETURN b.year, count(b)",
			expected: "MATCH (b:Book) RETURN b.year, count(b);",
		},
		{
			name:     "trims whitespace",
			query:    "\n  MATCH (n) RETURN n LIMIT 25  \n",
			expected: "MATCH (n) RETURN n LIMIT 25;",
		},
		{
			name:     "keeps existing delimiter",
			query:    "MATCH (n) RETURN count(n);",
			expected: "MATCH (n) RETURN count(n);",
		},
		{
			name:     "keyword inside identifier",
			query:    "MATCH (p:Post) RETURN p.created_at, p.settings, p.offset",
			expected: "MATCH (p:Post) RETURN p.created_at, p.settings, p.offset;",
		},
		{
			name:     "procedure call",
			query:    "CALL db.labels()",
			expected: "CALL db.labels();",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			vq, err := Validate(tc.query)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, vq.String())
			assert.True(t, strings.HasSuffix(vq.String(), Delimiter))
		})
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	queries := []string{
		"MATCH (b:Book) RETURN b.year AS year, count(*) AS count ORDER BY year",
		"MATCH (a:Author)-[:WROTE]->(b:Book) WHERE toLower(a.name) CONTAINS 'le' RETURN b;",
		"  OPTIONAL MATCH (n) RETURN n  ",
	}

	for _, q := range queries {
		first, err := Validate(q)
		require.NoError(t, err)

		second, err := Validate(first.String())
		require.NoError(t, err)
		assert.Equal(t, first.String(), second.String())
	}
}

func TestValidateEmpty(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t", ";", "  ; "} {
		_, err := Validate(q)
		assert.ErrorIs(t, err, ErrEmptyQuery, "query %q", q)
	}
}

func TestDenylistOrder(t *testing.T) {
	keywords := Denylist()
	require.NotEmpty(t, keywords)
	assert.Equal(t, "DETACH DELETE", keywords[0])
	assert.ElementsMatch(t,
		[]string{"DETACH DELETE", "CREATE", "DELETE", "SET", "MERGE", "REMOVE"},
		keywords)
}
