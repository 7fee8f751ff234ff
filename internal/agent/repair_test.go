package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cypherqa/internal/llm"
)

func TestRepair(t *testing.T) {
	tests := []struct {
		name  string
		reply reply
		want  string
	}{
		{"fenced fix", reply{text: "Fixed:\n" + fenced("MATCH (b:Book) RETURN b.title")}, "MATCH (b:Book) RETURN b.title;"},
		{"bare fix", reply{text: "MATCH (b:Book) RETURN b.title"}, "MATCH (b:Book) RETURN b.title;"},
		{"no query", reply{text: "Sorry, I can't help with that."}, ""},
		{"unsafe fix", reply{text: fenced("MATCH (b:Book) SET b.title = 'x' RETURN b")}, ""},
		{"generator error", reply{err: errors.New("timeout")}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newScriptedGenerator()
			gen.repair = []reply{tt.reply}

			fixed := NewRepairer(gen, nil).Repair(context.Background(), "MATCH (b:Book) RETURN b.titel;", "Unknown property titel", testSchema)

			if tt.want == "" {
				assert.Nil(t, fixed)
				return
			}
			require.NotNil(t, fixed)
			assert.Equal(t, tt.want, fixed.String())
		})
	}
}

func TestRepairPrompt(t *testing.T) {
	prompt := buildRepairPrompt("MATCH (b:Book) RETURN b.titel;", "Unknown property titel", testSchema)

	assert.Contains(t, prompt, "Query:\nMATCH (b:Book) RETURN b.titel;")
	assert.Contains(t, prompt, "Error:\nUnknown property titel")
	assert.Contains(t, prompt, "Schema:\n"+testSchema)
	assert.Contains(t, prompt, "```cypher")
}

func TestSynthesisPrompt(t *testing.T) {
	prompt := buildSynthesisPrompt("Top 3 authors?", testSchema, nil)

	assert.Contains(t, prompt, testSchema)
	assert.Contains(t, prompt, "LIMIT 25")
	assert.Contains(t, prompt, "Question: Top 3 authors?")
	assert.NotContains(t, prompt, "IMPORTANT")

	prompt = buildSynthesisPrompt("Top 3 authors?", testSchema, []AttemptRecord{
		{Attempt: 1, Query: "MATCH (a:Autor) RETURN a;", Kind: KindExecution, Err: errors.New("unknown label")},
	})
	assert.Contains(t, prompt, "IMPORTANT")
	assert.Contains(t, prompt, "Attempt 1:\nQuery: MATCH (a:Autor) RETURN a;\nError (ExecutionError): unknown label")
}

func TestSynthesizeWrapsPlainErrors(t *testing.T) {
	gen := llm.GeneratorFunc(func(ctx context.Context, req llm.Request) (string, error) {
		return "", errors.New("dial tcp: refused")
	})

	_, err := NewSynthesizer(gen, nil).Synthesize(context.Background(), "q", testSchema, nil)

	var genErr *llm.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, KindGeneration, classify(err))
	assert.Contains(t, err.Error(), "dial tcp: refused")
}
