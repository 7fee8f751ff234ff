package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messageResponse = `{
  "id": "msg_test",
  "type": "message",
  "role": "assistant",
  "model": "claude-haiku-4-5",
  "content": [
    {"type": "text", "text": "` + "```cypher\\nMATCH (n) RETURN count(n)\\n```" + `"}
  ],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 12, "output_tokens": 9}
}`

func TestAnthropicGenerate(t *testing.T) {
	var captured map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageResponse))
	}))
	defer server.Close()

	gen, err := NewAnthropic(WithAPIKey("test-key"), WithBaseURL(server.URL))
	require.NoError(t, err)

	text, err := gen.Generate(context.Background(), Request{
		System: "You write Cypher.",
		Prompt: "How many nodes are there?",
	})
	require.NoError(t, err)
	assert.Equal(t, "```cypher\nMATCH (n) RETURN count(n)\n```", text)

	assert.Equal(t, "claude-haiku-4-5", captured["model"])
	assert.EqualValues(t, 0, captured["temperature"])
	assert.EqualValues(t, defaultMaxTokens, captured["max_tokens"])

	system, ok := captured["system"].([]any)
	require.True(t, ok, "system should be a list of text blocks")
	require.Len(t, system, 1)
	assert.Equal(t, "You write Cypher.", system[0].(map[string]any)["text"])
}

func TestAnthropicGenerateServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`))
	}))
	defer server.Close()

	gen, err := NewAnthropic(WithAPIKey("test-key"), WithBaseURL(server.URL), WithModel("no-such-model"))
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, ProviderAnthropic, genErr.Provider)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := NewAnthropic()
	require.Error(t, err)

	_, err = NewAnthropic(WithAPIKey(""))
	require.Error(t, err)

	_, err = New(context.Background(), "bogus", WithAPIKey("k"))
	require.Error(t, err)
}

func TestGeneratorFunc(t *testing.T) {
	gen := GeneratorFunc(func(ctx context.Context, req Request) (string, error) {
		return req.System + "|" + req.Prompt, nil
	})

	out, err := gen.Generate(context.Background(), Request{System: "s", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "s|p", out)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "ok", truncate("ok", 200))

	out := truncate("Straße", 5)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "Stra...", out)
}
