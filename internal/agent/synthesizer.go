package agent

import (
	"context"
	"log/slog"

	"cypherqa/internal/llm"
)

// Synthesizer asks the model for a candidate query.
type Synthesizer struct {
	gen    llm.Generator
	logger *slog.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(gen llm.Generator, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{gen: gen, logger: orDiscard(logger)}
}

// Synthesize returns the raw model reply for question. When prior is not
// empty the prompt carries those attempts and asks for a different approach.
func (s *Synthesizer) Synthesize(ctx context.Context, question, schema string, prior []AttemptRecord) (string, error) {
	prompt := buildSynthesisPrompt(question, schema, prior)

	s.logger.Info("Generating Cypher", "question", question, "prior_attempts", len(prior))

	text, err := s.gen.Generate(ctx, llm.Request{System: synthesisSystem, Prompt: prompt})
	if err != nil {
		return "", asGenerationError(err)
	}
	return text, nil
}

// asGenerationError makes sure provider failures carry the generation kind
// even when a Generator returns a plain error.
func asGenerationError(err error) error {
	if classify(err) == KindGeneration {
		return err
	}
	return &llm.GenerationError{Provider: "generator", Err: err}
}
