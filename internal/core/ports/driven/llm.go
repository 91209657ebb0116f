package driven

import "context"

// QuestionGenerator produces questions answerable from a passage.
// This is an optional service - when nil, question generation is unavailable.
//
// Implementations may include:
//   - Ollama (local models)
//   - OpenAI
//   - Anthropic
type QuestionGenerator interface {
	// Generate returns the questions generated for content, in model order.
	Generate(ctx context.Context, content string) ([]string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
