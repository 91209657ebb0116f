// Package langchain provides a question generator backed by langchaingo models.
package langchain

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
)

// Ensure QuestionGenerator implements the interface.
var _ driven.QuestionGenerator = (*QuestionGenerator)(nil)

// Default configuration values.
const (
	DefaultOllamaURL    = "http://localhost:11434"
	DefaultOllamaModel  = "llama3.2"
	DefaultOpenAIModel  = "gpt-4o-mini"
	DefaultClaudeModel  = "claude-3-5-haiku-latest"
	DefaultMaxQuestions = 5
)

// defaultQuestionPrompt is the fallback prompt when no PromptStore is configured.
const defaultQuestionPrompt = `Write up to %d questions that the passage below answers.
Write one question per line with no numbering and no other text.

Passage:
%s

Questions:`

// QuestionGenerator asks a language model for questions a passage answers.
type QuestionGenerator struct {
	llm          llms.Model
	modelName    string
	maxQuestions int
	promptStore  driven.PromptStore
}

// New wraps an existing model. maxQuestions <= 0 selects DefaultMaxQuestions.
func New(model llms.Model, modelName string, maxQuestions int) *QuestionGenerator {
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}
	return &QuestionGenerator{
		llm:          model,
		modelName:    modelName,
		maxQuestions: maxQuestions,
	}
}

// NewFromSettings creates the provider model described by settings.
func NewFromSettings(settings domain.LLMSettings) (*QuestionGenerator, error) {
	var (
		model llms.Model
		err   error
		name  = settings.Model
	)

	switch settings.Provider {
	case domain.AIProviderOllama:
		if name == "" {
			name = DefaultOllamaModel
		}
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		model, err = ollama.New(
			ollama.WithModel(name),
			ollama.WithServerURL(baseURL),
		)

	case domain.AIProviderOpenAI:
		if settings.APIKey == "" {
			return nil, fmt.Errorf("%w: openai API key required", domain.ErrInvalidInput)
		}
		if name == "" {
			name = DefaultOpenAIModel
		}
		opts := []openai.Option{openai.WithToken(settings.APIKey), openai.WithModel(name)}
		if settings.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(settings.BaseURL))
		}
		model, err = openai.New(opts...)

	case domain.AIProviderAnthropic:
		if settings.APIKey == "" {
			return nil, fmt.Errorf("%w: anthropic API key required", domain.ErrInvalidInput)
		}
		if name == "" {
			name = DefaultClaudeModel
		}
		model, err = anthropic.New(
			anthropic.WithToken(settings.APIKey),
			anthropic.WithModel(name),
		)

	default:
		return nil, fmt.Errorf("%w: unsupported question provider: %s", domain.ErrInvalidInput, settings.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", settings.Provider, err)
	}

	return New(model, name, settings.MaxQuestions), nil
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the generator uses its built-in prompt.
func (g *QuestionGenerator) SetPromptStore(store driven.PromptStore) {
	g.promptStore = store
}

// Generate returns up to maxQuestions questions for content.
func (g *QuestionGenerator) Generate(ctx context.Context, content string) ([]string, error) {
	prompt := fmt.Sprintf(g.loadPrompt(), g.maxQuestions, content)

	response, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, llms.WithTemperature(0.2))
	if err != nil {
		return nil, classify(fmt.Errorf("generate questions: %w", err))
	}

	return ParseQuestions(response, g.maxQuestions), nil
}

// loadPrompt loads the template from the store, falling back to the default.
func (g *QuestionGenerator) loadPrompt() string {
	if g.promptStore == nil {
		return defaultQuestionPrompt
	}
	prompt, err := g.promptStore.Load(driven.PromptQuestionGeneration)
	if err != nil || prompt == "" {
		return defaultQuestionPrompt
	}
	return prompt
}

// ModelName returns the model in use.
func (g *QuestionGenerator) ModelName() string {
	return g.modelName
}

// Close releases resources. langchaingo models hold none.
func (g *QuestionGenerator) Close() error {
	return nil
}

// ParseQuestions extracts one question per line from a model response.
// List markers and numbering are stripped, lines without a question mark
// are dropped and at most limit questions are returned.
func ParseQuestions(response string, limit int) []string {
	var questions []string
	for _, line := range strings.Split(response, "\n") {
		q := stripMarker(strings.TrimSpace(line))
		if q == "" || !strings.HasSuffix(q, "?") {
			continue
		}
		questions = append(questions, q)
		if limit > 0 && len(questions) == limit {
			break
		}
	}
	return questions
}

// stripMarker removes a leading bullet or "1." / "1)" / "Q1:" prefix.
func stripMarker(line string) string {
	line = strings.TrimLeft(line, "-*•· \t")

	rest := line
	if len(rest) > 0 && (rest[0] == 'Q' || rest[0] == 'q') {
		rest = rest[1:]
	}
	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits > 0 && digits < len(rest) && strings.ContainsRune(".):", rune(rest[digits])) {
		line = rest[digits+1:]
	}
	return strings.TrimSpace(line)
}

// rejectionMarkers identify provider errors that retrying will not fix.
var rejectionMarkers = []string{
	"invalid api key",
	"incorrect api key",
	"unauthorized",
	"authentication",
	"permission denied",
	"credit balance",
	"billing",
	"quota",
}

// statusPattern finds the HTTP status the provider clients put in their
// error text, e.g. "API returned unexpected status code: 401".
var statusPattern = regexp.MustCompile(`(?i)\bstatus(?:\s+code)?\s*[:=]?\s*(\d{3})\b`)

// rejectedStatus are responses that retrying will not fix.
var rejectedStatus = map[int]bool{
	http.StatusUnauthorized:    true,
	http.StatusPaymentRequired: true,
	http.StatusForbidden:       true,
}

// classify marks credential and quota failures as ErrProviderRejected.
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	for _, m := range statusPattern.FindAllStringSubmatch(msg, -1) {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil && rejectedStatus[code] {
			return fmt.Errorf("%w: %w", domain.ErrProviderRejected, err)
		}
	}
	for _, marker := range rejectionMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %w", domain.ErrProviderRejected, err)
		}
	}
	return err
}
