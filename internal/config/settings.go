// Package config resolves feeder settings from the environment, the TOML
// config file and built-in defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
	"github.com/custodia-labs/feeder/internal/core/services"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Defaults applied when neither the environment nor the config file set a value.
const (
	DefaultIndex             = "document"
	DefaultBackend           = BackendSQLite
	DefaultEmbeddingProvider = domain.AIProviderOllama
	DefaultAWSRegion         = "us-east-1"
)

// StoreSettings selects and locates the document store.
type StoreSettings struct {
	Backend     string
	SQLiteDir   string
	PostgresDSN string
}

// S3Settings configures the S3 source.
type S3Settings struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
}

// Settings is the resolved configuration of a feeder run.
type Settings struct {
	Index     string
	Store     StoreSettings
	Embedding domain.EmbeddingSettings
	LLM       domain.LLMSettings
	S3        S3Settings
	Pipeline  services.Config
	LogFile   string
}

// Validate checks the fields that have a closed set of values.
func (s Settings) Validate() error {
	switch s.Store.Backend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if s.Store.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres backend needs FEEDER_POSTGRES_DSN or store.postgres_dsn", domain.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", domain.ErrInvalidInput, s.Store.Backend)
	}
	if p := s.Embedding.Provider; p != domain.AIProviderNone && !p.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, p)
	}
	if p := s.LLM.Provider; p != domain.AIProviderNone && !p.IsValid() {
		return fmt.Errorf("%w: unknown llm provider %q", domain.ErrInvalidInput, p)
	}
	return nil
}

// LoadDotEnv loads .env files into the process environment.
// Missing files are ignored. Variables already set are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load resolves settings. store may be nil, in which case only the
// environment and defaults are consulted.
func Load(store driven.ConfigStore) Settings {
	r := resolver{store: store}

	pipeline := services.DefaultConfig()
	pipeline.BatchSize = r.int("FEEDER_BATCH_SIZE", "pipeline.batch_size", pipeline.BatchSize)
	pipeline.QuestionBatchSize = r.int("FEEDER_QUESTION_BATCH_SIZE", "pipeline.question_batch_size", pipeline.QuestionBatchSize)
	pipeline.Workers = r.int("FEEDER_WORKERS", "pipeline.workers", pipeline.Workers)
	pipeline.EmbedBatchSize = r.int("FEEDER_EMBED_BATCH_SIZE", "pipeline.embed_batch_size", pipeline.EmbedBatchSize)
	pipeline.EmbedTitle = r.bool("FEEDER_EMBED_TITLE", "pipeline.embed_title", pipeline.EmbedTitle)
	pipeline.EmbedRateLimit = r.float("FEEDER_EMBED_RATE_LIMIT", "pipeline.embed_rate_limit", 0)
	pipeline.Retry.MaxRetries = r.int("FEEDER_RETRIES", "pipeline.retries", pipeline.Retry.MaxRetries)

	ollamaHost := r.string("OLLAMA_HOST", "ollama.host", "")
	if ollamaHost != "" && !strings.Contains(ollamaHost, "://") {
		ollamaHost = "http://" + ollamaHost
	}

	embedding := domain.EmbeddingSettings{
		Provider:   domain.AIProvider(r.string("FEEDER_EMBEDDING_PROVIDER", "embedding.provider", string(DefaultEmbeddingProvider))),
		Model:      r.string("FEEDER_EMBEDDING_MODEL", "embedding.model", ""),
		BaseURL:    r.string("FEEDER_EMBEDDING_BASE_URL", "embedding.base_url", ""),
		Dimensions: r.int("FEEDER_EMBEDDING_DIMENSIONS", "embedding.dimensions", 0),
	}
	embedding.APIKey = apiKey(r, embedding.Provider, "embedding.api_key")
	if embedding.BaseURL == "" && embedding.Provider == domain.AIProviderOllama {
		embedding.BaseURL = ollamaHost
	}

	llm := domain.LLMSettings{
		Provider:     domain.AIProvider(r.string("FEEDER_LLM_PROVIDER", "llm.provider", "")),
		Model:        r.string("FEEDER_LLM_MODEL", "llm.model", ""),
		BaseURL:      r.string("FEEDER_LLM_BASE_URL", "llm.base_url", ""),
		MaxQuestions: r.int("FEEDER_MAX_QUESTIONS", "llm.max_questions", 0),
	}
	llm.APIKey = apiKey(r, llm.Provider, "llm.api_key")
	if llm.BaseURL == "" && llm.Provider == domain.AIProviderOllama {
		llm.BaseURL = ollamaHost
	}

	return Settings{
		Index: r.string("FEEDER_INDEX", "index", DefaultIndex),
		Store: StoreSettings{
			Backend:     strings.ToLower(r.string("FEEDER_STORE", "store.backend", DefaultBackend)),
			SQLiteDir:   r.string("FEEDER_SQLITE_DIR", "store.sqlite_dir", ""),
			PostgresDSN: r.string("FEEDER_POSTGRES_DSN", "store.postgres_dsn", ""),
		},
		Embedding: embedding,
		LLM:       llm,
		S3: S3Settings{
			Region:          r.string("AWS_REGION", "s3.region", DefaultAWSRegion),
			AccessKeyID:     r.string("AWS_ACCESS_KEY_ID", "", ""),
			SecretAccessKey: r.string("AWS_SECRET_ACCESS_KEY", "", ""),
			Endpoint:        r.string("FEEDER_S3_ENDPOINT", "s3.endpoint", ""),
			UsePathStyle:    r.bool("FEEDER_S3_PATH_STYLE", "s3.path_style", false),
		},
		Pipeline: pipeline,
		LogFile:  r.string("FEEDER_LOG_FILE", "log.file", ""),
	}
}

// apiKey reads the provider's conventional environment variable, then the config key.
func apiKey(r resolver, provider domain.AIProvider, key string) string {
	env := ""
	switch provider {
	case domain.AIProviderOpenAI:
		env = "OPENAI_API_KEY"
	case domain.AIProviderGemini:
		env = "GEMINI_API_KEY"
	case domain.AIProviderAnthropic:
		env = "ANTHROPIC_API_KEY"
	}
	return r.string(env, key, "")
}

// resolver looks a value up in the environment, then the config store.
// An empty env or key name skips that layer.
type resolver struct {
	store driven.ConfigStore
}

func (r resolver) lookup(env, key string) (any, bool) {
	if env != "" {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			return v, true
		}
	}
	if key != "" && r.store != nil {
		return r.store.Get(key)
	}
	return nil, false
}

func (r resolver) string(env, key, fallback string) string {
	v, ok := r.lookup(env, key)
	if !ok {
		return fallback
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func (r resolver) int(env, key string, fallback int) int {
	v, ok := r.lookup(env, key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return fallback
}

func (r resolver) float(env, key string, fallback float64) float64 {
	v, ok := r.lookup(env, key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return fallback
}

func (r resolver) bool(env, key string, fallback bool) bool {
	v, ok := r.lookup(env, key)
	if !ok {
		return fallback
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed
		}
	}
	return fallback
}
