package services

import "time"

// Default pipeline settings.
const (
	DefaultBatchSize         = 100
	DefaultQuestionBatchSize = 100
	DefaultWorkers           = 1
	DefaultPageSize          = 500
	DefaultEmbedBatchSize    = 32
)

// Config holds the pipeline settings. It is passed to the services at
// construction; nothing is read from globals.
type Config struct {
	// BatchSize is the number of records per write to the primary index.
	BatchSize int

	// QuestionBatchSize is the number of records per write to the questions index.
	// It is counted in records, like BatchSize.
	QuestionBatchSize int

	// Workers is the number of files extracted concurrently.
	// Writes always go through a single writer.
	Workers int

	// PageSize is the number of records read per page by the sweeps.
	PageSize int

	// EmbedBatchSize is the number of texts per embedding request.
	EmbedBatchSize int

	// EmbedTitle prepends the title to the content before embedding.
	EmbedTitle bool

	// EmbedRateLimit caps embedding requests per second. Zero disables the limit.
	EmbedRateLimit float64

	// Retry governs writes, deletes and embedding updates.
	Retry RetryPolicy
}

// DefaultConfig returns the settings used by the feeds.
func DefaultConfig() Config {
	return Config{
		BatchSize:         DefaultBatchSize,
		QuestionBatchSize: DefaultQuestionBatchSize,
		Workers:           DefaultWorkers,
		PageSize:          DefaultPageSize,
		EmbedBatchSize:    DefaultEmbedBatchSize,
		EmbedTitle:        true,
		Retry:             DefaultRetryPolicy(),
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.QuestionBatchSize <= 0 {
		c.QuestionBatchSize = d.QuestionBatchSize
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.EmbedBatchSize <= 0 {
		c.EmbedBatchSize = d.EmbedBatchSize
	}
	if c.Retry.InitialInterval <= 0 {
		c.Retry.InitialInterval = d.Retry.InitialInterval
	}
	if c.Retry.MaxInterval <= 0 {
		c.Retry.MaxInterval = d.Retry.MaxInterval
	}
	if c.Retry.MaxRetries < 0 {
		c.Retry.MaxRetries = 0
	}
	return c
}

// excerptLength is the number of characters of content quoted in logs.
const excerptLength = 80

// excerpt returns the leading characters of s for log messages.
func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= excerptLength {
		return s
	}
	return string(r[:excerptLength]) + "..."
}

// now is the clock used for generated records.
var now = func() time.Time { return time.Now().UTC() }
