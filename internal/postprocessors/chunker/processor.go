// Package chunker splits passages into word-bounded chunks that respect
// sentence boundaries.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultMaxWords is the default number of words per chunk.
const DefaultMaxWords = 200

// recordNamespace scopes record IDs generated by the chunker.
var recordNamespace = uuid.MustParse("6f1c2f4e-3b1a-4c55-9d0e-7a4f3c2b1e90")

// Processor splits passage content into chunks of at most maxWords words.
// It implements the Chunker interface.
type Processor struct {
	maxWords          int
	respectSentences  bool
	cleanHeaderFooter bool
	cleanEmptyLines   bool
	cleanWhitespace   bool
	now               func() time.Time
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxWords sets the word limit per chunk.
func WithMaxWords(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxWords = n
		}
	}
}

// WithRespectSentenceBoundary keeps sentences whole when set.
func WithRespectSentenceBoundary(b bool) Option {
	return func(p *Processor) {
		p.respectSentences = b
	}
}

// WithCleanHeaderFooter removes lines repeated at the top or bottom of most pages.
func WithCleanHeaderFooter(b bool) Option {
	return func(p *Processor) {
		p.cleanHeaderFooter = b
	}
}

// WithCleanEmptyLines drops blank lines.
func WithCleanEmptyLines(b bool) Option {
	return func(p *Processor) {
		p.cleanEmptyLines = b
	}
}

// WithCleanWhitespace trims lines and collapses runs of spaces and tabs.
func WithCleanWhitespace(b bool) Option {
	return func(p *Processor) {
		p.cleanWhitespace = b
	}
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxWords:          DefaultMaxWords,
		respectSentences:  true,
		cleanHeaderFooter: true,
		cleanEmptyLines:   true,
		cleanWhitespace:   true,
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// MaxWords returns the configured word limit.
func (p *Processor) MaxWords() int {
	return p.maxWords
}

// Chunk splits the passage into records carrying the passage's title and metadata.
func (p *Processor) Chunk(ctx context.Context, file domain.SourceFile, passage domain.RawPassage) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parts := p.Split(passage.Content)
	if len(parts) == 0 {
		return nil, nil
	}

	category := passage.Category
	if category == "" {
		category = domain.DefaultCategory
	}

	created := p.now().UTC()
	records := make([]domain.Record, 0, len(parts))
	for i, content := range parts {
		records = append(records, domain.Record{
			ID:          RecordID(file.Path, passage.Line, i),
			Content:     content,
			Title:       passage.Title,
			ContentType: domain.ContentTypeText,
			Meta: domain.Meta{
				Name:     passage.SourceURL,
				Category: category,
			},
			Position:   i,
			SourcePath: file.Path,
			CreatedAt:  created,
		})
	}

	return records, nil
}

// RecordID returns a stable ID for the chunk at position of a passage.
// Re-ingesting the same file therefore overwrites rather than duplicates.
func RecordID(path string, line, position int) string {
	key := fmt.Sprintf("%s|%d|%d", path, line, position)
	return uuid.NewSHA1(recordNamespace, []byte(key)).String()
}

// Split cleans text and returns the chunk contents.
// Text without words yields no chunks.
func (p *Processor) Split(text string) []string {
	cleaned := clean(text, cleanOptions{
		whitespace:   p.cleanWhitespace,
		emptyLines:   p.cleanEmptyLines,
		headerFooter: p.cleanHeaderFooter,
	})

	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return nil
	}

	if !p.respectSentences {
		return windows(words, p.maxWords)
	}
	return pack(sentences(words), p.maxWords)
}

// windows cuts words into consecutive runs of at most size words.
func windows(words []string, size int) []string {
	chunks := make([]string, 0, len(words)/size+1)
	for start := 0; start < len(words); start += size {
		end := min(start+size, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// pack greedily fills chunks with whole sentences.
// A sentence longer than size becomes a chunk of its own.
func pack(sents [][]string, size int) []string {
	var chunks []string
	var cur []string

	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, strings.Join(cur, " "))
			cur = nil
		}
	}

	for _, s := range sents {
		if len(s) > size {
			flush()
			chunks = append(chunks, strings.Join(s, " "))
			continue
		}
		if len(cur)+len(s) > size {
			flush()
		}
		cur = append(cur, s...)
	}
	flush()

	return chunks
}

// sentences groups words into sentences. A sentence ends at a word whose
// last character, ignoring closing quotes and brackets, is '.', '!' or '?'.
func sentences(words []string) [][]string {
	var out [][]string
	start := 0
	for i, w := range words {
		if endsSentence(w) {
			out = append(out, words[start:i+1])
			start = i + 1
		}
	}
	if start < len(words) {
		out = append(out, words[start:])
	}
	return out
}

func endsSentence(word string) bool {
	w := strings.TrimRight(word, `"')]}»”’`)
	if w == "" {
		return false
	}
	switch w[len(w)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// WordCount returns the number of whitespace-delimited words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
