// Package jsonl extracts passages from line-delimited JSON dumps.
// Each line is one object; field names vary between corpora and are
// normalised to the passage shape.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// MaxLineSize bounds a single JSON line including its newline. Wikipedia
// article dumps can be large; longer lines are reported and skipped.
const MaxLineSize = 16 * 1024 * 1024

var (
	errEmptyBody   = errors.New("record has no text or content")
	errLineTooLong = errors.New("line exceeds maximum size")
	errInvalidUTF8 = errors.New("line is not valid UTF-8")
)

// line is the union of field names seen across corpora.
type line struct {
	Text     string `json:"text"`
	Content  string `json:"content"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Extractor handles JSON-lines files.
type Extractor struct {
	category    string
	maxLineSize int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxLineSize overrides MaxLineSize.
func WithMaxLineSize(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxLineSize = n
		}
	}
}

// New creates a JSON-lines extractor.
func New(category string, opts ...Option) *Extractor {
	if category == "" {
		category = domain.DefaultCategory
	}
	e := &Extractor{category: category, maxLineSize: MaxLineSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Formats returns the formats this extractor handles.
func (e *Extractor) Formats() []domain.Format {
	return []domain.Format{domain.FormatJSONLines}
}

// Extensions returns the file extensions mapped to JSON-lines.
func (e *Extractor) Extensions() []string {
	return []string{".json", ".jsonl"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract returns one passage per valid line.
// A malformed or oversized line is reported as a *domain.ParseError and
// skipped; only a failing reader fails the whole file.
func (e *Extractor) Extract(ctx context.Context, file domain.SourceFile, r io.Reader) (*driven.ExtractResult, error) {
	result := &driven.ExtractResult{}
	br := bufio.NewReaderSize(r, 64*1024)

	lineNo := 0
	for {
		raw, oversized, readErr := e.readLine(br)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, file.Path, readErr)
		}
		if errors.Is(readErr, io.EOF) && len(raw) == 0 && !oversized {
			break
		}

		lineNo++
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		passage, err := e.parseLine(raw, oversized)
		switch {
		case err != nil:
			result.RecordErrors = append(result.RecordErrors, &domain.ParseError{
				Path: file.Path,
				Line: lineNo,
				Err:  err,
			})
		case passage != nil:
			passage.Line = lineNo
			result.Passages = append(result.Passages, *passage)
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
	}

	return result, nil
}

// readLine returns the next line without its terminator. A line longer than
// maxLineSize is consumed and discarded, and reported as oversized.
func (e *Extractor) readLine(br *bufio.Reader) ([]byte, bool, error) {
	var buf []byte
	oversized := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !oversized {
			if len(buf)+len(chunk) > e.maxLineSize {
				oversized = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return bytes.TrimRight(buf, "\r\n"), oversized, err
	}
}

// parseLine returns nil for a blank line.
func (e *Extractor) parseLine(raw []byte, oversized bool) (*domain.RawPassage, error) {
	if oversized {
		return nil, fmt.Errorf("%w (%d bytes)", errLineTooLong, e.maxLineSize)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if !utf8.Valid(raw) {
		return nil, errInvalidUTF8
	}

	var l line
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, err
	}

	// An empty text falls back to content.
	body := l.Text
	if strings.TrimSpace(body) == "" {
		body = l.Content
	}
	if strings.TrimSpace(body) == "" {
		return nil, errEmptyBody
	}

	source := l.URL
	if source == "" {
		source = l.Name
	}
	category := l.Category
	if category == "" {
		category = e.category
	}

	return &domain.RawPassage{
		Content:   body,
		Title:     l.Title,
		SourceURL: source,
		Category:  category,
	}, nil
}
