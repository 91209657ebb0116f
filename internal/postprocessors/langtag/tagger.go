// Package langtag tags records whose content is in a given language.
package langtag

import (
	"context"
	"errors"
	"strings"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
	"github.com/custodia-labs/feeder/internal/logger"
)

// Ensure Tagger implements the interface.
var _ driven.Enricher = (*Tagger)(nil)

// Name is the registry name of the tagger.
const Name = "langtag"

// English is the ISO 639-1 code of records that get ContentEnglish.
const English = "en"

// Tagger copies Content into ContentEnglish when the content is English.
type Tagger struct {
	detector driven.LanguageDetector
	minWords int
}

// Option configures the tagger.
type Option func(*Tagger)

// WithMinWords skips detection for records shorter than n words.
// Such records are treated as not English.
func WithMinWords(n int) Option {
	return func(t *Tagger) {
		if n > 0 {
			t.minWords = n
		}
	}
}

// New creates a tagger backed by detector.
func New(detector driven.LanguageDetector, opts ...Option) (*Tagger, error) {
	if detector == nil {
		return nil, errors.New("langtag: language detector is required")
	}
	t := &Tagger{detector: detector}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Name returns the stage name.
func (t *Tagger) Name() string {
	return Name
}

// Enrich detects the language of rec.Content.
// An undecidable text is treated as not matching and is not an error.
func (t *Tagger) Enrich(_ context.Context, rec *domain.Record) error {
	if t.minWords > 0 && len(strings.Fields(rec.Content)) < t.minWords {
		return nil
	}

	lang, err := t.detector.Detect(rec.Content)
	if err != nil {
		if errors.Is(err, domain.ErrDetection) {
			logger.Debug("langtag: %v", err)
			return nil
		}
		return err
	}
	if lang == English {
		rec.ContentEnglish = rec.Content
	}
	return nil
}
