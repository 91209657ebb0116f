// Package whatlang provides a language detector backed by whatlanggo.
package whatlang

import (
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
)

// Ensure Detector implements the interface.
var _ driven.LanguageDetector = (*Detector)(nil)

// DefaultMinConfidence is the confidence below which a result is rejected.
const DefaultMinConfidence = 0.0

// Detector identifies languages with trigram statistics.
type Detector struct {
	minConfidence   float64
	requireReliable bool
	detect          func(string) whatlanggo.Info
}

// Option configures a Detector.
type Option func(*Detector)

// RequireReliable rejects results whatlanggo does not consider reliable.
func RequireReliable() Option {
	return func(d *Detector) {
		d.requireReliable = true
	}
}

// New creates a detector. Results under minConfidence are reported as
// detection failures.
func New(minConfidence float64, opts ...Option) *Detector {
	d := &Detector{minConfidence: minConfidence, detect: whatlanggo.Detect}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns the ISO 639-1 code of text.
func (d *Detector) Detect(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty text", domain.ErrDetection)
	}

	info := d.detect(text)
	if info.Script == nil || info.Lang < 0 {
		return "", fmt.Errorf("%w: no script identified", domain.ErrDetection)
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return "", fmt.Errorf("%w: no language identified", domain.ErrDetection)
	}
	if info.Confidence < d.minConfidence {
		return "", fmt.Errorf("%w: %s with confidence %.2f", domain.ErrDetection, code, info.Confidence)
	}
	if d.requireReliable && !info.IsReliable() {
		return "", fmt.Errorf("%w: %s is unreliable (confidence %.2f)", domain.ErrDetection, code, info.Confidence)
	}
	return code, nil
}
