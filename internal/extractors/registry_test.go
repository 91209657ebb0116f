package extractors

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
)

// stubExtractor is a configurable extractor for registry tests.
type stubExtractor struct {
	name       string
	formats    []domain.Format
	extensions []string
	priority   int
}

func (s *stubExtractor) Formats() []domain.Format { return s.formats }
func (s *stubExtractor) Extensions() []string { return s.extensions }
func (s *stubExtractor) Priority() int { return s.priority }
func (s *stubExtractor) Extract(_ context.Context, _ domain.SourceFile, _ io.Reader) (*driven.ExtractResult, error) {
	return &driven.ExtractResult{Passages: []domain.RawPassage{{Content: s.name}}}, nil
}

func TestRegistry_Detect(t *testing.T) {
	r := NewRegistry()
	RegisterSelected(r, nil, "", nil)

	tests := []struct {
		path     string
		expected domain.Format
	}{
		{"/docs/a.pdf", domain.FormatPDF},
		{"/docs/A.PDF", domain.FormatPDF},
		{"/docs/b.docx", domain.FormatDOCX},
		{"/docs/c.doc", domain.FormatDOCX},
		{"/dumps/wiki.json", domain.FormatJSONLines},
		{"/dumps/wiki.jsonl", domain.FormatJSONLines},
		{"/docs/notes.xyz", domain.FormatUnknown},
		{"/docs/a.pdf.info", domain.FormatUnknown},
		{"/docs/README", domain.FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.Detect(tt.path))
		})
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	RegisterSelected(r, nil, "", nil)

	e, err := r.Get(domain.FormatPDF)
	require.NoError(t, err)
	assert.Contains(t, e.Formats(), domain.FormatPDF)

	_, err = r.Get(domain.FormatUnknown)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestRegistry_PriorityWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{name: "low", formats: []domain.Format{"x"}, extensions: []string{".x"}, priority: 10})
	r.Register(&stubExtractor{name: "high", formats: []domain.Format{"x"}, extensions: []string{".x"}, priority: 90})
	r.Register(&stubExtractor{name: "mid", formats: []domain.Format{"x"}, priority: 50})

	e, err := r.Get("x")
	require.NoError(t, err)

	res, err := e.Extract(context.Background(), domain.SourceFile{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "high", res.Passages[0].Content)
}

func TestRegistry_Formats(t *testing.T) {
	r := NewRegistry()
	RegisterSelected(r, nil, "", nil)

	assert.Equal(t, []domain.Format{domain.FormatDOCX, domain.FormatJSONLines, domain.FormatPDF}, r.Formats())
}

func TestRegistry_NoFormatsIgnored(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{name: "none", extensions: []string{".none"}})

	assert.Equal(t, domain.FormatUnknown, r.Detect("a.none"))
	assert.Empty(t, r.Formats())
}

func TestRegisterSelected(t *testing.T) {
	r := NewRegistry()
	RegisterSelected(r, nil, "", func(f domain.Format) bool {
		return f == domain.FormatPDF || f == domain.FormatDOCX
	})

	assert.Equal(t, []domain.Format{domain.FormatDOCX, domain.FormatPDF}, r.Formats())
	assert.Equal(t, domain.FormatUnknown, r.Detect("dump.jsonl"))
	assert.Equal(t, domain.FormatDOCX, r.Detect("report.DOC"))
}
