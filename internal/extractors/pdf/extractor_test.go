package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/feeder/internal/core/domain"
)

// fixedSidecar returns the same URL for every path.
type fixedSidecar struct {
	url   string
	paths []string
}

func (f *fixedSidecar) ReadSidecar(_ context.Context, path string) string {
	f.paths = append(f.paths, path)
	return f.url
}

func TestNew(t *testing.T) {
	e := New(nil, "")
	require.NotNil(t, e)
	assert.Equal(t, domain.DefaultCategory, e.category)
	assert.Equal(t, []domain.Format{domain.FormatPDF}, e.Formats())
	assert.Equal(t, []string{".pdf"}, e.Extensions())
	assert.Equal(t, 50, e.Priority())
}

func TestExtract_CorruptFile(t *testing.T) {
	sidecars := &fixedSidecar{url: "https://example.com"}
	e := New(sidecars, "a")
	file := domain.SourceFile{Path: "/docs/broken.pdf", Name: "broken.pdf", Format: domain.FormatPDF}

	res, err := e.Extract(context.Background(), file, bytes.NewReader([]byte("this is not a pdf")))

	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Contains(t, err.Error(), "/docs/broken.pdf")
	assert.Empty(t, sidecars.paths, "sidecar is not read for files that fail conversion")
}

func TestExtract_EmptyFile(t *testing.T) {
	e := New(nil, "")
	file := domain.SourceFile{Path: "/docs/empty.pdf", Name: "empty.pdf"}

	_, err := e.Extract(context.Background(), file, bytes.NewReader(nil))
	assert.ErrorIs(t, err, domain.ErrExtraction)
}
