package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/feeder/internal/core/domain"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const documentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>The quick brown fox.</w:t></w:r></w:p>
<w:p><w:r><w:t>Jumps over the lazy dog.</w:t></w:r></w:p>
</w:body>
</w:document>`

// createTestDOCX creates a minimal valid DOCX file in memory.
func createTestDOCX(t *testing.T) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	ct, err := w.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = ct.Write([]byte(contentTypesXML))
	require.NoError(t, err)

	doc, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = doc.Write([]byte(documentXML))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	return buf.Bytes()
}

type fixedSidecar string

func (f fixedSidecar) ReadSidecar(_ context.Context, _ string) string { return string(f) }

func TestNew(t *testing.T) {
	e := New(nil, "")
	require.NotNil(t, e)
	assert.Equal(t, []domain.Format{domain.FormatDOCX}, e.Formats())
	assert.ElementsMatch(t, []string{".docx", ".doc"}, e.Extensions())
	assert.Equal(t, 50, e.Priority())
}

func TestExtract_DOCX(t *testing.T) {
	e := New(fixedSidecar("https://example.com/report"), "a")
	file := domain.SourceFile{Path: "/docs/report.docx", Name: "report.docx", Format: domain.FormatDOCX}

	res, err := e.Extract(context.Background(), file, bytes.NewReader(createTestDOCX(t)))
	require.NoError(t, err)
	require.Len(t, res.Passages, 1)

	p := res.Passages[0]
	assert.Contains(t, p.Content, "The quick brown fox.")
	assert.Contains(t, p.Content, "Jumps over the lazy dog.")
	assert.Equal(t, "report", p.Title)
	assert.Equal(t, "https://example.com/report", p.SourceURL)
	assert.Equal(t, "a", p.Category)
}

func TestExtract_NoSidecarReader(t *testing.T) {
	e := New(nil, "")
	file := domain.SourceFile{Path: "/docs/report.docx", Name: "report.docx"}

	res, err := e.Extract(context.Background(), file, bytes.NewReader(createTestDOCX(t)))
	require.NoError(t, err)
	assert.Empty(t, res.Passages[0].SourceURL)
}

func TestExtract_CorruptFile(t *testing.T) {
	e := New(nil, "")
	file := domain.SourceFile{Path: "/docs/broken.docx", Name: "broken.docx"}

	res, err := e.Extract(context.Background(), file, bytes.NewReader([]byte("not a zip archive")))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestTitleFor(t *testing.T) {
	assert.Equal(t, "report", titleFor(domain.SourceFile{Name: "report.docx"}, nil))
	assert.Equal(t, "From Meta", titleFor(domain.SourceFile{Name: ".docx"}, map[string]string{"Title": "From Meta"}))
}
