package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceFile_ExtAndStem(t *testing.T) {
	tests := []struct {
		name string
		file SourceFile
		ext  string
		stem string
	}{
		{"pdf", SourceFile{Name: "report.pdf"}, ".pdf", "report"},
		{"upper case", SourceFile{Name: "Report.DOCX"}, ".docx", "Report"},
		{"no extension", SourceFile{Name: "README"}, "", "README"},
		{"double extension", SourceFile{Name: "a.tar.gz"}, ".gz", "a.tar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ext, tt.file.Ext())
			assert.Equal(t, tt.stem, tt.file.Stem())
		})
	}
}

func TestSidecar(t *testing.T) {
	assert.Equal(t, "/docs/a.pdf.info", SidecarPath("/docs/a.pdf"))
	assert.True(t, IsSidecar("/docs/a.pdf.info"))
	assert.True(t, IsSidecar("/docs/a.pdf.INFO"))
	assert.False(t, IsSidecar("/docs/a.pdf"))
}
