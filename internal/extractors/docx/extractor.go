// Package docx extracts plain text from Word documents.
package docx

import (
	"context"
	"fmt"
	"io"

	"code.sajari.com/docconv"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// MIME types passed to docconv.
const (
	MIMETypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMETypeDOC  = "application/msword"
)

// Extractor handles DOC and DOCX documents.
type Extractor struct {
	sidecars driven.SidecarReader
	category string
}

// New creates a Word extractor. sidecars may be nil.
func New(sidecars driven.SidecarReader, category string) *Extractor {
	if category == "" {
		category = domain.DefaultCategory
	}
	return &Extractor{sidecars: sidecars, category: category}
}

// Formats returns the formats this extractor handles.
func (e *Extractor) Formats() []domain.Format {
	return []domain.Format{domain.FormatDOCX}
}

// Extensions returns the file extensions mapped to DOCX.
func (e *Extractor) Extensions() []string {
	return []string{".docx", ".doc"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract converts the whole file into a single passage.
func (e *Extractor) Extract(ctx context.Context, file domain.SourceFile, r io.Reader) (*driven.ExtractResult, error) {
	mimeType := MIMETypeDOCX
	if file.Ext() == ".doc" {
		mimeType = MIMETypeDOC
	}

	res, err := docconv.Convert(r, mimeType, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, file.Path, err)
	}

	passage := domain.RawPassage{
		Content:  res.Body,
		Title:    titleFor(file, res.Meta),
		Category: e.category,
	}
	if e.sidecars != nil {
		passage.SourceURL = e.sidecars.ReadSidecar(ctx, file.Path)
	}

	return &driven.ExtractResult{Passages: []domain.RawPassage{passage}}, nil
}

// titleFor prefers the file name, as the feeds store it, over document properties.
func titleFor(file domain.SourceFile, meta map[string]string) string {
	if stem := file.Stem(); stem != "" {
		return stem
	}
	return meta["Title"]
}
