// Package pdf extracts plain text from PDF files.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
	"github.com/custodia-labs/feeder/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// PageSeparator separates the text of consecutive pages.
// The chunker uses it to find repeated headers and footers.
const PageSeparator = "\f"

// Extractor handles PDF documents.
type Extractor struct {
	sidecars driven.SidecarReader
	category string
}

// New creates a PDF extractor. sidecars may be nil.
func New(sidecars driven.SidecarReader, category string) *Extractor {
	if category == "" {
		category = domain.DefaultCategory
	}
	return &Extractor{sidecars: sidecars, category: category}
}

// Formats returns the formats this extractor handles.
func (e *Extractor) Formats() []domain.Format {
	return []domain.Format{domain.FormatPDF}
}

// Extensions returns the file extensions mapped to PDF.
func (e *Extractor) Extensions() []string {
	return []string{".pdf"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract converts the whole file into a single passage.
func (e *Extractor) Extract(ctx context.Context, file domain.SourceFile, r io.Reader) (*driven.ExtractResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrExtraction, file.Path, err)
	}

	text, err := extractText(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, file.Path, err)
	}

	passage := domain.RawPassage{
		Content:  text,
		Title:    file.Stem(),
		Category: e.category,
	}
	if e.sidecars != nil {
		passage.SourceURL = e.sidecars.ReadSidecar(ctx, file.Path)
	}

	return &driven.ExtractResult{Passages: []domain.RawPassage{passage}}, nil
}

// extractText returns the plain text of every page joined by PageSeparator.
// The PDF library panics on some malformed content streams.
func extractText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("pdf page %d: %v", i, err)
			continue
		}
		pages = append(pages, content)
	}

	return strings.Join(pages, PageSeparator), nil
}
