package extractors

import (
	"slices"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
	"github.com/custodia-labs/feeder/internal/extractors/docx"
	"github.com/custodia-labs/feeder/internal/extractors/jsonl"
	"github.com/custodia-labs/feeder/internal/extractors/pdf"
)

// RegisterSelected registers the built-in extractors handling a format
// allow accepts. A nil allow registers every built-in. Files of other
// formats are then detected as unknown and skipped.
// sidecars supplies the source URL of PDF and DOCX files; category is the
// label given to passages whose input carries none.
func RegisterSelected(r *Registry, sidecars driven.SidecarReader, category string, allow func(domain.Format) bool) {
	builtins := []driven.Extractor{
		pdf.New(sidecars, category),
		docx.New(sidecars, category),
		jsonl.New(category),
	}
	for _, e := range builtins {
		if allow == nil || slices.ContainsFunc(e.Formats(), allow) {
			r.Register(e)
		}
	}
}
