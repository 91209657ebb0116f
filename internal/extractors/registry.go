package extractors

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps formats to extractors and extensions to formats.
// When several extractors claim a format, the highest priority wins.
type Registry struct {
	mu         sync.RWMutex
	byFormat   map[domain.Format][]driven.Extractor
	extensions map[string]domain.Format
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byFormat:   make(map[domain.Format][]driven.Extractor),
		extensions: make(map[string]domain.Format),
	}
}

// Register adds an extractor for each format it declares.
// Extensions are mapped to the extractor's first format.
func (r *Registry) Register(e driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	formats := e.Formats()
	for _, f := range formats {
		list := append(r.byFormat[f], e)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byFormat[f] = list
	}
	if len(formats) == 0 {
		return
	}
	for _, ext := range e.Extensions() {
		r.extensions[strings.ToLower(ext)] = formats[0]
	}
}

// Detect returns the format for path based on its lowercased extension.
func (r *Registry) Detect(path string) domain.Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return f
	}
	return domain.FormatUnknown
}

// Get returns the highest priority extractor for a format.
func (r *Registry) Get(format domain.Format) (driven.Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byFormat[format]
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, format)
	}
	return list[0], nil
}

// Formats returns all registered formats in sorted order.
func (r *Registry) Formats() []domain.Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]domain.Format, 0, len(r.byFormat))
	for f := range r.byFormat {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}
