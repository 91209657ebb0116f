package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/feeder/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
)

var errBoom = errors.New("boom")

// mapSource serves files from memory in sorted path order.
type mapSource struct {
	files  map[string]string
	broken map[string]error // paths the walk reports as unreadable
}

func newMapSource(files map[string]string) *mapSource {
	return &mapSource{files: files}
}

func (s *mapSource) Type() string { return "memory" }

func (s *mapSource) Walk(ctx context.Context, root string, fn driven.WalkFunc) error {
	paths := make([]string, 0, len(s.files)+len(s.broken))
	for p := range s.files {
		if strings.HasPrefix(p, root) {
			paths = append(paths, p)
		}
	}
	for p := range s.broken {
		if strings.HasPrefix(p, root) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(domain.SourceFile{
			Path: p,
			Name: filepath.Base(p),
			Size: int64(len(s.files[p])),
			Err:  s.broken[p],
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *mapSource) Open(_ context.Context, path string) (io.ReadCloser, error) {
	body, ok := s.files[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

// textExtractor returns the whole file as one passage for a fixed format.
type textExtractor struct {
	format domain.Format
	exts   []string
	fail   bool
}

func (e *textExtractor) Formats() []domain.Format { return []domain.Format{e.format} }
func (e *textExtractor) Extensions() []string     { return e.exts }
func (e *textExtractor) Priority() int            { return 100 }

func (e *textExtractor) Extract(_ context.Context, file domain.SourceFile, r io.Reader) (*driven.ExtractResult, error) {
	if e.fail {
		return nil, fmt.Errorf("%w: %s: corrupt", domain.ErrExtraction, file.Path)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &driven.ExtractResult{
		Passages: []domain.RawPassage{{Content: string(body), Title: file.Stem()}},
	}, nil
}

// flakyStore fails the first failures writes, or every write when failures is negative.
type flakyStore struct {
	*memory.DocumentStore

	mu       sync.Mutex
	failures int
	attempts int
	deletes  []string
	sizes    []int
}

func newFlakyStore(failures int) *flakyStore {
	return &flakyStore{DocumentStore: memory.NewDocumentStore(), failures: failures}
}

func (s *flakyStore) WriteDocuments(ctx context.Context, index string, records []domain.Record) error {
	s.mu.Lock()
	s.attempts++
	if s.failures != 0 {
		if s.failures > 0 {
			s.failures--
		}
		s.mu.Unlock()
		return errBoom
	}
	s.sizes = append(s.sizes, len(records))
	s.mu.Unlock()
	return s.DocumentStore.WriteDocuments(ctx, index, records)
}

func (s *flakyStore) DeleteDocuments(ctx context.Context, index string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, index)
	s.mu.Unlock()
	return s.DocumentStore.DeleteDocuments(ctx, index)
}

// fakeGenerator returns two questions per passage, or fails on passages containing "fail".
type fakeGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *fakeGenerator) Generate(_ context.Context, content string) ([]string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if strings.Contains(content, "fail") {
		return nil, errBoom
	}
	head := strings.Fields(content)[0]
	return []string{"What is " + head + "?", " Why " + head + "? ", "What is " + head + "?"}, nil
}

func (g *fakeGenerator) ModelName() string { return "fake" }
func (g *fakeGenerator) Close() error      { return nil }

// fakeEmbedder derives a vector from the text so results are reproducible.
type fakeEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	fail    bool
	dims    int // reported dimensions; 0 reports the real size of 2
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return vectorFor(text), nil
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches = append(e.batches, texts)
	e.mu.Unlock()
	if e.fail {
		return nil, errBoom
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = vectorFor(t)
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int {
	if e.dims > 0 {
		return e.dims
	}
	return 2
}

func (e *fakeEmbedder) ModelName() string            { return "fake-embed" }
func (e *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (e *fakeEmbedder) Close() error                 { return nil }

func vectorFor(text string) []float32 {
	return []float32{float32(len(text)), float32(len(strings.Fields(text)))}
}

// failingEnricher always fails after modifying the record.
type failingEnricher struct{}

func (failingEnricher) Name() string { return "failing" }

func (failingEnricher) Enrich(_ context.Context, rec *domain.Record) error {
	rec.ContentEnglish = "partial"
	return errBoom
}

// stubPipeline applies enrichers without the postprocessors package.
type stubPipeline struct {
	enrichers []driven.Enricher
}

func (p *stubPipeline) Apply(ctx context.Context, rec *domain.Record) []domain.EnrichmentResult {
	results := make([]domain.EnrichmentResult, 0, len(p.enrichers))
	for _, e := range p.enrichers {
		before := rec.Clone()
		err := e.Enrich(ctx, rec)
		if err != nil {
			*rec = before
		}
		results = append(results, domain.EnrichmentResult{Stage: e.Name(), Err: err})
	}
	return results
}

func (p *stubPipeline) Len() int { return len(p.enrichers) }

func jsonLine(text, title, url string) string {
	return fmt.Sprintf(`{"text":%q,"title":%q,"url":%q}`, text, title, url)
}

func words(n int, sentenceLen int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "w%d", i)
		if sentenceLen > 0 && i%sentenceLen == 0 {
			b.WriteByte('.')
		}
	}
	return b.String()
}
