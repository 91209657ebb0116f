package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
	"github.com/custodia-labs/feeder/internal/core/ports/driving"
	"github.com/custodia-labs/feeder/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// IngestService coordinates ingestion: walk, extract, chunk, enrich, batch,
// then the optional question sweep and embedding refresh.
type IngestService struct {
	cfg        Config
	source     driven.Source
	registry   driven.ExtractorRegistry
	chunker    driven.Chunker
	enrichment driven.EnrichmentPipeline
	store      driven.DocumentStore
	refresher  *EmbeddingRefresher
	questions  *QuestionSweep

	// Status tracking
	mu     sync.RWMutex
	active map[string]*domain.IngestReport
}

// NewIngestService creates a new ingestion service.
// enrichment, embedder and generator are optional; when nil, enrichment is
// skipped and the refresh or question sweep cannot be requested.
func NewIngestService(
	cfg Config,
	source driven.Source,
	registry driven.ExtractorRegistry,
	chunker driven.Chunker,
	enrichment driven.EnrichmentPipeline,
	store driven.DocumentStore,
	embedder driven.EmbeddingService,
	generator driven.QuestionGenerator,
) *IngestService {
	cfg = cfg.withDefaults()

	s := &IngestService{
		cfg:        cfg,
		source:     source,
		registry:   registry,
		chunker:    chunker,
		enrichment: enrichment,
		store:      store,
		refresher:  NewEmbeddingRefresher(cfg, store, embedder),
		active:     make(map[string]*domain.IngestReport),
	}
	if generator != nil {
		s.questions = NewQuestionSweep(cfg, store, generator)
	}
	return s
}

// Run ingests every file under opts.SourceRoot into opts.Index.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (s *IngestService) Run(ctx context.Context, opts driving.RunOptions) (*domain.IngestReport, error) {
	if opts.Index == "" {
		return nil, fmt.Errorf("%w: index name is required", domain.ErrInvalidInput)
	}
	if opts.SourceRoot == "" {
		return nil, fmt.Errorf("%w: source root is required", domain.ErrInvalidInput)
	}
	if opts.GenerateQuestions && s.questions == nil {
		return nil, domain.ErrQuestionGeneratorUnavailable
	}
	if opts.RefreshEmbeddings && !s.refresher.Available() {
		return nil, domain.ErrEmbeddingUnavailable
	}

	start := time.Now()
	target := domain.IndexTarget{Name: opts.Index}
	report := &domain.IngestReport{Index: opts.Index}
	defer func() { report.Duration = time.Since(start) }()
	s.setStatus(opts.Index, report)
	defer s.clearStatus(opts.Index)

	logger.Section("Ingest " + opts.Index)
	logger.Info("Starting ingestion of %s into %s (%d workers)", opts.SourceRoot, opts.Index, s.cfg.Workers)

	// 1. Clear before anything is written
	if opts.ClearIndexFirst {
		if err := s.ClearIndex(ctx, opts.Index); err != nil {
			return report, err
		}
		if opts.GenerateQuestions {
			if err := s.ClearIndex(ctx, target.QuestionsIndex()); err != nil {
				return report, err
			}
		}
	}

	// 2-3. Walk, extract, chunk, enrich, batch
	writer := NewBatchWriter(s.store, opts.Index, s.cfg.BatchSize, s.cfg.Retry)
	var err error
	if s.cfg.Workers > 1 {
		err = s.ingestParallel(ctx, opts.SourceRoot, writer, report)
	} else {
		err = s.ingestSequential(ctx, opts.SourceRoot, writer, report)
	}
	if err != nil {
		return report, err
	}

	// 4. Final flush
	if err := writer.Finalize(ctx); err != nil {
		return report, fmt.Errorf("finalize: %w", err)
	}
	s.update(func() {
		report.Written = writer.Written()
		report.Flushes = writer.Flushes()
	})

	// 5. Question sweep over the persisted collection
	if opts.GenerateQuestions {
		logger.Section("Questions " + target.QuestionsIndex())
		res, err := s.questions.Run(ctx, target)
		s.update(func() {
			report.Questions = res.Questions
			report.EnrichmentFailures += res.Failures
		})
		if err != nil {
			return report, fmt.Errorf("question sweep: %w", err)
		}
	}

	// 6. Embedding refresh strictly after all writes
	if opts.RefreshEmbeddings {
		logger.Section("Embeddings " + opts.Index)
		n, err := s.refresher.Refresh(ctx, opts.Index)
		s.update(func() { report.EmbeddingsRefreshed = n })
		if err != nil {
			return report, err
		}
	}

	logger.Info("Ingestion complete: %d files, %d skipped, %d failed, %d records in %d batches",
		report.FilesProcessed, report.FilesSkipped, report.FilesFailed, report.Written, report.Flushes)
	return report, nil
}

// ClearIndex removes every record of an index.
func (s *IngestService) ClearIndex(ctx context.Context, index string) error {
	logger.Info("Clearing index %s", index)
	err := s.cfg.Retry.Do(ctx, "clear "+index, func() error {
		return s.store.DeleteDocuments(ctx, index)
	})
	if err != nil {
		return fmt.Errorf("%w: clear %s: %w", domain.ErrStoreWrite, index, err)
	}
	return nil
}

// RefreshEmbeddings recomputes the vectors of every record of an index.
func (s *IngestService) RefreshEmbeddings(ctx context.Context, index string) (int, error) {
	return s.refresher.Refresh(ctx, index)
}

// Count returns the number of records in an index.
func (s *IngestService) Count(ctx context.Context, index string) (int, error) {
	n, err := s.store.Count(ctx, index)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", index, err)
	}
	return n, nil
}

// Document returns one record of an index.
func (s *IngestService) Document(ctx context.Context, index, id string) (*domain.Record, error) {
	rec, err := s.store.GetDocument(ctx, index, id)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", index, id, err)
	}
	return rec, nil
}

// Indexes returns the names of every non-empty index.
func (s *IngestService) Indexes(ctx context.Context) ([]string, error) {
	names, err := s.store.Indexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	return names, nil
}

// Status returns the progress of the run writing to index.
func (s *IngestService) Status(_ context.Context, index string) (*driving.IngestStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if report, ok := s.active[index]; ok {
		// Return a copy to avoid race conditions
		return &driving.IngestStatus{
			Index:          index,
			Running:        true,
			FilesProcessed: report.FilesProcessed,
			FilesSkipped:   report.FilesSkipped,
			Written:        report.Written,
		}, nil
	}

	return &driving.IngestStatus{Index: index}, nil
}

// fileResult is the outcome of processing one file, handed to the writer as a unit.
type fileResult struct {
	file               domain.SourceFile
	records            []domain.Record
	passages           int
	recordErrors       int
	enrichmentFailures int
	skipped            bool
	failed             error
}

// ingestSequential processes files one at a time in walk order.
func (s *IngestService) ingestSequential(
	ctx context.Context,
	root string,
	writer *BatchWriter,
	report *domain.IngestReport,
) error {
	err := s.source.Walk(ctx, root, func(file domain.SourceFile) error {
		if domain.IsSidecar(file.Path) {
			return nil
		}
		res, err := s.processFile(ctx, file, writer.Index())
		if err != nil {
			return err
		}
		return s.collect(ctx, res, writer, report)
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", root, err)
	}
	return nil
}

// ingestParallel extracts files on a worker pool and funnels the results
// to the calling goroutine, which is the only one touching the writer.
func (s *IngestService) ingestParallel(
	ctx context.Context,
	root string,
	writer *BatchWriter,
	report *domain.IngestReport,
) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	files := make(chan domain.SourceFile)
	results := make(chan fileResult, s.cfg.Workers)

	g.Go(func() error {
		defer close(files)
		err := s.source.Walk(gctx, root, func(file domain.SourceFile) error {
			if domain.IsSidecar(file.Path) {
				return nil
			}
			select {
			case files <- file:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
		if err != nil {
			return fmt.Errorf("walk %s: %w", root, err)
		}
		return nil
	})

	for i := 0; i < s.cfg.Workers; i++ {
		g.Go(func() error {
			for file := range files {
				res, err := s.processFile(gctx, file, writer.Index())
				if err != nil {
					return err
				}
				select {
				case results <- res:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- g.Wait()
		close(results)
	}()

	var writeErr error
	for res := range results {
		if writeErr != nil {
			continue
		}
		if err := s.collect(ctx, res, writer, report); err != nil {
			writeErr = err
			cancel()
		}
	}

	groupErr := <-waitErr
	if writeErr != nil {
		return writeErr
	}
	return groupErr
}

// processFile runs extraction, chunking and enrichment for one file.
// Only cancellation is returned as an error; per-file failures are
// reported in the result.
func (s *IngestService) processFile(ctx context.Context, file domain.SourceFile, index string) (fileResult, error) {
	res := fileResult{file: file}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if file.Err != nil {
		res.failed = fmt.Errorf("%s: %w: read: %w", file.Path, domain.ErrExtraction, file.Err)
		return res, nil
	}

	format := file.Format
	if format == "" || format == domain.FormatUnknown {
		format = s.registry.Detect(file.Path)
	}
	if format == domain.FormatUnknown {
		res.skipped = true
		return res, nil
	}
	file.Format = format
	res.file = file

	extractor, err := s.registry.Get(format)
	if err != nil {
		res.skipped = true
		return res, nil
	}

	extracted, err := s.extract(ctx, extractor, file)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.failed = fmt.Errorf("%s: %w", file.Path, err)
		return res, nil
	}

	for _, recErr := range extracted.RecordErrors {
		logger.Warn("Skipping record: %v", recErr)
	}
	res.recordErrors = len(extracted.RecordErrors)
	res.passages = len(extracted.Passages)

	for _, passage := range extracted.Passages {
		records, err := s.chunker.Chunk(ctx, file, passage)
		if err != nil {
			return res, fmt.Errorf("chunk %s: %w", file.Path, err)
		}
		for i := range records {
			records[i].Index = index
			res.enrichmentFailures += s.enrich(ctx, &records[i])
		}
		res.records = append(res.records, records...)
	}

	return res, nil
}

func (s *IngestService) extract(ctx context.Context, extractor driven.Extractor, file domain.SourceFile) (*driven.ExtractResult, error) {
	rc, err := s.source.Open(ctx, file.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", domain.ErrExtraction, err)
	}
	defer rc.Close()

	res, err := extractor.Extract(ctx, file, rc)
	if err != nil {
		if !errors.Is(err, domain.ErrExtraction) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", domain.ErrExtraction, err)
		}
		return nil, err
	}
	return res, nil
}

// enrich applies the enrichment stages and logs failures. The failure
// count is returned; the record is never dropped.
func (s *IngestService) enrich(ctx context.Context, rec *domain.Record) int {
	if s.enrichment == nil || s.enrichment.Len() == 0 {
		return 0
	}
	failures := 0
	for _, result := range s.enrichment.Apply(ctx, rec) {
		if !result.OK() {
			failures++
			logger.Warn("Enrichment %s failed for %q: %v", result.Stage, excerpt(rec.Content), result.Err)
		}
	}
	return failures
}

// collect records a file's outcome and hands its records to the writer.
// Only store write failures are returned.
func (s *IngestService) collect(ctx context.Context, res fileResult, writer *BatchWriter, report *domain.IngestReport) error {
	switch {
	case res.skipped:
		logger.Info("Skipping %s: unrecognised format", res.file.Path)
		s.update(func() { report.FilesSkipped++ })
		return nil
	case res.failed != nil:
		logger.Warn("Failed to extract %v", res.failed)
		s.update(func() {
			report.FilesFailed++
			report.FileErrors = append(report.FileErrors, res.failed)
		})
		return nil
	}

	logger.Debug("Processed %s: %d passages, %d chunks", res.file.Path, res.passages, len(res.records))
	s.update(func() {
		report.FilesProcessed++
		report.Passages += res.passages
		report.RecordErrors += res.recordErrors
		report.Chunks += len(res.records)
		report.EnrichmentFailures += res.enrichmentFailures
	})

	for _, rec := range res.records {
		writer.Add(rec)
		if err := writer.MaybeFlush(ctx); err != nil {
			return err
		}
	}
	s.update(func() {
		report.Written = writer.Written()
		report.Flushes = writer.Flushes()
	})
	return nil
}

func (s *IngestService) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

func (s *IngestService) setStatus(index string, report *domain.IngestReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[index] = report
}

func (s *IngestService) clearStatus(index string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, index)
}
