package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
	"github.com/custodia-labs/feeder/internal/logger"
)

// BatchWriter accumulates records and writes them to one index in batches
// of threshold records. It is not safe for concurrent use; the pipeline
// gives it a single owner.
type BatchWriter struct {
	store     driven.DocumentStore
	index     string
	threshold int
	retry     RetryPolicy

	batch   []domain.Record
	flushes int
	written int
}

// NewBatchWriter creates a writer for index. A threshold below one means one.
func NewBatchWriter(store driven.DocumentStore, index string, threshold int, retry RetryPolicy) *BatchWriter {
	if threshold < 1 {
		threshold = 1
	}
	return &BatchWriter{
		store:     store,
		index:     index,
		threshold: threshold,
		retry:     retry,
		batch:     make([]domain.Record, 0, threshold),
	}
}

// Add appends a record to the batch. It never writes.
func (w *BatchWriter) Add(rec domain.Record) {
	rec.Index = w.index
	w.batch = append(w.batch, rec)
}

// MaybeFlush writes full batches of threshold records while enough are pending.
// On failure the pending records stay in the batch.
func (w *BatchWriter) MaybeFlush(ctx context.Context) error {
	for len(w.batch) >= w.threshold {
		if err := w.write(ctx, w.batch[:w.threshold]); err != nil {
			return err
		}
		n := copy(w.batch, w.batch[w.threshold:])
		w.batch = w.batch[:n]
	}
	return nil
}

// Flush writes every pending record regardless of the threshold.
// On failure the pending records stay in the batch and Flush may be retried.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if len(w.batch) == 0 {
		return nil
	}
	if err := w.write(ctx, w.batch); err != nil {
		return err
	}
	w.batch = w.batch[:0]
	return nil
}

// Finalize performs the last write of the run.
func (w *BatchWriter) Finalize(ctx context.Context) error {
	pending := len(w.batch)
	if err := w.Flush(ctx); err != nil {
		return err
	}
	logger.Debug("%s: finalized with %d pending records, %d written in %d batches",
		w.index, pending, w.written, w.flushes)
	return nil
}

func (w *BatchWriter) write(ctx context.Context, records []domain.Record) error {
	err := w.retry.Do(ctx, "write "+w.index, func() error {
		return w.store.WriteDocuments(ctx, w.index, records)
	})
	if err != nil {
		return fmt.Errorf("%w: %d records to %s: %w", domain.ErrStoreWrite, len(records), w.index, err)
	}
	w.flushes++
	w.written += len(records)
	logger.Debug("%s: wrote batch of %d records", w.index, len(records))
	return nil
}

// Len returns the number of pending records.
func (w *BatchWriter) Len() int {
	return len(w.batch)
}

// Flushes returns the number of successful writes.
func (w *BatchWriter) Flushes() int {
	return w.flushes
}

// Written returns the number of records written.
func (w *BatchWriter) Written() int {
	return w.written
}

// Index returns the index the writer targets.
func (w *BatchWriter) Index() string {
	return w.index
}
