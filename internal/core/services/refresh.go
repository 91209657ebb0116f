package services

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
	"github.com/custodia-labs/feeder/internal/logger"
)

// EmbeddingRefresher recomputes the dense vectors of every record in an index.
// Running it twice over an unchanged index yields the same vectors.
type EmbeddingRefresher struct {
	cfg      Config
	store    driven.DocumentStore
	embedder driven.EmbeddingService
	limiter  *rate.Limiter
}

// NewEmbeddingRefresher creates a refresher. embedder may be nil, in which
// case Refresh returns domain.ErrEmbeddingUnavailable.
func NewEmbeddingRefresher(cfg Config, store driven.DocumentStore, embedder driven.EmbeddingService) *EmbeddingRefresher {
	cfg = cfg.withDefaults()
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.EmbedRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.EmbedRateLimit), 1)
	}
	return &EmbeddingRefresher{
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		limiter:  limiter,
	}
}

// Available reports whether an embedding service is configured.
func (r *EmbeddingRefresher) Available() bool {
	return r.embedder != nil
}

// Refresh embeds every record of index and stores the vectors.
// It returns the number of records updated.
func (r *EmbeddingRefresher) Refresh(ctx context.Context, index string) (int, error) {
	if r.embedder == nil {
		return 0, domain.ErrEmbeddingUnavailable
	}

	logger.Info("Refreshing embeddings of %s with %s", index, r.embedder.ModelName())

	refreshed := 0
	afterID := ""
	for {
		page, err := r.store.ListDocuments(ctx, index, afterID, r.cfg.PageSize)
		if err != nil {
			return refreshed, fmt.Errorf("%w: list %s: %w", domain.ErrEmbeddingRefresh, index, err)
		}
		if len(page) == 0 {
			break
		}

		for start := 0; start < len(page); start += r.cfg.EmbedBatchSize {
			end := min(start+r.cfg.EmbedBatchSize, len(page))
			n, err := r.refreshBatch(ctx, index, page[start:end])
			refreshed += n
			if err != nil {
				return refreshed, err
			}
		}

		afterID = page[len(page)-1].ID
		logger.Debug("%s: %d embeddings refreshed", index, refreshed)
		if len(page) < r.cfg.PageSize {
			break
		}
	}

	logger.Info("Refreshed %d embeddings in %s", refreshed, index)
	return refreshed, nil
}

func (r *EmbeddingRefresher) refreshBatch(ctx context.Context, index string, records []domain.Record) (int, error) {
	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.EmbeddingText(r.cfg.EmbedTitle)
	}

	var vectors [][]float32
	err := r.cfg.Retry.Do(ctx, "embed "+index, func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		vectors, err = r.embedder.EmbedBatch(ctx, texts)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: embed %d records of %s: %w", domain.ErrEmbeddingRefresh, len(records), index, err)
	}
	if len(vectors) != len(records) {
		return 0, fmt.Errorf("%w: got %d vectors for %d records", domain.ErrEmbeddingRefresh, len(vectors), len(records))
	}
	if want := r.embedder.Dimensions(); want > 0 {
		for i, v := range vectors {
			if len(v) != want {
				return 0, fmt.Errorf("%w: %w: record %s got %d dimensions, want %d",
					domain.ErrEmbeddingRefresh, domain.ErrProviderRejected, records[i].ID, len(v), want)
			}
		}
	}

	updates := make([]domain.EmbeddingUpdate, len(records))
	for i, rec := range records {
		updates[i] = domain.EmbeddingUpdate{ID: rec.ID, Embedding: vectors[i]}
	}

	err = r.cfg.Retry.Do(ctx, "update embeddings "+index, func() error {
		return r.store.UpdateEmbeddings(ctx, index, updates)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: update %s: %w", domain.ErrEmbeddingRefresh, index, err)
	}
	return len(updates), nil
}
