package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/feeder/internal/core/domain"
)

func TestEmbeddingRefresher_Refresh(t *testing.T) {
	store := newFlakyStore(0)
	seed(t, store, "beast", "one two", "three four five", "six")
	embedder := &fakeEmbedder{}
	cfg := Config{PageSize: 2, EmbedBatchSize: 1, EmbedTitle: true, Retry: NoRetry()}

	n, err := NewEmbeddingRefresher(cfg, store, embedder).Refresh(context.Background(), "beast")
	require.NoError(t, err)

	assert.Equal(t, 3, n)
	assert.Len(t, embedder.batches, 3)
	assert.Equal(t, []string{"Title one two"}, embedder.batches[0])

	rec, err := store.GetDocument(context.Background(), "beast", "doc-001")
	require.NoError(t, err)
	assert.Equal(t, vectorFor("Title three four five"), rec.Embedding)
}

func TestEmbeddingRefresher_Idempotent(t *testing.T) {
	store := newFlakyStore(0)
	seed(t, store, "beast", "one two", "three four five")
	refresher := NewEmbeddingRefresher(Config{Retry: NoRetry()}, store, &fakeEmbedder{})
	ctx := context.Background()

	_, err := refresher.Refresh(ctx, "beast")
	require.NoError(t, err)
	first, err := store.ListDocuments(ctx, "beast", "", 10)
	require.NoError(t, err)

	_, err = refresher.Refresh(ctx, "beast")
	require.NoError(t, err)
	second, err := store.ListDocuments(ctx, "beast", "", 10)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Embedding, second[i].Embedding)
	}
}

func TestEmbeddingRefresher_Unavailable(t *testing.T) {
	r := NewEmbeddingRefresher(DefaultConfig(), newFlakyStore(0), nil)
	assert.False(t, r.Available())

	_, err := r.Refresh(context.Background(), "beast")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbeddingRefresher_EmbedFailure(t *testing.T) {
	store := newFlakyStore(0)
	seed(t, store, "beast", "one")
	embedder := &fakeEmbedder{fail: true}

	_, err := NewEmbeddingRefresher(Config{Retry: fastRetry(2)}, store, embedder).Refresh(context.Background(), "beast")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingRefresh)
	assert.Len(t, embedder.batches, 3)
}

func TestEmbeddingRefresher_EmptyIndex(t *testing.T) {
	n, err := NewEmbeddingRefresher(DefaultConfig(), newFlakyStore(0), &fakeEmbedder{}).Refresh(context.Background(), "empty")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEmbeddingRefresher_DimensionMismatch(t *testing.T) {
	store := newFlakyStore(0)
	seed(t, store, "beast", "one two")
	embedder := &fakeEmbedder{dims: 768}

	n, err := NewEmbeddingRefresher(Config{Retry: fastRetry(2)}, store, embedder).Refresh(context.Background(), "beast")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingRefresh)
	assert.ErrorIs(t, err, domain.ErrProviderRejected)
	assert.Contains(t, err.Error(), "got 2 dimensions, want 768")
	assert.Zero(t, n)

	rec, err := store.GetDocument(context.Background(), "beast", "doc-000")
	require.NoError(t, err)
	assert.Nil(t, rec.Embedding, "no vector is stored on a mismatch")
}
