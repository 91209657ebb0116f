package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/feeder/internal/core/domain"
)

func records(n int) []domain.Record {
	out := make([]domain.Record, n)
	for i := range out {
		out[i] = domain.Record{
			ID:          fmt.Sprintf("rec-%03d", i),
			Content:     fmt.Sprintf("content %d", i),
			ContentType: domain.ContentTypeText,
		}
	}
	return out
}

func TestNewDocumentStore(t *testing.T) {
	store := NewDocumentStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.indexes)
}

func TestDocumentStore_WriteDocuments_Upsert(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.WriteDocuments(ctx, "beast", records(3)))

	updated := domain.Record{ID: "rec-001", Content: "updated"}
	require.NoError(t, store.WriteDocuments(ctx, "beast", []domain.Record{updated}))

	n, err := store.Count(ctx, "beast")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := store.GetDocument(ctx, "beast", "rec-001")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Content)
	assert.Equal(t, "beast", got.Index)
	assert.Equal(t, 2, store.Writes())
}

func TestDocumentStore_WriteDocuments_EmptyIndex(t *testing.T) {
	store := NewDocumentStore()
	err := store.WriteDocuments(context.Background(), "", records(1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentStore_WriteDocuments_CopiesInput(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	recs := []domain.Record{{ID: "a", GeneratedQuestions: []string{"q1"}}}
	require.NoError(t, store.WriteDocuments(ctx, "idx", recs))
	recs[0].GeneratedQuestions[0] = "mutated"

	got, err := store.GetDocument(ctx, "idx", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"q1"}, got.GeneratedQuestions)
}

func TestDocumentStore_GetDocument_NotFound(t *testing.T) {
	store := NewDocumentStore()
	_, err := store.GetDocument(context.Background(), "idx", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_DeleteDocuments(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.WriteDocuments(ctx, "a", records(2)))
	require.NoError(t, store.WriteDocuments(ctx, "b", records(1)))
	require.NoError(t, store.DeleteDocuments(ctx, "a"))
	require.NoError(t, store.DeleteDocuments(ctx, "never-existed"))

	n, err := store.Count(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, n)

	names, err := store.Indexes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names)
}

func TestDocumentStore_ListDocuments_Pages(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.WriteDocuments(ctx, "idx", records(7)))

	var ids []string
	after := ""
	for {
		page, err := store.ListDocuments(ctx, "idx", after, 3)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, rec := range page {
			ids = append(ids, rec.ID)
		}
		after = page[len(page)-1].ID
	}

	require.Len(t, ids, 7)
	assert.Equal(t, "rec-000", ids[0])
	assert.Equal(t, "rec-006", ids[6])
	assert.IsIncreasing(t, ids)
}

func TestDocumentStore_UpdateEmbeddings(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.WriteDocuments(ctx, "idx", records(2)))

	err := store.UpdateEmbeddings(ctx, "idx", []domain.EmbeddingUpdate{
		{ID: "rec-000", Embedding: []float32{0.1, 0.2}},
		{ID: "unknown", Embedding: []float32{1}},
	})
	require.NoError(t, err)

	got, err := store.GetDocument(ctx, "idx", "rec-000")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, got.Embedding)

	n, err := store.Count(ctx, "idx")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDocumentStore_Concurrency(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := domain.Record{ID: fmt.Sprintf("doc-%d", n)}
			_ = store.WriteDocuments(ctx, "idx", []domain.Record{rec})
			_, _ = store.ListDocuments(ctx, "idx", "", 5)
		}(i)
	}
	wg.Wait()

	n, err := store.Count(ctx, "idx")
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}
