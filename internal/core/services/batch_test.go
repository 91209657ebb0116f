package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/feeder/internal/core/domain"
)

func addRecords(w *BatchWriter, n int) {
	for i := 0; i < n; i++ {
		w.Add(domain.Record{ID: fmt.Sprintf("r%04d", w.Written()+w.Len())})
	}
}

func TestBatchWriter_FlushArithmetic(t *testing.T) {
	tests := []struct {
		name        string
		records     int
		threshold   int
		wantSizes   []int
		wantFlushes int
	}{
		{"below threshold", 6, 100, []int{6}, 1},
		{"exact multiple", 200, 100, []int{100, 100}, 2},
		{"remainder", 250, 100, []int{100, 100, 50}, 3},
		{"threshold one", 3, 1, []int{1, 1, 1}, 3},
		{"empty", 0, 10, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newFlakyStore(0)
			w := NewBatchWriter(store, "idx", tt.threshold, NoRetry())

			for i := 0; i < tt.records; i++ {
				addRecords(w, 1)
				require.NoError(t, w.MaybeFlush(ctx))
				assert.Less(t, w.Len(), tt.threshold)
			}
			require.NoError(t, w.Finalize(ctx))

			assert.Equal(t, tt.wantSizes, store.sizes)
			assert.Equal(t, tt.wantFlushes, w.Flushes())
			assert.Equal(t, tt.records, w.Written())
			assert.Zero(t, w.Len())

			n, err := store.Count(ctx, "idx")
			require.NoError(t, err)
			assert.Equal(t, tt.records, n)
		})
	}
}

func TestBatchWriter_AddNeverWrites(t *testing.T) {
	store := newFlakyStore(0)
	w := NewBatchWriter(store, "idx", 2, NoRetry())

	addRecords(w, 5)

	assert.Zero(t, store.attempts)
	assert.Equal(t, 5, w.Len())
}

func TestBatchWriter_MaybeFlush_DrainsSeveralBatches(t *testing.T) {
	store := newFlakyStore(0)
	w := NewBatchWriter(store, "idx", 2, NoRetry())

	addRecords(w, 5)
	require.NoError(t, w.MaybeFlush(context.Background()))

	assert.Equal(t, []int{2, 2}, store.sizes)
	assert.Equal(t, 1, w.Len())
}

func TestBatchWriter_FailureKeepsBatch(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore(1)
	w := NewBatchWriter(store, "idx", 3, NoRetry())

	addRecords(w, 3)
	err := w.MaybeFlush(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreWrite)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, w.Len())
	assert.Zero(t, w.Flushes())

	require.NoError(t, w.Finalize(ctx))
	assert.Equal(t, 3, w.Written())
	n, err := store.Count(ctx, "idx")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestBatchWriter_SetsIndex(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore(0)
	w := NewBatchWriter(store, "beast", 0, NoRetry())

	w.Add(domain.Record{ID: "a", Index: "other"})
	require.NoError(t, w.MaybeFlush(ctx))

	got, err := store.GetDocument(ctx, "beast", "a")
	require.NoError(t, err)
	assert.Equal(t, "beast", got.Index)
	assert.Equal(t, "beast", w.Index())
}
