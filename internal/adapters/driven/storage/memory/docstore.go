package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Records are copied on the way in and out.
type DocumentStore struct {
	mu      sync.RWMutex
	indexes map[string]map[string]domain.Record
	writes  int
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		indexes: make(map[string]map[string]domain.Record),
	}
}

// WriteDocuments upserts records into index.
func (s *DocumentStore) WriteDocuments(_ context.Context, index string, records []domain.Record) error {
	if index == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.indexes[index]
	if !ok {
		docs = make(map[string]domain.Record)
		s.indexes[index] = docs
	}
	for i := range records {
		rec := records[i].Clone()
		rec.Index = index
		docs[rec.ID] = rec
	}
	s.writes++
	return nil
}

// DeleteDocuments removes every record of index.
func (s *DocumentStore) DeleteDocuments(_ context.Context, index string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexes, index)
	return nil
}

// ListDocuments returns a page of records ordered by ID.
func (s *DocumentStore) ListDocuments(_ context.Context, index, afterID string, limit int) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.indexes[index]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		if strings.Compare(id, afterID) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	result := make([]domain.Record, 0, len(ids))
	for _, id := range ids {
		result = append(result, docs[id].Clone())
	}
	return result, nil
}

// GetDocument retrieves a record by ID.
func (s *DocumentStore) GetDocument(_ context.Context, index, id string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.indexes[index][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := rec.Clone()
	return &c, nil
}

// UpdateEmbeddings sets the vectors of existing records. Unknown IDs are ignored.
func (s *DocumentStore) UpdateEmbeddings(_ context.Context, index string, updates []domain.EmbeddingUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.indexes[index]
	for _, u := range updates {
		rec, ok := docs[u.ID]
		if !ok {
			continue
		}
		rec.Embedding = append([]float32(nil), u.Embedding...)
		docs[u.ID] = rec
	}
	return nil
}

// Count returns the number of records in index.
func (s *DocumentStore) Count(_ context.Context, index string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.indexes[index]), nil
}

// Indexes returns the names of all non-empty indexes, sorted.
func (s *DocumentStore) Indexes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.indexes))
	for name, docs := range s.indexes {
		if len(docs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Writes returns the number of WriteDocuments calls that succeeded.
func (s *DocumentStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Close is a no-op for the memory store.
func (s *DocumentStore) Close() error {
	return nil
}
