// Package postgres provides a PostgreSQL implementation of driven.DocumentStore.
// Embeddings are stored in a pgvector column so the indexes can be queried
// by similarity outside the feeder.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
)

//go:embed bootstrap.sql
var bootstrapSQL string

// schemaVersion is the version recorded by bootstrap.sql.
const schemaVersion = 1

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Store is a PostgreSQL-backed document store.
type Store struct {
	db *sql.DB
}

// NewStore connects to dsn and creates the schema if needed.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres DSN is empty", domain.ErrInvalidInput)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{db: db}
	if err := s.bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return s, nil
}

// bootstrap runs bootstrap.sql unless the schema version is already recorded.
func (s *Store) bootstrap(ctx context.Context) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables WHERE table_name = 'feeder_meta'
		)`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("meta table check failed: %w", err)
	}

	if exists {
		var hasVersion bool
		err := s.db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM feeder_meta WHERE version = $1)", schemaVersion).Scan(&hasVersion)
		if err != nil {
			return fmt.Errorf("meta version check failed: %w", err)
		}
		if hasVersion {
			return nil
		}
	}

	if _, err := s.db.ExecContext(ctx, bootstrapSQL); err != nil {
		return fmt.Errorf("executing bootstrap.sql: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// WriteDocuments upserts records in a single transaction.
func (s *Store) WriteDocuments(ctx context.Context, index string, records []domain.Record) error {
	if index == "" {
		return fmt.Errorf("%w: empty index name", domain.ErrInvalidInput)
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
		INSERT INTO records
			(index_name, id, content, title, content_type, meta_name, meta_category,
			 document_id, position, source_path, content_english, questions, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, now()))
		ON CONFLICT (index_name, id) DO UPDATE SET
			content = EXCLUDED.content,
			title = EXCLUDED.title,
			content_type = EXCLUDED.content_type,
			meta_name = EXCLUDED.meta_name,
			meta_category = EXCLUDED.meta_category,
			document_id = EXCLUDED.document_id,
			position = EXCLUDED.position,
			source_path = EXCLUDED.source_path,
			content_english = EXCLUDED.content_english,
			questions = EXCLUDED.questions,
			embedding = EXCLUDED.embedding
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]

		var questions any
		if len(rec.GeneratedQuestions) > 0 {
			b, err := json.Marshal(rec.GeneratedQuestions)
			if err != nil {
				return fmt.Errorf("marshalling questions: %w", err)
			}
			questions = string(b)
		}

		var created any
		if !rec.CreatedAt.IsZero() {
			created = rec.CreatedAt
		}

		contentType := rec.ContentType
		if contentType == "" {
			contentType = domain.ContentTypeText
		}

		if _, err := stmt.ExecContext(ctx,
			index, rec.ID, rec.Content, rec.Title, contentType, rec.Meta.Name, rec.Meta.Category,
			rec.Meta.DocumentID, rec.Position, rec.SourcePath, rec.ContentEnglish, questions,
			vectorArg(rec.Embedding), created,
		); err != nil {
			return fmt.Errorf("saving record %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// DeleteDocuments removes every record of index.
func (s *Store) DeleteDocuments(ctx context.Context, index string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE index_name = $1", index); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}
	return nil
}

const selectColumns = `id, index_name, content, title, content_type, meta_name, meta_category,
	document_id, position, source_path, content_english, questions, embedding, created_at`

// ListDocuments returns a page of records ordered by ID.
func (s *Store) ListDocuments(ctx context.Context, index, afterID string, limit int) ([]domain.Record, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM records
		WHERE index_name = $1 AND id COLLATE "C" > $2
		ORDER BY id COLLATE "C"
		LIMIT $3
	`, index, afterID, limitArg)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// GetDocument retrieves a record by ID.
func (s *Store) GetDocument(ctx context.Context, index, id string) (*domain.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM records
		WHERE index_name = $1 AND id = $2
	`, index, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

// UpdateEmbeddings sets the vectors of existing records in a single transaction.
func (s *Store) UpdateEmbeddings(ctx context.Context, index string, updates []domain.EmbeddingUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "UPDATE records SET embedding = $1 WHERE index_name = $2 AND id = $3")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx, vectorArg(u.Embedding), index, u.ID); err != nil {
			return fmt.Errorf("updating embedding %s: %w", u.ID, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of records in index.
func (s *Store) Count(ctx context.Context, index string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE index_name = $1", index).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Indexes returns the names of all non-empty indexes.
func (s *Store) Indexes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT index_name FROM records ORDER BY index_name")
	if err != nil {
		return nil, fmt.Errorf("listing indexes: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// vectorArg maps an empty embedding to NULL; pgvector rejects zero dimensions.
func vectorArg(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.Record, error) {
	var (
		rec       domain.Record
		questions sql.NullString
		emb       *pgvector.Vector
	)
	err := row.Scan(&rec.ID, &rec.Index, &rec.Content, &rec.Title, &rec.ContentType,
		&rec.Meta.Name, &rec.Meta.Category, &rec.Meta.DocumentID, &rec.Position,
		&rec.SourcePath, &rec.ContentEnglish, &questions, &emb, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	if questions.Valid && questions.String != "" {
		if err := json.Unmarshal([]byte(questions.String), &rec.GeneratedQuestions); err != nil {
			return nil, fmt.Errorf("unmarshaling questions: %w", err)
		}
	}
	if emb != nil {
		rec.Embedding = emb.Slice()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}
