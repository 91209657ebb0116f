package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/feeder/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Store is a SQLite-backed document store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.feeder/data/records.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".feeder", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "records.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_records.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (index_name, id, content, title, content_type, meta_name,
			meta_category, document_id, position, source_path, content_english,
			questions, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(index_name, id) DO UPDATE SET
			content = excluded.content,
			title = excluded.title,
			content_type = excluded.content_type,
			meta_name = excluded.meta_name,
			meta_category = excluded.meta_category,
			document_id = excluded.document_id,
			position = excluded.position,
			source_path = excluded.source_path,
			content_english = excluded.content_english,
			questions = excluded.questions,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]

		questionsJSON, err := json.Marshal(rec.GeneratedQuestions)
		if err != nil {
			return fmt.Errorf("marshalling questions: %w", err)
		}
		var questions any
		if string(questionsJSON) != jsonNull {
			questions = string(questionsJSON)
		}

		created := rec.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		contentType := rec.ContentType
		if contentType == "" {
			contentType = domain.ContentTypeText
		}

		if _, err := stmt.ExecContext(ctx, index, rec.ID, rec.Content, rec.Title, contentType,
			rec.Meta.Name, rec.Meta.Category, rec.Meta.DocumentID, rec.Position, rec.SourcePath,
			rec.ContentEnglish, questions, float32SliceToBytes(rec.Embedding), created); err != nil {
			return fmt.Errorf("saving record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteDocuments removes every record of index.
func (s *Store) DeleteDocuments(ctx context.Context, index string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE index_name = ?", index); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}
	return nil
}

const selectColumns = `id, index_name, content, title, content_type, meta_name, meta_category,
	document_id, position, source_path, content_english, questions, embedding, created_at`

// ListDocuments returns a page of records ordered by ID.
func (s *Store) ListDocuments(ctx context.Context, index, afterID string, limit int) ([]domain.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM records
		WHERE index_name = ? AND id > ?
		ORDER BY id
		LIMIT ?
	`, index, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// GetDocument retrieves a record by ID.
func (s *Store) GetDocument(ctx context.Context, index, id string) (*domain.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM records
		WHERE index_name = ? AND id = ?
	`, index, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateEmbeddings sets the vectors of existing records in a single transaction.
func (s *Store) UpdateEmbeddings(ctx context.Context, index string, updates []domain.EmbeddingUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "UPDATE records SET embedding = ? WHERE index_name = ? AND id = ?")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx, float32SliceToBytes(u.Embedding), index, u.ID); err != nil {
			return fmt.Errorf("updating embedding %s: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Count returns the number of records in index.
func (s *Store) Count(ctx context.Context, index string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE index_name = ?", index).Scan(&n)
	if err != nil {
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
			return nil, fmt.Errorf("scanning index name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord scans a single record row.
func scanRecord(row scanner) (*domain.Record, error) {
	var rec domain.Record
	var questions sql.NullString
	var embedding []byte

	err := row.Scan(&rec.ID, &rec.Index, &rec.Content, &rec.Title, &rec.ContentType,
		&rec.Meta.Name, &rec.Meta.Category, &rec.Meta.DocumentID, &rec.Position,
		&rec.SourcePath, &rec.ContentEnglish, &questions, &embedding, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	if questions.Valid && questions.String != "" {
		if err := json.Unmarshal([]byte(questions.String), &rec.GeneratedQuestions); err != nil {
			return nil, fmt.Errorf("unmarshaling questions: %w", err)
		}
	}
	rec.Embedding = bytesToFloat32Slice(embedding)
	rec.CreatedAt = rec.CreatedAt.UTC()

	return &rec, nil
}
