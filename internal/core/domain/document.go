package domain

import "time"

// ContentTypeText is the only content type the feeder writes.
const ContentTypeText = "text"

// Meta is the metadata stored with every record.
type Meta struct {
	// Name is the source identifier (URL or sidecar value).
	Name string

	// Category is the corpus label.
	Category string

	// DocumentID links a question record to the record it was generated from.
	DocumentID string
}

// Record is a chunk of a passage as stored in an index.
// Enrichment only ever adds to ContentEnglish and GeneratedQuestions.
type Record struct {
	// ID is stable for the same source path, line and position.
	ID string

	// Index is the collection the record belongs to.
	Index string

	// Content is the chunk text.
	Content string

	// Title is carried over from the passage.
	Title string

	// ContentType is always "text".
	ContentType string

	// Meta holds name and category.
	Meta Meta

	// Position is the ordinal of the chunk within its passage.
	Position int

	// SourcePath is the file the chunk was extracted from.
	SourcePath string

	// ContentEnglish is set to Content when the chunk is detected as English.
	ContentEnglish string

	// GeneratedQuestions is filled by the question sweep.
	GeneratedQuestions []string

	// Embedding is the dense vector computed by the embedding refresh.
	Embedding []float32

	// CreatedAt is when the record was first built.
	CreatedAt time.Time
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := r
	if r.GeneratedQuestions != nil {
		c.GeneratedQuestions = append([]string(nil), r.GeneratedQuestions...)
	}
	if r.Embedding != nil {
		c.Embedding = append([]float32(nil), r.Embedding...)
	}
	return c
}

// EmbeddingText returns the text fed to the embedding model.
// With withTitle set, the title is prepended as in DPR's embed_title.
func (r Record) EmbeddingText(withTitle bool) string {
	if withTitle && r.Title != "" {
		return r.Title + " " + r.Content
	}
	return r.Content
}

// IndexTarget names the destination collection.
type IndexTarget struct {
	Name string
}

// QuestionsIndexSuffix is appended to an index name to form its questions index.
const QuestionsIndexSuffix = "_questions"

// QuestionsIndex returns the sibling index that holds generated questions.
func (t IndexTarget) QuestionsIndex() string {
	return t.Name + QuestionsIndexSuffix
}

// EmbeddingUpdate assigns a vector to a stored record.
type EmbeddingUpdate struct {
	ID        string
	Embedding []float32
}
