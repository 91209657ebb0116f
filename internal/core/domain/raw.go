package domain

// DefaultCategory is the category assigned when the input carries none.
const DefaultCategory = "a"

// RawPassage is text produced by an extractor before chunking.
// PDF and DOCX files yield one passage each; JSON-lines files yield one per line.
type RawPassage struct {
	// Content is the extracted body text.
	Content string

	// Title is optional.
	Title string

	// SourceURL identifies where the text came from (sidecar or record field).
	SourceURL string

	// Category is a corpus-level label.
	Category string

	// Line is the 1-based line for JSON-lines input, 0 otherwise.
	Line int
}
