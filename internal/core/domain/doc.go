// Package domain defines the core entities of the feeder.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceFile: A file discovered under a source root
//   - RawPassage: Text produced by an extractor, before chunking
//   - Record: A chunk as written to the document store
//   - IndexTarget: The collection records are written to
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
