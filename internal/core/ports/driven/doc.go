// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Source: Enumerates and opens files under a source root
//   - Extractor: Converts one file format into raw passages
//   - ExtractorRegistry: Selects the extractor for a detected format
//   - Chunker: Splits passages into bounded records
//   - DocumentStore: Index persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the matching pipeline step is then unavailable:
//
//   - Enricher / LanguageDetector: Per-record enrichment
//   - EmbeddingService: Dense vectors for the embedding refresh
//   - QuestionGenerator: Second-pass question generation
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
