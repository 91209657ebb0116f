// Package extractors provides implementations of the Extractor interface
// for the supported document formats. Each extractor knows how to turn one
// format into raw passages.
//
// Extractors are registered with the Registry at startup; dispatch is by
// lowercased file extension.
package extractors
