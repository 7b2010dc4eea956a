// Package normalisers provides implementations of the Extractor interface
// for the supported document formats. Each extractor knows how to pull plain
// text out of a specific MIME type.
//
// Extractors are registered with a Registry at startup; NewDefaultRegistry
// registers every built-in format.
package normalisers
