// Package domain defines the core business entities for docchat.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded text or tabular document
//   - Chunk: A retrieval unit derived from one document
//   - IndexEntry: A chunk together with its embedding vector
//   - Answer: A generated answer with cited sources
//   - RawDocument: Opaque bytes before normalisation
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
