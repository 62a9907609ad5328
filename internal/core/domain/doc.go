// Package domain defines the core business entities for ragline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Section: A node in the parsed document structure tree
//   - Chunk: A bounded, classified unit of document text prepared for embedding
//   - Embedding: A quality-scored vector for exactly one chunk
//   - VectorRecord: The persisted form of an embedded chunk
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
