// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - EmbeddingService: Generates vector embeddings for chunk and query text
//   - VectorStore: Persists vector records and answers similarity queries
//
// # Optional Interfaces
//
//   - Extractor: Supplies extracted text from input files. Callers may
//     instead hand pre-extracted text straight to the ingestor.
//   - ConfigStore: Application configuration for the CLI surface.
//
// A VectorStore without a server-side similarity function returns
// domain.ErrMatchUnavailable from Match; the retrieval engine then falls
// back to a capped client-side scan.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
