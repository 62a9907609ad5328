// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters): the embedding generator,
// the retrieval engine, and the ingest orchestrator that runs
// the chunk -> embed -> upload pipeline.
package services
