// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Normaliser: Extracts normalised text and page offsets from raw bytes
//   - PostProcessor / PostProcessorPipeline: Chunking and field extraction
//   - EmbeddingService: Generates vector embeddings
//   - VectorStore: Stores vectors with parallel metadata and searches them
//   - Ledger: Append-only audit log
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Answer generation. Without it, only structured-field
//     shortcut answers are produced.
//   - DocumentStore: Document listing and stats surfaces.
//
// # Import Rules
//
//   - Can Import: domain, standard library
//   - Cannot Import: adapters, services
package driven
