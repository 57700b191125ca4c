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
//   - EmbeddingService: Generates vector embeddings from text
//   - VectorIndex: Nearest-neighbour search over embeddings
//   - DocumentStore: Document record persistence
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - AnswerGenerator: Language model answer generation. Without it,
//     ask falls back to returning retrieval results only.
//   - Connector: Document ingestion from external sources.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
