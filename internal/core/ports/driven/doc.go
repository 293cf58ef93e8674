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
//   - Embedder: Turns text into vectors. Never fails.
//   - VectorIndex: Stores chunk vectors and ranks them against a query
//   - Normaliser: Transforms raw documents into text or tabular form
//   - NormaliserRegistry: Selects appropriate normaliser
//   - PostProcessor: Splits documents into chunks
//   - DocumentStore: Document persistence
//   - ConfigStore: Application configuration
//   - PromptStore: LLM prompt templates
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Remote embedding provider. Without it, the local hash embedder is used.
//   - LLMService: Language model operations. Without it, question answering is disabled.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
