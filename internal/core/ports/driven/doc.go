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
//   - Connector: Enumerates and fetches documents from a data source
//   - ConnectorFactory: Creates connectors from configuration
//   - Normaliser: Transforms raw documents into plain text
//   - NormaliserRegistry: Selects appropriate normaliser
//   - ProcessorChain: Chunks normalised documents
//   - EmbeddingService: Generates vector embeddings
//   - VectorStore: Stores embeddings and serves similarity queries
//   - SourceStore: Source definition and runtime status persistence
//   - SyncStateStore: Per-document sync state persistence
//   - SyncCursorStore: Per-source enumeration cursor persistence
//   - SyncRunStore: Run history persistence
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
