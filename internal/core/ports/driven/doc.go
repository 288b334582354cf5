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
//   - ChunkStore: Active chunk metadata
//   - ArchiveIndex: Archived chunk metadata
//   - PurgeLog: Permanent audit trail of purged chunks
//   - InsightStore, SessionStore, SchedulerStore: Remaining persistence
//   - ContentStore: Chunk bodies, keyed by validated chunk ID
//   - BlobStore: Compressed archive artifacts
//   - Codec: Streaming compression used by retention
//   - ConfigStore: Application configuration
//
// # Optional Capabilities
//
// These always have a null implementation; the application degrades
// gracefully when the real one is absent:
//
//   - EmbeddingService: Generates vector embeddings. The null provider
//     returns domain.ErrEmbeddingUnavailable and search falls back to BM25.
//   - VectorIndex: Dense vector storage and cosine search.
//   - FuzzyMatcher: Approximate line matching for grep.
//   - TokenCounter: Token estimates for chunk metadata.
//   - ProjectDetector: Default project name for new chunks.
//   - ChangeWatcher: Signals out-of-process changes to the chunk directory.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
