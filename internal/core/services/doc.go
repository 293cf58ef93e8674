// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// RAGService owns chunking, retrieval and answer generation.
// DocumentService sits in front of it for uploads, and IngestService feeds
// DocumentService from document sources such as a watched directory.
package services
