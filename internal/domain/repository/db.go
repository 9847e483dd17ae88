package repository

import (
	"context"
)

// SearchResult represents a generic search result from any retrieval strategy.
// Results from different sources are structurally identical but their scores
// are not comparable until fusion applies source weighting.
type SearchResult struct {
	Content  string
	Source   string // "vector", "graph", "keyword", or "vector_<modality>"
	Score    float64
	Metadata map[string]any
}

// EntityRecord is an entity node stored in the knowledge graph.
type EntityRecord struct {
	Name        string
	Type        string
	Description string
	Confidence  float64
	Modality    string
}

// RelatedEntity pairs an entity with the relationship label that reached it.
type RelatedEntity struct {
	Entity       EntityRecord
	Relationship string
}

// KeywordMatch is a text-match hit from the graph store, together with the
// entities directly connected to it.
type KeywordMatch struct {
	Entity  EntityRecord
	Related []EntityRecord
}

// VectorHit is a nearest-neighbour hit from the vector store.
type VectorHit struct {
	ID       string
	Text     string
	Score    float64
	Metadata map[string]any
}

// GraphRepository defines the knowledge-graph operations the core consumes.
// FindEntity returns (nil, nil) when the entity is absent.
type GraphRepository interface {
	FindEntity(ctx context.Context, name string) (*EntityRecord, error)
	FindRelatedEntities(ctx context.Context, name string, maxDepth int) ([]RelatedEntity, error)
	KeywordSearch(ctx context.Context, keywords []string, limit int) ([]KeywordMatch, error)
	AddEntity(ctx context.Context, entity EntityRecord, sourceFileID string) error
	AddRelationship(ctx context.Context, source, target, relType, description string, confidence float64, sourceFileID string) error
	Statistics(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// VectorRepository defines the vector-store operations the core consumes.
// An empty modality means no modality filter.
type VectorRepository interface {
	SemanticSearch(ctx context.Context, query string, limit int, scoreThreshold float64, modality string) ([]VectorHit, error)
	AddChunks(ctx context.Context, fileID string, chunks []string, metadata map[string]any) error
	DeleteDocument(ctx context.Context, docID string) error
	Statistics(ctx context.Context) (map[string]any, error)
	Close() error
}
