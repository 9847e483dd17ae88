package query

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zhang-liz/Enterprise-rag-system/internal/domain/repository"
)

const (
	// DefaultTopK bounds how many fused results one search returns.
	DefaultTopK = 10

	// keywordSearchLimit caps text-match hits from the graph store.
	keywordSearchLimit = 10

	// relatedEntityDepth is the traversal depth used for SEMANTIC_LINKAGE
	// queries.
	relatedEntityDepth = 2

	// vectorScoreThreshold is the minimum similarity for a vector hit.
	vectorScoreThreshold = 0.7

	keywordMatchScore      = 0.85
	defaultEntityScore     = 0.8
	defaultRelatedScore    = 0.7
	relatedScoreAttenuator = 0.9

	defaultStrategyTimeout = 10 * time.Second
)

// Orchestrator dispatches the enabled retrieval strategies concurrently
// against the graph and vector stores, merges their raw contributions and
// fuses them into a single ranked sequence. One slow or failing strategy
// never blocks or aborts the others; its contribution degrades to empty.
type Orchestrator struct {
	graph  repository.GraphRepository
	vector repository.VectorRepository
	fusion *Fusion

	// StrategyTimeout bounds each strategy's external calls.
	StrategyTimeout time.Duration
}

// NewOrchestrator creates an Orchestrator over the given stores.
func NewOrchestrator(graph repository.GraphRepository, vector repository.VectorRepository) *Orchestrator {
	return &Orchestrator{
		graph:           graph,
		vector:          vector,
		fusion:          NewFusion(),
		StrategyTimeout: defaultStrategyTimeout,
	}
}

// Fusion exposes the orchestrator's fusion component so downstream scoring
// uses the same source weights.
func (o *Orchestrator) Fusion() *Fusion {
	return o.fusion
}

// retrievalStrategy is one named retrieval variant. enabled decides whether
// the analysis needs it; run produces its raw (unweighted) results.
type retrievalStrategy struct {
	name    string
	enabled bool
	run     func(ctx context.Context) ([]repository.SearchResult, error)
}

// Search executes the strategies selected by the analysis and returns at
// most topK fused results. topK <= 0 uses DefaultTopK.
func (o *Orchestrator) Search(ctx context.Context, analysis *QueryAnalysis, topK int) []repository.SearchResult {
	if topK <= 0 {
		topK = DefaultTopK
	}

	entities := ExtractEntities(analysis.OriginalQuery)
	keywords := ExtractKeywords(analysis.OriginalQuery)

	strategies := []retrievalStrategy{
		{
			name: "graph",
			// A graph search with no entity candidates is a no-op.
			enabled: analysis.RequiresGraph && len(entities) > 0 && o.graph != nil,
			run: func(ctx context.Context) ([]repository.SearchResult, error) {
				return o.graphSearch(ctx, entities, analysis.QueryType)
			},
		},
		{
			name:    "keyword",
			enabled: analysis.RequiresKeyword && len(keywords) > 0 && o.graph != nil,
			run: func(ctx context.Context) ([]repository.SearchResult, error) {
				return o.keywordSearch(ctx, keywords)
			},
		},
		{
			name:    "vector",
			enabled: analysis.RequiresVector && o.vector != nil,
			run: func(ctx context.Context) ([]repository.SearchResult, error) {
				return o.vectorSearch(ctx, analysis.RewrittenQuery, topK)
			},
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var merged []repository.SearchResult

	for _, s := range strategies {
		if !s.enabled {
			continue
		}
		strat := s
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, o.StrategyTimeout)
			defer cancel()

			results, err := strat.run(sctx)
			if err != nil {
				// Partial-failure tolerance: log and contribute nothing.
				log.Printf("[Orchestrator] %s search failed: %v", strat.name, err)
				return nil
			}

			mu.Lock()
			merged = append(merged, results...)
			mu.Unlock()
			log.Printf("[Orchestrator] %s search returned %d results", strat.name, len(results))
			return nil
		})
	}

	// Strategies never return errors, so Wait only joins.
	_ = g.Wait()

	return o.fusion.Rank(merged, topK)
}

// graphSearch looks up each candidate entity. For SEMANTIC_LINKAGE queries
// it additionally expands related entities up to relatedEntityDepth.
func (o *Orchestrator) graphSearch(ctx context.Context, entities []string, queryType QueryType) ([]repository.SearchResult, error) {
	var results []repository.SearchResult

	for _, name := range entities {
		record, err := o.graph.FindEntity(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("entity lookup %q: %w", name, err)
		}
		if record == nil {
			continue
		}

		score := record.Confidence
		if score == 0 {
			score = defaultEntityScore
		}
		results = append(results, repository.SearchResult{
			Content: fmt.Sprintf("Entity: %s (%s)\nDescription: %s", record.Name, record.Type, orNA(record.Description)),
			Source:  "graph",
			Score:   score,
			Metadata: map[string]any{
				"entity_name": record.Name,
				"entity_type": record.Type,
				"source":      "knowledge_graph",
			},
		})

		if queryType != SemanticLinkage {
			continue
		}

		related, err := o.graph.FindRelatedEntities(ctx, name, relatedEntityDepth)
		if err != nil {
			return nil, fmt.Errorf("related lookup %q: %w", name, err)
		}
		for _, rel := range related {
			relScore := rel.Entity.Confidence
			if relScore == 0 {
				relScore = defaultRelatedScore
			}
			results = append(results, repository.SearchResult{
				Content: fmt.Sprintf("Related Entity: %s (%s)", rel.Entity.Name, rel.Entity.Type),
				Source:  "graph",
				Score:   relScore * relatedScoreAttenuator,
				Metadata: map[string]any{
					"entity_name":   rel.Entity.Name,
					"entity_type":   rel.Entity.Type,
					"source":        "knowledge_graph",
					"relationship":  "related_to",
					"parent_entity": name,
				},
			})
		}
	}

	return results, nil
}

// keywordSearch runs the keyword list through the graph store's text match.
// Every hit gets the same fixed score; ranking happens during fusion.
func (o *Orchestrator) keywordSearch(ctx context.Context, keywords []string) ([]repository.SearchResult, error) {
	matches, err := o.graph.KeywordSearch(ctx, keywords, keywordSearchLimit)
	if err != nil {
		return nil, err
	}

	var results []repository.SearchResult
	for _, m := range matches {
		results = append(results, repository.SearchResult{
			Content: fmt.Sprintf("%s: %s", m.Entity.Name, m.Entity.Description),
			Source:  "keyword",
			Score:   keywordMatchScore,
			Metadata: map[string]any{
				"entity_name":      m.Entity.Name,
				"entity_type":      m.Entity.Type,
				"source":           "keyword_search",
				"matched_keywords": keywords,
			},
		})
	}
	return results, nil
}

// vectorSearch embeds the rewritten query and fetches nearest neighbours
// above the similarity threshold.
func (o *Orchestrator) vectorSearch(ctx context.Context, queryText string, topK int) ([]repository.SearchResult, error) {
	hits, err := o.vector.SemanticSearch(ctx, queryText, topK, vectorScoreThreshold, "")
	if err != nil {
		return nil, err
	}

	var results []repository.SearchResult
	for _, hit := range hits {
		metadata := make(map[string]any, len(hit.Metadata)+2)
		for k, v := range hit.Metadata {
			metadata[k] = v
		}
		metadata["source"] = "vector_search"
		metadata["id"] = hit.ID

		results = append(results, repository.SearchResult{
			Content:  hit.Text,
			Source:   "vector",
			Score:    hit.Score,
			Metadata: metadata,
		})
	}
	return results, nil
}

// SearchCrossModal retrieves per-modality vector results, e.g. mentions of
// an entity in both text and video. Each modality is queried concurrently
// and failures degrade to an empty list for that modality.
func (o *Orchestrator) SearchCrossModal(ctx context.Context, queryText string, modalities []string, topK int) map[string][]repository.SearchResult {
	if topK <= 0 {
		topK = DefaultTopK
	}

	byModality := make(map[string][]repository.SearchResult, len(modalities))
	if o.vector == nil {
		return byModality
	}

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for _, m := range modalities {
		modality := m
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, o.StrategyTimeout)
			defer cancel()

			hits, err := o.vector.SemanticSearch(sctx, queryText, topK, vectorScoreThreshold, modality)
			if err != nil {
				log.Printf("[Orchestrator] cross-modal search (%s) failed: %v", modality, err)
				return nil
			}

			var results []repository.SearchResult
			for _, hit := range hits {
				metadata := make(map[string]any, len(hit.Metadata)+1)
				for k, v := range hit.Metadata {
					metadata[k] = v
				}
				metadata["modality"] = modality

				results = append(results, repository.SearchResult{
					Content:  hit.Text,
					Source:   "vector_" + modality,
					Score:    hit.Score,
					Metadata: metadata,
				})
			}

			mu.Lock()
			byModality[modality] = results
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return byModality
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
