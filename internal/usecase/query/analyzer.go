package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zhang-liz/Enterprise-rag-system/internal/domain/repository"
)

// TaskTriage routes query classification to a lightweight model.
const TaskTriage = repository.TaskType("query_triage")

const defaultTriageTimeout = 10 * time.Second

const triageSystemPrompt = "You are a query analysis expert. Return only valid JSON."

// triageResponse is the JSON shape expected from the classification call.
// Pointer fields distinguish "absent" from zero values so defaults match
// the documented contract.
type triageResponse struct {
	QueryType          string   `json:"query_type"`
	RewrittenQuery     string   `json:"rewritten_query"`
	RequiresGraph      bool     `json:"requires_graph"`
	RequiresVector     *bool    `json:"requires_vector"`
	RequiresKeyword    bool     `json:"requires_keyword"`
	EntitiesMentioned  []string `json:"entities_mentioned"`
	ModalitiesExpected []string `json:"modalities_expected"`
	Confidence         *float64 `json:"confidence"`
}

// Analyzer classifies a query, rewrites it for retrieval, and decides which
// retrieval strategies are required. Classification failures never surface:
// the analyzer falls back to a safe vector-only analysis.
type Analyzer struct {
	router  repository.LLMRouter
	timeout time.Duration
}

// NewAnalyzer creates an Analyzer using the given LLM router.
func NewAnalyzer(router repository.LLMRouter) *Analyzer {
	return &Analyzer{router: router, timeout: defaultTriageTimeout}
}

// WithTimeout overrides the bound applied to the classification call.
func (a *Analyzer) WithTimeout(d time.Duration) *Analyzer {
	a.timeout = d
	return a
}

// Analyze triages the query. Always returns a usable analysis.
func (a *Analyzer) Analyze(ctx context.Context, query string) *QueryAnalysis {
	if a == nil || a.router == nil {
		return fallbackAnalysis(query)
	}
	client := a.router.RouteLLMTask(TaskTriage)
	if client == nil {
		return fallbackAnalysis(query)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := client.Generate(ctx, triageSystemPrompt, triagePrompt(query))
	if err != nil {
		log.Printf("[Analyzer] Triage call failed: %v (using fallback)", err)
		return fallbackAnalysis(query)
	}

	var parsed triageResponse
	if err := json.Unmarshal([]byte(stripCodeFence(resp)), &parsed); err != nil {
		log.Printf("[Analyzer] Triage response unparseable: %v (using fallback)", err)
		return fallbackAnalysis(query)
	}

	queryType, err := ParseQueryType(parsed.QueryType)
	if err != nil {
		log.Printf("[Analyzer] %v (using fallback)", err)
		return fallbackAnalysis(query)
	}

	analysis := &QueryAnalysis{
		OriginalQuery:      query,
		RewrittenQuery:     parsed.RewrittenQuery,
		QueryType:          queryType,
		RequiresGraph:      parsed.RequiresGraph,
		RequiresVector:     true,
		RequiresKeyword:    parsed.RequiresKeyword,
		EntitiesMentioned:  parsed.EntitiesMentioned,
		ModalitiesExpected: parsed.ModalitiesExpected,
		Confidence:         0.8,
	}
	if analysis.RewrittenQuery == "" {
		analysis.RewrittenQuery = query
	}
	if parsed.RequiresVector != nil {
		analysis.RequiresVector = *parsed.RequiresVector
	}
	if len(analysis.ModalitiesExpected) == 0 {
		analysis.ModalitiesExpected = []string{"text"}
	}
	if parsed.Confidence != nil {
		analysis.Confidence = clamp01(*parsed.Confidence)
	}

	return analysis
}

// fallbackAnalysis is the safe default used whenever classification fails:
// vector-only retrieval on the unmodified query.
func fallbackAnalysis(query string) *QueryAnalysis {
	return &QueryAnalysis{
		OriginalQuery:      query,
		RewrittenQuery:     query,
		QueryType:          FactualLookup,
		RequiresGraph:      false,
		RequiresVector:     true,
		RequiresKeyword:    false,
		EntitiesMentioned:  []string{},
		ModalitiesExpected: []string{"text"},
		Confidence:         0.5,
	}
}

func triagePrompt(query string) string {
	return fmt.Sprintf(`Analyze this query and determine its characteristics.

Query: %s

Classify the query type:
- FACTUAL_LOOKUP: Direct fact retrieval
- SUMMARIZATION: Summarize multiple sources
- SEMANTIC_LINKAGE: Cross-modal entity linking
- REASONING: Multi-hop reasoning
- EXPLORATORY: Open-ended exploration

Also determine:
- Does it mention specific entities? (names, organizations, products)
- Does it require graph traversal? (relationships, connections)
- Does it require keyword matching? (exact terms)
- Does it require semantic search? (meaning, concepts)
- What modalities are expected? (text, image, audio, video)

Return JSON:
{
    "query_type": "FACTUAL_LOOKUP",
    "rewritten_query": "optimized version of query",
    "requires_graph": true/false,
    "requires_vector": true/false,
    "requires_keyword": true/false,
    "entities_mentioned": ["entity1", "entity2"],
    "modalities_expected": ["text", "image"],
    "confidence": 0.9
}`, query)
}

// stripCodeFence removes a markdown ```json fence if the model added one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
