package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zhang-liz/Enterprise-rag-system/internal/domain/repository"
	"github.com/zhang-liz/Enterprise-rag-system/internal/usecase/evaluation"
)

// QueryType classifies what kind of retrieval and reasoning a query needs.
type QueryType string

const (
	FactualLookup   QueryType = "factual_lookup"   // Direct fact retrieval
	Summarization   QueryType = "summarization"    // Summarize multiple sources
	SemanticLinkage QueryType = "semantic_linkage" // Cross-modal entity linking
	Reasoning       QueryType = "reasoning"        // Multi-hop reasoning
	Exploratory     QueryType = "exploratory"      // Open-ended exploration
)

// ParseQueryType maps a classifier label (e.g. "FACTUAL_LOOKUP") to a
// QueryType. Unknown labels are an error so callers can fall back safely.
func ParseQueryType(label string) (QueryType, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "factual_lookup":
		return FactualLookup, nil
	case "summarization":
		return Summarization, nil
	case "semantic_linkage":
		return SemanticLinkage, nil
	case "reasoning":
		return Reasoning, nil
	case "exploratory":
		return Exploratory, nil
	default:
		return "", fmt.Errorf("unknown query type %q", label)
	}
}

const (
	minQueryLen  = 3
	maxQueryLen  = 1000
	minQueryWord = 2
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// QueryRequest is a validated query. Construct via NewQueryRequest; the
// query field is whitespace-normalized and immutable afterwards.
type QueryRequest struct {
	Query   string         `json:"query"`
	UserID  string         `json:"user_id,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// NewQueryRequest validates and normalizes a raw query. It is the only
// failure in the pipeline that is surfaced to the caller.
func NewQueryRequest(rawQuery, userID string, reqContext map[string]any) (*QueryRequest, error) {
	q := whitespaceRe.ReplaceAllString(strings.TrimSpace(rawQuery), " ")

	if len(q) < minQueryLen || len(q) > maxQueryLen {
		return nil, fmt.Errorf("query length must be between %d and %d characters, got %d", minQueryLen, maxQueryLen, len(q))
	}
	if len(strings.Fields(q)) < minQueryWord {
		return nil, fmt.Errorf("query too short - please provide more context")
	}

	return &QueryRequest{
		Query:   q,
		UserID:  userID,
		Context: reqContext,
	}, nil
}

// QueryAnalysis is the triage result for one query. Produced once by the
// Analyzer and read-only downstream.
type QueryAnalysis struct {
	OriginalQuery      string    `json:"original_query"`
	RewrittenQuery     string    `json:"rewritten_query"`
	QueryType          QueryType `json:"query_type"`
	RequiresGraph      bool      `json:"requires_graph"`
	RequiresVector     bool      `json:"requires_vector"`
	RequiresKeyword    bool      `json:"requires_keyword"`
	EntitiesMentioned  []string  `json:"entities_mentioned"`
	ModalitiesExpected []string  `json:"modalities_expected"`
	Confidence         float64   `json:"confidence"`
}

// Citation is one source reference attached to an answer.
type Citation struct {
	ID         int            `json:"id"`
	SourceType string         `json:"source_type"`
	Score      float64        `json:"score"`
	Metadata   map[string]any `json:"metadata"`
}

// Answer is the final pipeline output. Invariants: Confidence is in [0,1],
// len(Sources) <= 5, and an Answer with no sources has Confidence == 0.
type Answer struct {
	Query             string              `json:"query"`
	Answer            string              `json:"answer"`
	Sources           []Citation          `json:"sources"`
	Confidence        float64             `json:"confidence"`
	QueryType         QueryType           `json:"query_type"`
	RetrievedContexts []string            `json:"retrieved_contexts,omitempty"`
	EvaluationMetrics *evaluation.Metrics `json:"evaluation_metrics,omitempty"`
	Warning           string              `json:"warning,omitempty"`
}

// SearchResult is re-exported so pipeline consumers don't need to import the
// repository package for the common case.
type SearchResult = repository.SearchResult
