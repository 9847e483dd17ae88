package query

import (
	"strings"

	"github.com/zhang-liz/Enterprise-rag-system/internal/domain/repository"
)

// Warning messages attached to degraded answers.
const (
	WarningNoContext           = "No relevant context found"
	WarningLowConfidence       = "Low confidence answer - information may be incomplete"
	WarningInsufficientContext = "Insufficient context to fully answer query"
)

const noResultsAnswer = "I couldn't find relevant information to answer your question. " +
	"This could mean: (1) the information isn't in the knowledge base, " +
	"(2) the query needs to be rephrased, or (3) the topic is outside " +
	"the current domain."

// insufficiencyCap is the confidence ceiling applied when the answer text
// signals insufficiency or the generation call failed outright.
const insufficiencyCap = 0.3

// Substrings (matched case-insensitively) that mark an answer as admitting
// it lacks information.
var insufficiencyMarkers = []string{
	"don't have enough",
	"insufficient",
	"cannot answer",
	"unclear",
}

// PostProcessor computes the final confidence, attaches citations and
// warnings, and assembles the Answer.
type PostProcessor struct {
	fusion *Fusion
}

// NewPostProcessor creates a PostProcessor using the fusion component's
// source weights for scoring.
func NewPostProcessor(fusion *Fusion) *PostProcessor {
	return &PostProcessor{fusion: fusion}
}

// NoResults is the graceful-failure Answer for an empty fused result set:
// zero confidence, no sources, a templated explanation.
func (p *PostProcessor) NoResults(queryText string, analysis *QueryAnalysis) *Answer {
	return &Answer{
		Query:      queryText,
		Answer:     noResultsAnswer,
		Sources:    []Citation{},
		Confidence: 0.0,
		QueryType:  analysis.QueryType,
		Warning:    WarningNoContext,
	}
}

// Finalize assembles the Answer from generated text and fused results.
// synthesisFailed marks answers whose generation call errored; their
// confidence is capped the same way as self-declared insufficiency so a
// failed generation can never present as a confident answer.
func (p *PostProcessor) Finalize(queryText, answerText string, results []repository.SearchResult, analysis *QueryAnalysis, synthesisFailed bool) *Answer {
	if len(results) == 0 {
		return p.NoResults(queryText, analysis)
	}

	confidence := p.confidence(answerText, results, analysis, synthesisFailed)

	var warning string
	switch {
	case confidence < 0.5:
		warning = WarningLowConfidence
	case strings.Contains(answerText, InsufficientContextSentinel):
		warning = WarningInsufficientContext
	}

	contexts := make([]string, 0, len(results))
	for _, r := range results {
		contexts = append(contexts, r.Content)
	}

	return &Answer{
		Query:             queryText,
		Answer:            answerText,
		Sources:           p.citations(results),
		Confidence:        confidence,
		QueryType:         analysis.QueryType,
		RetrievedContexts: contexts,
		Warning:           warning,
	}
}

// confidence blends average retrieval quality with triage certainty.
func (p *PostProcessor) confidence(answerText string, results []repository.SearchResult, analysis *QueryAnalysis, synthesisFailed bool) float64 {
	avg := p.averageWeightedScore(results)

	if synthesisFailed || containsInsufficiencyMarker(answerText) {
		if avg < insufficiencyCap {
			return avg
		}
		return insufficiencyCap
	}

	confidence := (avg + analysis.Confidence) / 2
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// averageWeightedScore is the mean weighted score of up to the top 5
// results.
func (p *PostProcessor) averageWeightedScore(results []repository.SearchResult) float64 {
	n := len(results)
	if n > contextResultCap {
		n = contextResultCap
	}
	if n == 0 {
		return 0
	}

	var sum float64
	for _, r := range results[:n] {
		sum += p.fusion.WeightedScore(r)
	}
	return sum / float64(n)
}

// citations converts the top results into 1-based citation records.
func (p *PostProcessor) citations(results []repository.SearchResult) []Citation {
	n := len(results)
	if n > contextResultCap {
		n = contextResultCap
	}

	citations := make([]Citation, 0, n)
	for i, r := range results[:n] {
		citations = append(citations, Citation{
			ID:         i + 1,
			SourceType: r.Source,
			Score:      p.fusion.WeightedScore(r),
			Metadata:   r.Metadata,
		})
	}
	return citations
}

func containsInsufficiencyMarker(answerText string) bool {
	lower := strings.ToLower(answerText)
	for _, marker := range insufficiencyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
