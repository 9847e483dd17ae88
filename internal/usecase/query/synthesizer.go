package query

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zhang-liz/Enterprise-rag-system/internal/domain/repository"
)

// TaskSynthesis routes grounded answer generation to a high-cognition model.
const TaskSynthesis = repository.TaskType("answer_synthesis")

const defaultSynthesisTimeout = 30 * time.Second

// contextResultCap is how many fused results feed the generation prompt.
const contextResultCap = 5

// InsufficientContextSentinel is the fixed phrase the model is instructed
// to emit when the supplied context cannot answer the question.
const InsufficientContextSentinel = "I don't have enough information to answer this"

const synthesisSystemPrompt = `You are an enterprise AI assistant providing accurate, grounded answers.

CRITICAL RULES:
1. ONLY use information from the provided context
2. If context is insufficient, say "I don't have enough information to answer this"
3. Cite sources using [Source N] notation
4. If sources conflict, mention both perspectives
5. Never make up information
6. Be concise but complete`

// Synthesizer builds a grounded prompt from the top fused results and asks
// the generation service for an answer constrained to that context.
type Synthesizer struct {
	router  repository.LLMRouter
	fusion  *Fusion
	timeout time.Duration
}

// NewSynthesizer creates a Synthesizer. The fusion component supplies the
// weighted scores shown in the context block.
func NewSynthesizer(router repository.LLMRouter, fusion *Fusion) *Synthesizer {
	return &Synthesizer{router: router, fusion: fusion, timeout: defaultSynthesisTimeout}
}

// WithTimeout overrides the bound applied to the generation call.
func (s *Synthesizer) WithTimeout(d time.Duration) *Synthesizer {
	s.timeout = d
	return s
}

// Generate produces answer text from the query and fused results. It never
// returns an empty string: on service failure it returns an error-describing
// answer and failed=true so scoring can degrade the confidence explicitly.
func (s *Synthesizer) Generate(ctx context.Context, query string, results []repository.SearchResult) (answer string, failed bool) {
	if s == nil || s.router == nil {
		return "Error generating answer: generation service not configured", true
	}
	client := s.router.RouteLLMTask(TaskSynthesis)
	if client == nil {
		return "Error generating answer: generation service not configured", true
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := client.Generate(ctx, synthesisSystemPrompt, s.buildPrompt(query, results))
	if err != nil {
		log.Printf("[Synthesizer] Generation failed: %v", err)
		return fmt.Sprintf("Error generating answer: %v", err), true
	}

	return text, false
}

// buildPrompt renders the top results as a numbered context block followed
// by the question.
func (s *Synthesizer) buildPrompt(query string, results []repository.SearchResult) string {
	var b strings.Builder
	b.WriteString("Context:\n")

	for i, r := range results {
		if i >= contextResultCap {
			break
		}
		fmt.Fprintf(&b, "[Source %d - %s, confidence: %.2f]\n%s\n\n", i+1, r.Source, s.fusion.WeightedScore(r), r.Content)
	}

	fmt.Fprintf(&b, "Question: %s\n\n", query)
	b.WriteString("Provide a clear, accurate answer based ONLY on the context above. Cite your sources.")
	return b.String()
}
