package query

import (
	"math"
	"testing"

	"github.com/zhang-liz/Enterprise-rag-system/internal/domain/repository"
)

func TestFinalizeConfidenceBlend(t *testing.T) {
	p := NewPostProcessor(NewFusion())
	results := []repository.SearchResult{
		{Content: "vector passage", Source: "vector", Score: 0.82}, // weighted 0.82
		{Content: "graph entity", Source: "graph", Score: 1.0},     // weighted 0.90
	}
	analysis := &QueryAnalysis{QueryType: FactualLookup, Confidence: 0.86}

	answer := p.Finalize("the query here", "A grounded answer [Source 1].", results, analysis, false)

	// avg weighted = (0.82 + 0.90) / 2 = 0.86; blended with triage 0.86.
	if math.Abs(answer.Confidence-0.86) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.86", answer.Confidence)
	}
	if answer.Warning != "" {
		t.Errorf("Warning = %q, want none", answer.Warning)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("len(Sources) = %d, want 2", len(answer.Sources))
	}
	if answer.Sources[0].ID != 1 || answer.Sources[0].SourceType != "vector" {
		t.Errorf("Sources[0] = %+v", answer.Sources[0])
	}
	if math.Abs(answer.Sources[1].Score-0.9) > 1e-9 {
		t.Errorf("Sources[1].Score = %v, want weighted 0.9", answer.Sources[1].Score)
	}
	if len(answer.RetrievedContexts) != 2 {
		t.Errorf("RetrievedContexts = %v", answer.RetrievedContexts)
	}
}

func TestFinalizeInsufficiencyCapsConfidence(t *testing.T) {
	p := NewPostProcessor(NewFusion())
	results := []repository.SearchResult{
		{Content: "a", Source: "vector", Score: 0.8},
		{Content: "b", Source: "vector", Score: 0.7},
	}
	analysis := &QueryAnalysis{QueryType: FactualLookup, Confidence: 0.9}

	answer := p.Finalize("the query here", "I don't have enough information to answer this question.", results, analysis, false)

	// avg weighted = 0.75, capped at 0.3 by the insufficiency marker.
	if answer.Confidence != 0.3 {
		t.Errorf("Confidence = %v, want 0.3", answer.Confidence)
	}
	if answer.Warning != WarningLowConfidence {
		t.Errorf("Warning = %q, want %q", answer.Warning, WarningLowConfidence)
	}
}

func TestFinalizeInsufficiencyKeepsLowerAverage(t *testing.T) {
	p := NewPostProcessor(NewFusion())
	results := []repository.SearchResult{
		{Content: "a", Source: "vector", Score: 0.2},
	}
	analysis := &QueryAnalysis{QueryType: FactualLookup, Confidence: 0.9}

	answer := p.Finalize("the query here", "The context is insufficient for a full answer.", results, analysis, false)

	// min(0.3, avg) with avg = 0.2.
	if math.Abs(answer.Confidence-0.2) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.2", answer.Confidence)
	}
}

func TestFinalizeSynthesisFailureCapped(t *testing.T) {
	p := NewPostProcessor(NewFusion())
	results := []repository.SearchResult{
		{Content: "strong context", Source: "vector", Score: 0.95},
	}
	analysis := &QueryAnalysis{QueryType: FactualLookup, Confidence: 0.9}

	answer := p.Finalize("the query here", "Error generating answer: quota exceeded", results, analysis, true)

	if answer.Confidence > 0.3 {
		t.Errorf("Confidence = %v, failed synthesis must be capped at 0.3", answer.Confidence)
	}
	if answer.Warning != WarningLowConfidence {
		t.Errorf("Warning = %q, want %q", answer.Warning, WarningLowConfidence)
	}
}

func TestFinalizeLowConfidenceWarning(t *testing.T) {
	p := NewPostProcessor(NewFusion())
	results := []repository.SearchResult{
		{Content: "weak context", Source: "keyword", Score: 0.3}, // weighted 0.24
	}
	analysis := &QueryAnalysis{QueryType: FactualLookup, Confidence: 0.5}

	answer := p.Finalize("the query here", "A tentative answer.", results, analysis, false)

	// (0.24 + 0.5) / 2 = 0.37 < 0.5.
	if answer.Confidence >= 0.5 {
		t.Fatalf("Confidence = %v, want < 0.5", answer.Confidence)
	}
	if answer.Warning != WarningLowConfidence {
		t.Errorf("Warning = %q, want %q", answer.Warning, WarningLowConfidence)
	}
}

func TestFinalizeSentinelWarningWhenConfident(t *testing.T) {
	p := NewPostProcessor(NewFusion())
	// High scores keep avg above the cap threshold path only if no marker
	// matched; the sentinel itself contains "don't have enough", so the cap
	// applies and the low-confidence warning takes precedence.
	results := []repository.SearchResult{
		{Content: "a", Source: "vector", Score: 0.9},
	}
	analysis := &QueryAnalysis{QueryType: FactualLookup, Confidence: 0.9}

	answer := p.Finalize("the query here", "Partial details. "+InsufficientContextSentinel+".", results, analysis, false)

	if answer.Confidence != 0.3 {
		t.Errorf("Confidence = %v, want 0.3", answer.Confidence)
	}
	if answer.Warning != WarningLowConfidence {
		t.Errorf("Warning = %q, want %q", answer.Warning, WarningLowConfidence)
	}
}

func TestFinalizeConfidenceClampedToOne(t *testing.T) {
	p := NewPostProcessor(NewFusion())
	results := []repository.SearchResult{
		{Content: "a", Source: "vector", Score: 1.5},
	}
	analysis := &QueryAnalysis{QueryType: FactualLookup, Confidence: 1.0}

	answer := p.Finalize("the query here", "Very confident answer.", results, analysis, false)
	if answer.Confidence > 1.0 {
		t.Errorf("Confidence = %v, want <= 1.0", answer.Confidence)
	}
}

func TestFinalizeCitationsCappedAtFive(t *testing.T) {
	p := NewPostProcessor(NewFusion())
	var results []repository.SearchResult
	for i := 0; i < 9; i++ {
		results = append(results, repository.SearchResult{
			Content: string(rune('a' + i)),
			Source:  "vector",
			Score:   0.9,
		})
	}
	analysis := &QueryAnalysis{QueryType: FactualLookup, Confidence: 0.8}

	answer := p.Finalize("the query here", "answer text", results, analysis, false)

	if len(answer.Sources) != 5 {
		t.Fatalf("len(Sources) = %d, want 5", len(answer.Sources))
	}
	for i, c := range answer.Sources {
		if c.ID != i+1 {
			t.Errorf("Sources[%d].ID = %d, want %d", i, c.ID, i+1)
		}
	}
	// All contents remain available even beyond the citation cap.
	if len(answer.RetrievedContexts) != 9 {
		t.Errorf("RetrievedContexts = %d, want 9", len(answer.RetrievedContexts))
	}
}

func TestNoResults(t *testing.T) {
	p := NewPostProcessor(NewFusion())
	analysis := &QueryAnalysis{QueryType: Exploratory}

	answer := p.NoResults("an unanswerable query", analysis)

	if answer.Confidence != 0.0 {
		t.Errorf("Confidence = %v, want 0.0", answer.Confidence)
	}
	if answer.Sources == nil || len(answer.Sources) != 0 {
		t.Errorf("Sources = %v, want empty non-nil slice", answer.Sources)
	}
	if answer.Warning != WarningNoContext {
		t.Errorf("Warning = %q, want %q", answer.Warning, WarningNoContext)
	}
	if answer.QueryType != Exploratory {
		t.Errorf("QueryType = %q", answer.QueryType)
	}
	if answer.Answer == "" {
		t.Error("Answer text must explain the failure")
	}
}

func TestFinalizeEmptyResultsDelegatesToNoResults(t *testing.T) {
	p := NewPostProcessor(NewFusion())
	analysis := &QueryAnalysis{QueryType: FactualLookup}

	answer := p.Finalize("the query here", "whatever text", nil, analysis, false)
	if answer.Confidence != 0.0 || answer.Warning != WarningNoContext {
		t.Errorf("answer = %+v, want the no-results shape", answer)
	}
}
