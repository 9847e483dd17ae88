package query

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/zhang-liz/Enterprise-rag-system/internal/domain/repository"
)

// twoClientRouter serves triage and synthesis from different mocks, the way
// the production router splits tasks across backends.
type twoClientRouter struct {
	triage    repository.LLMClient
	synthesis repository.LLMClient
}

func (r *twoClientRouter) RouteLLMTask(task repository.TaskType) repository.LLMClient {
	if task == TaskSynthesis {
		return r.synthesis
	}
	return r.triage
}

func newTestPipeline(router repository.LLMRouter, graph repository.GraphRepository, vector repository.VectorRepository, recorder Recorder) *Pipeline {
	analyzer := NewAnalyzer(router)
	orchestrator := NewOrchestrator(graph, vector)
	synthesizer := NewSynthesizer(router, orchestrator.Fusion())
	return NewPipeline(analyzer, orchestrator, synthesizer, recorder)
}

func TestProcessEndToEnd(t *testing.T) {
	router := &twoClientRouter{
		triage: &mockLLMClient{response: `{
			"query_type": "FACTUAL_LOOKUP",
			"rewritten_query": "Acme Corp Q4 revenue",
			"requires_graph": true,
			"requires_vector": true,
			"confidence": 0.86
		}`},
		synthesis: &mockLLMClient{response: "Acme's Q4 revenue was $12M [Source 1]."},
	}
	graph := &mockGraph{
		entities: map[string]repository.EntityRecord{
			"Acme": {Name: "Acme", Type: "organization", Description: "Widget maker", Confidence: 1.0},
		},
	}
	vector := &mockVector{hitsByModality: map[string][]repository.VectorHit{
		"": {{ID: "c1", Text: "Q4 revenue was $12M.", Score: 0.82}},
	}}
	recorder := &mockRecorder{}

	p := newTestPipeline(router, graph, vector, recorder)
	req, err := NewQueryRequest("What was Acme revenue in Q4?", "", nil)
	if err != nil {
		t.Fatalf("NewQueryRequest() error = %v", err)
	}

	answer := p.Process(context.Background(), req)

	if answer.Answer != "Acme's Q4 revenue was $12M [Source 1]." {
		t.Errorf("Answer = %q", answer.Answer)
	}
	// vector 0.82*1.0 and graph 1.0*0.9 average to 0.86, blended with the
	// triage confidence 0.86.
	if math.Abs(answer.Confidence-0.86) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.86", answer.Confidence)
	}
	if answer.QueryType != FactualLookup {
		t.Errorf("QueryType = %q", answer.QueryType)
	}
	if len(answer.Sources) != 2 {
		t.Errorf("len(Sources) = %d, want 2", len(answer.Sources))
	}
	if answer.Warning != "" {
		t.Errorf("Warning = %q, want none", answer.Warning)
	}

	if len(recorder.records) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(recorder.records))
	}
	rec := recorder.records[0]
	if rec.Query != "What was Acme revenue in Q4?" || rec.QueryType != "factual_lookup" || rec.NumSources != 2 {
		t.Errorf("record = %+v", rec)
	}
	if rec.RequestID == "" {
		t.Error("record must carry a request ID")
	}
}

func TestProcessNoResults(t *testing.T) {
	router := &twoClientRouter{
		triage:    &mockLLMClient{response: `{"query_type": "EXPLORATORY"}`},
		synthesis: &mockLLMClient{response: "should not be called"},
	}
	p := newTestPipeline(router, &mockGraph{}, &mockVector{}, nil)

	req, _ := NewQueryRequest("Something entirely absent from the corpus", "", nil)
	answer := p.Process(context.Background(), req)

	if answer.Confidence != 0.0 {
		t.Errorf("Confidence = %v, want 0.0", answer.Confidence)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("Sources = %v, want none", answer.Sources)
	}
	if answer.Warning != WarningNoContext {
		t.Errorf("Warning = %q, want %q", answer.Warning, WarningNoContext)
	}
	synthesis := router.synthesis.(*mockLLMClient)
	if synthesis.calls != 0 {
		t.Error("synthesis must be skipped when retrieval finds nothing")
	}
}

func TestProcessTriageFailureStillAnswers(t *testing.T) {
	router := &twoClientRouter{
		triage:    &mockLLMClient{err: errors.New("triage backend down")},
		synthesis: &mockLLMClient{response: "An answer from vector context [Source 1]."},
	}
	vector := &mockVector{hitsByModality: map[string][]repository.VectorHit{
		"": {{ID: "c1", Text: "relevant passage", Score: 0.8}},
	}}
	p := newTestPipeline(router, &mockGraph{}, vector, nil)

	req, _ := NewQueryRequest("What is the revenue?", "", nil)
	answer := p.Process(context.Background(), req)

	// Fallback analysis is vector-only with triage confidence 0.5:
	// (0.8 + 0.5) / 2 = 0.65.
	if math.Abs(answer.Confidence-0.65) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.65", answer.Confidence)
	}
	if answer.Answer != "An answer from vector context [Source 1]." {
		t.Errorf("Answer = %q", answer.Answer)
	}
}

func TestProcessSynthesisFailureDegrades(t *testing.T) {
	router := &twoClientRouter{
		triage:    &mockLLMClient{response: `{"query_type": "FACTUAL_LOOKUP", "confidence": 0.9}`},
		synthesis: &mockLLMClient{err: errors.New("quota exceeded")},
	}
	vector := &mockVector{hitsByModality: map[string][]repository.VectorHit{
		"": {{ID: "c1", Text: "strong passage", Score: 0.95}},
	}}
	p := newTestPipeline(router, &mockGraph{}, vector, nil)

	req, _ := NewQueryRequest("What is the revenue?", "", nil)
	answer := p.Process(context.Background(), req)

	if !strings.HasPrefix(answer.Answer, "Error generating answer:") {
		t.Errorf("Answer = %q", answer.Answer)
	}
	if answer.Confidence > 0.3 {
		t.Errorf("Confidence = %v, want capped at 0.3", answer.Confidence)
	}
	if answer.Warning != WarningLowConfidence {
		t.Errorf("Warning = %q, want %q", answer.Warning, WarningLowConfidence)
	}
}

func TestProcessEvalModeAttachesMetrics(t *testing.T) {
	router := &twoClientRouter{
		triage:    &mockLLMClient{response: `{"query_type": "FACTUAL_LOOKUP"}`},
		synthesis: &mockLLMClient{response: "answer [Source 1]"},
	}
	vector := &mockVector{hitsByModality: map[string][]repository.VectorHit{
		"": {{ID: "c1", Text: "passage", Score: 0.9}},
	}}
	p := newTestPipeline(router, &mockGraph{}, vector, nil)
	p.EvalMode = "development"

	req, _ := NewQueryRequest("What is the revenue?", "", nil)
	answer := p.Process(context.Background(), req)

	if answer.EvaluationMetrics == nil {
		t.Fatal("EvaluationMetrics missing in development mode")
	}
	if answer.EvaluationMetrics.QueryType != "factual_lookup" {
		t.Errorf("metrics QueryType = %q", answer.EvaluationMetrics.QueryType)
	}

	p.EvalMode = "production"
	answer = p.Process(context.Background(), req)
	if answer.EvaluationMetrics != nil {
		t.Error("EvaluationMetrics must be omitted outside development mode")
	}
}

func TestProcessRecorderFailureDoesNotAffectAnswer(t *testing.T) {
	router := &twoClientRouter{
		triage:    &mockLLMClient{response: `{"query_type": "FACTUAL_LOOKUP"}`},
		synthesis: &mockLLMClient{response: "answer [Source 1]"},
	}
	vector := &mockVector{hitsByModality: map[string][]repository.VectorHit{
		"": {{ID: "c1", Text: "passage", Score: 0.9}},
	}}
	recorder := &mockRecorder{err: errors.New("disk full")}
	p := newTestPipeline(router, &mockGraph{}, vector, recorder)

	req, _ := NewQueryRequest("What is the revenue?", "", nil)
	answer := p.Process(context.Background(), req)

	if answer.Answer != "answer [Source 1]" {
		t.Errorf("Answer = %q, recording failures must not surface", answer.Answer)
	}
}
