package query

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/zhang-liz/Enterprise-rag-system/internal/usecase/evaluation"
)

// Recorder persists a summary of each processed query for observability.
// Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, rec QueryRecord) error
}

// QueryRecord is the audit-log entry for one processed query.
type QueryRecord struct {
	RequestID  string
	Query      string
	QueryType  string
	Confidence float64
	NumSources int
	LatencyMs  int64
	Warning    string
}

// Pipeline is the top-level coordinator: validate, triage, retrieve, fuse,
// synthesize, finalize. Every entity it creates lives for one request only.
type Pipeline struct {
	analyzer     *Analyzer
	orchestrator *Orchestrator
	synthesizer  *Synthesizer
	post         *PostProcessor
	recorder     Recorder

	// TopK bounds the fused result set per request.
	TopK int
	// EvalMode attaches evaluation metrics to answers when "development".
	EvalMode string
}

// NewPipeline wires the pipeline stages together. recorder may be nil.
func NewPipeline(analyzer *Analyzer, orchestrator *Orchestrator, synthesizer *Synthesizer, recorder Recorder) *Pipeline {
	return &Pipeline{
		analyzer:     analyzer,
		orchestrator: orchestrator,
		synthesizer:  synthesizer,
		post:         NewPostProcessor(orchestrator.Fusion()),
		recorder:     recorder,
		TopK:         DefaultTopK,
	}
}

// Process answers a validated request end-to-end. It never fails for
// business-logic reasons: degraded outcomes are signalled through the
// answer's confidence and warning fields.
func (p *Pipeline) Process(ctx context.Context, req *QueryRequest) *Answer {
	start := time.Now()
	requestID := uuid.NewString()
	log.Printf("[Pipeline] (%s) Processing query: %s", requestID, req.Query)

	analysis := p.analyzer.Analyze(ctx, req.Query)
	log.Printf("[Pipeline] (%s) Triage: type=%s graph=%t keyword=%t vector=%t confidence=%.2f",
		requestID, analysis.QueryType, analysis.RequiresGraph, analysis.RequiresKeyword, analysis.RequiresVector, analysis.Confidence)

	results := p.orchestrator.Search(ctx, analysis, p.TopK)

	var answer *Answer
	if len(results) == 0 {
		answer = p.post.NoResults(req.Query, analysis)
	} else {
		answerText, failed := p.synthesizer.Generate(ctx, req.Query, results)
		answer = p.post.Finalize(req.Query, answerText, results, analysis, failed)
	}

	if p.EvalMode == "development" {
		answer.EvaluationMetrics = evaluation.Evaluate(req.Query, answer.Answer, answer.RetrievedContexts, string(analysis.QueryType), start)
	}

	p.record(ctx, requestID, req, answer, start)

	log.Printf("[Pipeline] (%s) Done: confidence=%.2f sources=%d warning=%q",
		requestID, answer.Confidence, len(answer.Sources), answer.Warning)
	return answer
}

func (p *Pipeline) record(ctx context.Context, requestID string, req *QueryRequest, answer *Answer, start time.Time) {
	if p.recorder == nil {
		return
	}
	rec := QueryRecord{
		RequestID:  requestID,
		Query:      req.Query,
		QueryType:  string(answer.QueryType),
		Confidence: answer.Confidence,
		NumSources: len(answer.Sources),
		LatencyMs:  time.Since(start).Milliseconds(),
		Warning:    answer.Warning,
	}
	if err := p.recorder.Record(ctx, rec); err != nil {
		log.Printf("[Pipeline] (%s) Failed to record query: %v", requestID, err)
	}
}
