package query

import (
	"context"
	"sync"

	"github.com/zhang-liz/Enterprise-rag-system/internal/domain/repository"
)

// mockLLMClient returns a canned response and records the last call.
type mockLLMClient struct {
	mu         sync.Mutex
	response   string
	err        error
	lastSystem string
	lastPrompt string
	calls      int
}

func (m *mockLLMClient) Generate(_ context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSystem = system
	m.lastPrompt = prompt
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLMClient) Name() string { return "mock_llm" }

// mockRouter routes every task to the same client. A nil client simulates
// no backend being configured.
type mockRouter struct {
	client repository.LLMClient
}

func (m *mockRouter) RouteLLMTask(repository.TaskType) repository.LLMClient {
	if m.client == nil {
		return nil
	}
	return m.client
}

// mockGraph is an in-memory GraphRepository.
type mockGraph struct {
	entities       map[string]repository.EntityRecord
	related        map[string][]repository.RelatedEntity
	keywordMatches []repository.KeywordMatch

	findErr    error
	relatedErr error
	keywordErr error

	mu           sync.Mutex
	findCalls    []string
	keywordCalls [][]string
}

func (m *mockGraph) FindEntity(_ context.Context, name string) (*repository.EntityRecord, error) {
	m.mu.Lock()
	m.findCalls = append(m.findCalls, name)
	m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	if rec, ok := m.entities[name]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (m *mockGraph) FindRelatedEntities(_ context.Context, name string, _ int) ([]repository.RelatedEntity, error) {
	if m.relatedErr != nil {
		return nil, m.relatedErr
	}
	return m.related[name], nil
}

func (m *mockGraph) KeywordSearch(_ context.Context, keywords []string, _ int) ([]repository.KeywordMatch, error) {
	m.mu.Lock()
	m.keywordCalls = append(m.keywordCalls, keywords)
	m.mu.Unlock()
	if m.keywordErr != nil {
		return nil, m.keywordErr
	}
	return m.keywordMatches, nil
}

func (m *mockGraph) AddEntity(context.Context, repository.EntityRecord, string) error {
	return nil
}

func (m *mockGraph) AddRelationship(context.Context, string, string, string, string, float64, string) error {
	return nil
}

func (m *mockGraph) Statistics(context.Context) (map[string]any, error) {
	return map[string]any{"num_entities": len(m.entities)}, nil
}

func (m *mockGraph) Close(context.Context) error { return nil }

// mockVector is an in-memory VectorRepository. hitsByModality[""] serves
// unfiltered searches.
type mockVector struct {
	hitsByModality map[string][]repository.VectorHit
	err            error

	mu          sync.Mutex
	lastQuery   string
	searchCalls int
}

func (m *mockVector) SemanticSearch(_ context.Context, query string, _ int, _ float64, modality string) ([]repository.VectorHit, error) {
	m.mu.Lock()
	m.lastQuery = query
	m.searchCalls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.hitsByModality[modality], nil
}

func (m *mockVector) AddChunks(context.Context, string, []string, map[string]any) error {
	return nil
}

func (m *mockVector) DeleteDocument(context.Context, string) error { return nil }

func (m *mockVector) Statistics(context.Context) (map[string]any, error) {
	return map[string]any{}, nil
}

func (m *mockVector) Close() error { return nil }

// mockRecorder captures pipeline audit records.
type mockRecorder struct {
	mu      sync.Mutex
	records []QueryRecord
	err     error
}

func (m *mockRecorder) Record(_ context.Context, rec QueryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}
