package llm_test

import (
	"context"
	"testing"

	"github.com/zhang-liz/Enterprise-rag-system/internal/domain/repository"
	"github.com/zhang-liz/Enterprise-rag-system/internal/infrastructure/llm"
)

// mockClient implements the repository.LLMClient interface for testing.
type mockClient struct {
	name string
}

func (m *mockClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	return "Mock response from: " + m.name, nil
}

func (m *mockClient) Name() string {
	return m.name
}

func TestLLMRouter(t *testing.T) {
	localMock := &mockClient{name: "local_ollama"}
	cloudMock := &mockClient{name: "gemini_api"}

	router := llm.NewRouter(localMock, cloudMock, nil)

	tests := []struct {
		name         string
		taskType     repository.TaskType
		expectedName string
	}{
		{
			name:         "Query triage should route to Local",
			taskType:     llm.TaskQueryTriage,
			expectedName: "local_ollama",
		},
		{
			name:         "Answer synthesis should route to Cloud",
			taskType:     llm.TaskAnswerSynthesis,
			expectedName: "gemini_api",
		},
		{
			name:         "Unknown tasks should default to Local",
			taskType:     repository.TaskType("unknown_task_123"),
			expectedName: "local_ollama",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := router.RouteLLMTask(tt.taskType)

			mock, ok := client.(*mockClient)
			if !ok {
				t.Fatalf("Expected client to be of type *mockClient")
			}

			if mock.name != tt.expectedName {
				t.Errorf("For Task %s, expected router to select %s but got %s", tt.taskType, tt.expectedName, mock.name)
			}
		})
	}
}

func TestLLMRouterFallsThroughToAvailableBackend(t *testing.T) {
	localMock := &mockClient{name: "local_ollama"}

	// No cloud backend: synthesis falls through to the local client.
	router := llm.NewRouter(localMock, nil, nil)
	client := router.RouteLLMTask(llm.TaskAnswerSynthesis)
	if client == nil || client.Name() != "local_ollama" {
		t.Errorf("expected fall-through to local client, got %v", client)
	}

	// No local backend: triage falls through to the cloud client.
	cloudMock := &mockClient{name: "gemini_api"}
	router = llm.NewRouter(nil, cloudMock, nil)
	client = router.RouteLLMTask(llm.TaskQueryTriage)
	if client == nil || client.Name() != "gemini_api" {
		t.Errorf("expected fall-through to cloud client, got %v", client)
	}
}
