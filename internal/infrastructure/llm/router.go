package llm

import (
	"log"

	"github.com/zhang-liz/Enterprise-rag-system/internal/domain/repository"
)

// TaskType is a re-export of the domain task type for convenience.
type TaskType = repository.TaskType

const (
	TaskQueryTriage     TaskType = "query_triage"
	TaskAnswerSynthesis TaskType = "answer_synthesis"
	TaskEmbedding       TaskType = "embedding"
)

// Router picks an LLM client by the task's cognitive load: cheap local
// models handle triage and embeddings, the cloud model handles grounded
// answer synthesis.
type Router struct {
	localClient repository.LLMClient
	cloudClient repository.LLMClient
	embedClient repository.EmbeddingClient
}

// NewRouter initializes the LLM router with the specified backend clients.
func NewRouter(local, cloud repository.LLMClient, embed repository.EmbeddingClient) *Router {
	return &Router{
		localClient: local,
		cloudClient: cloud,
		embedClient: embed,
	}
}

// RouteLLMTask returns the client suited to the task.
func (r *Router) RouteLLMTask(task repository.TaskType) repository.LLMClient {
	var selected repository.LLMClient

	switch task {
	case TaskAnswerSynthesis:
		selected = r.cloudClient
	default:
		selected = r.localClient
	}

	if selected == nil {
		// Fall through to whichever backend exists.
		if r.cloudClient != nil {
			selected = r.cloudClient
		} else {
			selected = r.localClient
		}
	}
	if selected != nil {
		log.Printf("[Router] Routing task '%s' to %s", task, selected.Name())
	}
	return selected
}

// RouteEmbeddingTask returns the embedding backend.
func (r *Router) RouteEmbeddingTask() repository.EmbeddingClient {
	return r.embedClient
}
