package llm

import (
	"context"
	"time"

	"github.com/zhang-liz/Enterprise-rag-system/internal/domain/repository"
	"github.com/zhang-liz/Enterprise-rag-system/internal/infrastructure/resilience"
)

// ResilientClient decorates an LLMClient with a circuit breaker so a
// misbehaving backend is rejected fast instead of tying up every request.
// Rejections surface as ordinary errors; the pipeline already degrades on
// those.
type ResilientClient struct {
	inner   repository.LLMClient
	breaker *resilience.CircuitBreaker
}

// WithCircuitBreaker wraps client, opening the circuit after failThreshold
// consecutive failures and probing again after openTimeout.
func WithCircuitBreaker(client repository.LLMClient, failThreshold int, openTimeout time.Duration) *ResilientClient {
	return &ResilientClient{
		inner:   client,
		breaker: resilience.NewCircuitBreaker(failThreshold, openTimeout),
	}
}

func (c *ResilientClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	var out string
	err := c.breaker.Execute(func() error {
		var genErr error
		out, genErr = c.inner.Generate(ctx, system, prompt)
		return genErr
	})
	return out, err
}

func (c *ResilientClient) Name() string {
	return c.inner.Name()
}
