// Package server wires the application together: configuration, LLM
// backends, stores, the query pipeline and the HTTP surface, plus graceful
// shutdown.
package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zhang-liz/Enterprise-rag-system/internal/config"
	"github.com/zhang-liz/Enterprise-rag-system/internal/database/querylog"
	"github.com/zhang-liz/Enterprise-rag-system/internal/domain/repository"
	"github.com/zhang-liz/Enterprise-rag-system/internal/infrastructure/llm"
	neo4jpkg "github.com/zhang-liz/Enterprise-rag-system/internal/infrastructure/neo4j"
	qdrantpkg "github.com/zhang-liz/Enterprise-rag-system/internal/infrastructure/qdrant"
	httpserver "github.com/zhang-liz/Enterprise-rag-system/internal/interface/http"
	"github.com/zhang-liz/Enterprise-rag-system/internal/usecase/query"
)

// Circuit breaker settings for external LLM backends.
const (
	breakerFailThreshold = 5
	breakerOpenTimeout   = 30 * time.Second
)

type Server struct {
	cfg        *config.Config
	httpServer *http.Server
}

func New(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Run builds the dependency graph, starts the HTTP server and blocks until
// a shutdown signal arrives.
func (s *Server) Run() error {
	ctx := context.Background()

	// ==========================================
	// LLM backends
	// ==========================================

	localLLMClient := llm.NewLocalOllamaClient(s.cfg.OllamaHost, s.cfg.OllamaLLMModel)
	localEmbedClient := llm.NewLocalOllamaClient(s.cfg.OllamaHost, s.cfg.OllamaEmbedModel)

	var cloudClient repository.LLMClient
	if s.cfg.UseLocalOnlyLLM {
		log.Println("[System] RAG_USE_LOCAL_ONLY_LLM is true; routing all tasks to Ollama")
		cloudClient = localLLMClient
	} else {
		geminiClient, err := llm.NewGeminiClient(ctx, s.cfg.GeminiAPIKey, s.cfg.GeminiModel)
		if err != nil {
			return err
		}
		defer func() { _ = geminiClient.Close() }()
		cloudClient = geminiClient
	}

	llmRouter := llm.NewRouter(
		llm.WithCircuitBreaker(localLLMClient, breakerFailThreshold, breakerOpenTimeout),
		llm.WithCircuitBreaker(cloudClient, breakerFailThreshold, breakerOpenTimeout),
		localEmbedClient,
	)
	log.Printf("[System] LLM router initialized (cloud: %s | local: %s | embed: %s)",
		cloudClient.Name(), localLLMClient.Name(), localEmbedClient.Name())

	// Best effort; the models may already be present or pulled manually.
	if err := localLLMClient.PullModel(ctx, s.cfg.OllamaLLMModel); err != nil {
		log.Printf("[Warning] Failed to pull LLM model %q: %v", s.cfg.OllamaLLMModel, err)
	}
	if err := localEmbedClient.PullModel(ctx, s.cfg.OllamaEmbedModel); err != nil {
		log.Printf("[Warning] Failed to pull embed model %q: %v", s.cfg.OllamaEmbedModel, err)
	}

	// ==========================================
	// Stores
	// ==========================================

	neo4jClient, err := neo4jpkg.NewClient(ctx, s.cfg.Neo4jURI, s.cfg.Neo4jUser, s.cfg.Neo4jPassword)
	if err != nil {
		return err
	}
	defer func() { _ = neo4jClient.Close(ctx) }()

	qdrantClient, err := qdrantpkg.NewClient(s.cfg.QdrantHost, s.cfg.QdrantPort, s.cfg.QdrantCollection, localEmbedClient)
	if err != nil {
		return err
	}
	defer func() { _ = qdrantClient.Close() }()

	queryLog, err := querylog.NewStore(s.cfg.QueryLogPath)
	if err != nil {
		return err
	}
	defer func() { _ = queryLog.Close() }()

	// ==========================================
	// Query pipeline
	// ==========================================

	analyzer := query.NewAnalyzer(llmRouter).WithTimeout(s.cfg.TriageTimeout)
	orchestrator := query.NewOrchestrator(neo4jClient, qdrantClient)
	orchestrator.StrategyTimeout = s.cfg.RetrievalTimeout
	synthesizer := query.NewSynthesizer(llmRouter, orchestrator.Fusion()).WithTimeout(s.cfg.GenerationTimeout)

	pipeline := query.NewPipeline(analyzer, orchestrator, synthesizer, queryLog)
	pipeline.TopK = s.cfg.TopK
	pipeline.EvalMode = s.cfg.EvalMode

	// ==========================================
	// HTTP surface
	// ==========================================

	apiServer := httpserver.NewServer(pipeline, map[string]httpserver.StatsProvider{
		"graph":   neo4jClient,
		"vector":  qdrantClient,
		"queries": queryLog,
	})

	s.httpServer = &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: apiServer.RegisterRoutes(),
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("[System] Starting REST API server on %s", s.cfg.HTTPAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Error] HTTP server failed: %v", err)
		}
	}()

	<-stop
	log.Println("[System] Shutdown signal received. Draining connections...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Error] HTTP shutdown error: %v", err)
	}

	log.Println("[System] Server stopped gracefully.")
	return nil
}
