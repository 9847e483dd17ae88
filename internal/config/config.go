package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all environmentally dependent settings for the RAG API.
type Config struct {
	HTTPAddr string

	// LLM backends
	GeminiAPIKey     string
	GeminiModel      string
	OllamaHost       string
	OllamaLLMModel   string
	OllamaEmbedModel string
	UseLocalOnlyLLM  bool

	// Per-call bounds at the external service boundaries
	TriageTimeout     time.Duration
	RetrievalTimeout  time.Duration
	GenerationTimeout time.Duration

	// Qdrant vector DB
	QdrantHost       string
	QdrantPort       int
	QdrantCollection string

	// Neo4j graph DB
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Pipeline
	TopK         int
	EvalMode     string
	QueryLogPath string
}

// Validate ensures that all required configuration is present and valid.
func (c *Config) Validate() error {
	if !c.UseLocalOnlyLLM && c.GeminiAPIKey == "" {
		return fmt.Errorf("RAG_GEMINI_API_KEY is required when RAG_USE_LOCAL_ONLY_LLM is false")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("RAG_TOP_K must be positive, got %d", c.TopK)
	}
	return nil
}

// Load reads settings from the environment (optionally overlaid from a .env
// file) with sensible defaults.
func Load() *Config {
	// A missing .env is fine; the environment wins either way.
	if err := godotenv.Load(); err == nil {
		log.Println("[Config] Loaded .env file")
	}

	cfg := &Config{
		HTTPAddr: getEnv("RAG_HTTP_ADDR", ":8080"),

		GeminiAPIKey:     getEnv("RAG_GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("RAG_GEMINI_MODEL", "gemini-1.5-pro"),
		OllamaHost:       getEnv("RAG_OLLAMA_HOST", "http://localhost:11434"),
		OllamaLLMModel:   getEnv("RAG_OLLAMA_LLM_MODEL", "llama3"),
		OllamaEmbedModel: getEnv("RAG_OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		UseLocalOnlyLLM:  getEnvBool("RAG_USE_LOCAL_ONLY_LLM", false),

		TriageTimeout:     getEnvDuration("RAG_TRIAGE_TIMEOUT_SEC", 10) * time.Second,
		RetrievalTimeout:  getEnvDuration("RAG_RETRIEVAL_TIMEOUT_SEC", 10) * time.Second,
		GenerationTimeout: getEnvDuration("RAG_GENERATION_TIMEOUT_SEC", 30) * time.Second,

		QdrantHost:       getEnv("RAG_QDRANT_HOST", "localhost"),
		QdrantPort:       getEnvInt("RAG_QDRANT_PORT", 6334),
		QdrantCollection: getEnv("RAG_QDRANT_COLLECTION", "enterprise_rag"),

		Neo4jURI:      getEnv("RAG_NEO4J_URI", "neo4j://localhost:7687"),
		Neo4jUser:     getEnv("RAG_NEO4J_USER", "neo4j"),
		Neo4jPassword: getEnv("RAG_NEO4J_PASSWORD", "password"),

		TopK:         getEnvInt("RAG_TOP_K", 10),
		EvalMode:     getEnv("RAG_EVAL_MODE", "development"),
		QueryLogPath: getEnv("RAG_QUERY_LOG_PATH", "queries.db"),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[Config] Validation failed: %v", err)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return fallback
}

func getEnvDuration(key string, fallback int) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return time.Duration(fallback)
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("[Config] Warning: Invalid duration for %s: %v. Using fallback %d", key, err, fallback)
		return time.Duration(fallback)
	}
	return time.Duration(value)
}

func getEnvInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("[Config] Warning: Invalid int for %s: %v. Using fallback %d", key, err, fallback)
		return fallback
	}
	return value
}
