// Package config holds the singleton application configuration, built
// once from the environment.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// API Settings
	APITitle   string
	APIVersion string
	APIPrefix  string
	Port       string

	// CORS
	CORSOrigins []string

	// PostgreSQL (relational store backing batch source resolution and the
	// pgvector backend's payload hydration).
	PostgresURI string

	// Vector Search Backend: "pgvector", "vertex", or "hnsw"
	VectorBackend  string
	HNSWDimensions int

	// Vertex AI Vector Search settings (used when VectorBackend = "vertex")
	VertexProjectID             string
	VertexLocation              string
	VertexPublicEndpointDomain  string
	VertexQuranIndexEndpointID  string
	VertexQuranDeployedIndexID  string
	VertexHadithIndexEndpointID string
	VertexHadithDeployedIndexID string
	VertexBookIndexEndpointID   string
	VertexBookDeployedIndexID   string

	// Embedding provider ("gemini" or "ollama"), chosen once at startup; the
	// request's embeddingModel parameter does not change it.
	EmbeddingProvider string
	VertexEmbedModel  string
	OllamaHost        string
	OllamaEmbedModel  string

	// LLM provider backing the query expander and reranker.
	LLMProvider            string // "ollama" or "vertex"
	OllamaChatHost         string
	OllamaChatModel        string
	VertexChatModel        string
	ExpansionPromptVersion string

	// Text index on-disk paths, one Bleve index per corpus. Empty
	// means in-memory (used for tests / ephemeral dev).
	TextIndexDir string

	// Graph store, FalkorDB over the Redis protocol.
	GraphHost     string
	GraphPort     int
	GraphPassword string
	GraphName     string
	GraphPoolSize int

	// Cache layer.
	DurableCachePath     string
	EmbeddingCacheSize   int
	TranslationCacheSize int

	// Default search parameters, overridable per request.
	DefaultLimit                  int
	DefaultSimilarityCutoff       float64
	DefaultRefineSimilarityCutoff float64
	DefaultPreRerankLimit         int
	DefaultPostRerankLimit        int
	ExpandedQueryWeight           float64
	DefaultQuranTranslation       string
	DefaultHadithTranslation      string
	StandardModeDeadline          time.Duration
	RefineModeDeadline            time.Duration
	ExpansionTimeout              time.Duration
	LLMConcurrencyCap             int
	RefineConcurrencyCap          int
}

var (
	config *Config
	once   sync.Once
)

// GetConfig returns the singleton configuration instance, built from the
// environment on first call.
func GetConfig() *Config {
	once.Do(func() {
		config = loadConfig()
	})
	return config
}

func loadConfig() *Config {
	return &Config{
		APITitle:    getEnv("API_TITLE", "Arabic-Islamic Hybrid Search API"),
		APIVersion:  getEnv("API_VERSION", "1.0.0"),
		APIPrefix:   getEnv("API_PREFIX", "/api/v1"),
		Port:        getEnv("PORT", "8081"),
		CORSOrigins: parseCORSOrigins(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),

		PostgresURI: getEnv("POSTGRES_URI", ""),

		VectorBackend:  getEnv("VECTOR_BACKEND", "hnsw"),
		HNSWDimensions: getEnvInt("HNSW_DIMENSIONS", 768),

		VertexProjectID:             getEnv("VERTEX_PROJECT_ID", ""),
		VertexLocation:              getEnv("VERTEX_LOCATION", "us-central1"),
		VertexPublicEndpointDomain:  getEnv("VERTEX_PUBLIC_ENDPOINT_DOMAIN", ""),
		VertexQuranIndexEndpointID:  getEnv("VERTEX_QURAN_INDEX_ENDPOINT_ID", ""),
		VertexQuranDeployedIndexID:  getEnv("VERTEX_QURAN_DEPLOYED_INDEX_ID", ""),
		VertexHadithIndexEndpointID: getEnv("VERTEX_HADITH_INDEX_ENDPOINT_ID", ""),
		VertexHadithDeployedIndexID: getEnv("VERTEX_HADITH_DEPLOYED_INDEX_ID", ""),
		VertexBookIndexEndpointID:   getEnv("VERTEX_BOOK_INDEX_ENDPOINT_ID", ""),
		VertexBookDeployedIndexID:   getEnv("VERTEX_BOOK_DEPLOYED_INDEX_ID", ""),

		EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
		VertexEmbedModel:  getEnv("VERTEX_EMBED_MODEL", "gemini-embedding-001"),
		OllamaHost:        getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaEmbedModel:  getEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		LLMProvider:            getEnv("LLM_PROVIDER", "ollama"),
		OllamaChatHost:         getEnv("OLLAMA_CHAT_HOST", "http://localhost:11434"),
		OllamaChatModel:        getEnv("OLLAMA_CHAT_MODEL", "gpt-oss-120b"),
		VertexChatModel:        getEnv("VERTEX_CHAT_MODEL", "gemini-2.0-flash"),
		ExpansionPromptVersion: getEnv("EXPANSION_PROMPT_VERSION", "v1"),

		TextIndexDir: getEnv("TEXT_INDEX_DIR", ""),

		GraphHost:     getEnv("GRAPH_HOST", "localhost"),
		GraphPort:     getEnvInt("GRAPH_PORT", 6379),
		GraphPassword: getEnv("GRAPH_PASSWORD", ""),
		GraphName:     getEnv("GRAPH_NAME", "islamic_kg"),
		GraphPoolSize: getEnvInt("GRAPH_POOL_SIZE", 8),

		DurableCachePath:     getEnv("DURABLE_CACHE_PATH", "data/cache.db"),
		EmbeddingCacheSize:   getEnvInt("EMBEDDING_CACHE_SIZE", 10_000),
		TranslationCacheSize: getEnvInt("TRANSLATION_CACHE_SIZE", 1_000),

		DefaultLimit:                  getEnvInt("DEFAULT_LIMIT", 20),
		DefaultSimilarityCutoff:       getEnvFloat("DEFAULT_SIMILARITY_CUTOFF", 0.60),
		DefaultRefineSimilarityCutoff: getEnvFloat("DEFAULT_REFINE_SIMILARITY_CUTOFF", 0.25),
		DefaultPreRerankLimit:         getEnvInt("DEFAULT_PRE_RERANK_LIMIT", 70),
		DefaultPostRerankLimit:        getEnvInt("DEFAULT_POST_RERANK_LIMIT", 10),
		ExpandedQueryWeight:           getEnvFloat("EXPANDED_QUERY_WEIGHT", 1.0),
		DefaultQuranTranslation:       getEnv("DEFAULT_QURAN_TRANSLATION", "eng-hilali"),
		DefaultHadithTranslation:      getEnv("DEFAULT_HADITH_TRANSLATION", "eng-hilali"),
		StandardModeDeadline:          getEnvDuration("STANDARD_MODE_DEADLINE", 15*time.Second),
		RefineModeDeadline:            getEnvDuration("REFINE_MODE_DEADLINE", 30*time.Second),
		ExpansionTimeout:              getEnvDuration("EXPANSION_TIMEOUT", 8*time.Second),
		LLMConcurrencyCap:             getEnvInt("LLM_CONCURRENCY_CAP", 15),
		RefineConcurrencyCap:          getEnvInt("REFINE_CONCURRENCY_CAP", 15),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseCORSOrigins(value string) []string {
	var origins []string
	if err := json.Unmarshal([]byte(value), &origins); err == nil {
		return origins
	}
	parts := strings.Split(value, ",")
	origins = make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
