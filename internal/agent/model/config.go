package model

import "time"

// ================ Config ================
const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"

	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// LLMConfig selects the model backend shared by the chat and embedding calls.
type LLMConfig struct {
	Provider       string        `envconfig:"LLM_PROVIDER" default:"ollama"`
	BaseURL        string        `envconfig:"LLM_BASE_URL" default:"http://localhost:11434"`
	Model          string        `envconfig:"LLM_MODEL" default:"llama3.2"`
	EmbeddingModel string        `envconfig:"EMBEDDING_MODEL" default:"llama3.2"`
	Temperature    float32       `envconfig:"LLM_TEMPERATURE" default:"0"`
	MaxTokens      int           `envconfig:"LLM_MAX_TOKENS" default:"1024"`
	Timeout        time.Duration `envconfig:"LLM_TIMEOUT" default:"0s"`
	APIKey         string        `envconfig:"GEMINI_API_KEY"`
}

// KnowledgeConfig controls contract ingestion and retrieval.
type KnowledgeConfig struct {
	ContractPath string `envconfig:"CONTRACT_PATH" default:"data/contracts"`
	ChunkSize    int    `envconfig:"CHUNK_SIZE" default:"1000"`
	TopK         int    `envconfig:"RETRIEVE_TOP_K" default:"3"`
	Backend      string `envconfig:"KNOWLEDGE_BACKEND" default:"memory"`
	Collection   string `envconfig:"KNOWLEDGE_COLLECTION" default:"contract_guardian"`
	SQLitePath   string `envconfig:"SQLITE_PATH" default:"guardian.db"`
}

// BatchConfig controls a single batch cycle.
type BatchConfig struct {
	InvoicesPath string `envconfig:"INVOICES_PATH"`
	FailFast     bool   `envconfig:"BATCH_FAIL_FAST" default:"false"`
}
