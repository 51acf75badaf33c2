package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/contract-guardian/server/internal/agent/model"
	"github.com/contract-guardian/server/internal/core"
	errx "github.com/contract-guardian/server/internal/core/error"
	logx "github.com/contract-guardian/server/pkg/logger"
	pkgredis "github.com/contract-guardian/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the guardian,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config

	// Model backend
	LLM model.LLMConfig

	// Agent configs
	Knowledge model.KnowledgeConfig
	Batch     model.BatchConfig
}

// Env returns the parsed deployment environment.
func (c *AppConfig) Env() core.Environment {
	return core.ParseEnvironment(c.Environment)
}

// LoadConfig reads envFile when present, then binds the process environment.
func LoadConfig(envFile string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, errx.Config(fmt.Errorf("load %s: %w", envFile, err))
			}
			logx.Debug().Str("file", envFile).Msg("env file not found, using process environment")
		}
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errx.Config(fmt.Errorf("process environment config: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the guardian cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case model.ProviderOllama:
		if c.LLM.BaseURL == "" {
			errs = append(errs, errors.New("LLM_BASE_URL is required for the ollama provider"))
		}
	case model.ProviderGemini:
		if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("LLM_MODEL must not be empty"))
	}
	if c.LLM.EmbeddingModel == "" {
		errs = append(errs, errors.New("EMBEDDING_MODEL must not be empty"))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.LLM.MaxTokens))
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, fmt.Errorf("LLM_TIMEOUT must not be negative, got %s", c.LLM.Timeout))
	}

	if c.Knowledge.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.Knowledge.ChunkSize))
	}
	if c.Knowledge.TopK <= 0 {
		errs = append(errs, fmt.Errorf("RETRIEVE_TOP_K must be positive, got %d", c.Knowledge.TopK))
	}

	switch c.Knowledge.Backend {
	case model.BackendMemory:
	case model.BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis knowledge backend"))
		}
	case model.BackendSQLite:
		if c.Knowledge.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite knowledge backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown KNOWLEDGE_BACKEND %q", c.Knowledge.Backend))
	}
	if c.Knowledge.Backend != model.BackendMemory && c.Knowledge.Collection == "" {
		errs = append(errs, errors.New("KNOWLEDGE_COLLECTION must not be empty"))
	}

	if len(errs) > 0 {
		return errx.Config(errors.Join(errs...))
	}
	return nil
}
