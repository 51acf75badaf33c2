package nodes

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/ollama/ollama/api"
	"google.golang.org/genai"

	"github.com/contract-guardian/server/internal/agent/model"
	errx "github.com/contract-guardian/server/internal/core/error"
	logx "github.com/contract-guardian/server/pkg/logger"
)

// ChatModelConfig holds the configuration for model backend creation
type ChatModelConfig struct {
	LLM *model.LLMConfig
}

// ChatModels holds the generator and embedder of one backend
type ChatModels struct {
	Generator *ChatGenerator
	Embedder  model.Embedder
}

// NewChatModels creates the chat model and embedder for the configured provider
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.LLM == nil {
		return nil, fmt.Errorf("llm config is nil")
	}
	cfg := config.LLM

	switch cfg.Provider {
	case model.ProviderOllama:
		return newOllamaModels(ctx, cfg)
	case model.ProviderGemini:
		return newGeminiModels(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func newOllamaModels(_ context.Context, cfg *model.LLMConfig) (*ChatModels, error) {
	chat, err := NewOllamaChatModel(&OllamaChatModelConfig{
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Ollama chat model")
		return nil, fmt.Errorf("error creating Ollama chat model: %w", err)
	}

	embedder, err := NewOllamaEmbedder(cfg.BaseURL, cfg.EmbeddingModel, &http.Client{Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}

	return &ChatModels{
		Generator: NewChatGenerator(chat, cfg.Model),
		Embedder:  embedder,
	}, nil
}

func newGeminiModels(ctx context.Context, cfg *model.LLMConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens
	chat, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini chat model")
		return nil, fmt.Errorf("error creating Gemini chat model: %w", err)
	}

	return &ChatModels{
		Generator: NewChatGenerator(chat, cfg.Model),
		Embedder:  &GeminiEmbedder{client: client, model: cfg.EmbeddingModel},
	}, nil
}

// ChatGenerator adapts an Eino chat model to a prompt-in, text-out generator.
type ChatGenerator struct {
	chat      einomodel.BaseChatModel
	modelName string
}

// NewChatGenerator wraps any Eino chat model.
func NewChatGenerator(chat einomodel.BaseChatModel, modelName string) *ChatGenerator {
	return &ChatGenerator{chat: chat, modelName: modelName}
}

// ModelName returns the configured model name, used for pricing.
func (g *ChatGenerator) ModelName() string {
	return g.modelName
}

// GenerateMessage sends the prompt as a single user message.
func (g *ChatGenerator) GenerateMessage(ctx context.Context, prompt string) (*schema.Message, error) {
	out, err := g.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return nil, errx.Generation(err)
	}
	if out == nil {
		return schema.AssistantMessage("", nil), nil
	}
	return out, nil
}

// Generate returns the raw response text.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := g.GenerateMessage(ctx, prompt)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

// OllamaEmbedder calls the Ollama /api/embed endpoint.
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

// NewOllamaEmbedder builds an embedder against baseURL.
func NewOllamaEmbedder(baseURL, modelName string, httpClient *http.Client) (*OllamaEmbedder, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama base url: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaEmbedder{client: api.NewClient(u, httpClient), model: modelName}, nil
}

// Embed returns the embedding of text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama embed: no embeddings returned")
	}
	return resp.Embeddings[0], nil
}

// GeminiEmbedder calls the Gemini embedContent API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// Embed returns the embedding of text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("gemini embed: no embeddings returned")
	}
	return resp.Embeddings[0].Values, nil
}

var (
	_ model.MessageGenerator = (*ChatGenerator)(nil)
	_ model.Embedder         = (*OllamaEmbedder)(nil)
	_ model.Embedder         = (*GeminiEmbedder)(nil)
)
