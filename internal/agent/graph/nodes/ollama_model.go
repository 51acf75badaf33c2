package nodes

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/ollama/ollama/api"
)

// OllamaChatModelConfig configures an OllamaChatModel.
type OllamaChatModelConfig struct {
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// OllamaChatModel is an Eino chat model over the Ollama /api/chat endpoint.
// Options go out as a map so zero values such as temperature 0 are sent
// rather than dropped by omitempty.
type OllamaChatModel struct {
	client      *api.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOllamaChatModel builds a non-streaming Ollama chat model.
func NewOllamaChatModel(cfg *OllamaChatModelConfig) (*OllamaChatModel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ollama chat model config is nil")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model name is empty")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OllamaChatModel{
		client:      api.NewClient(u, httpClient),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Generate sends the conversation and returns the assistant reply.
func (m *OllamaChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (out *schema.Message, err error) {
	ctx = callbacks.EnsureRunInfo(ctx, m.GetType(), components.ComponentOfChatModel)

	temperature, maxTokens, modelName := m.temperature, m.maxTokens, m.model
	o := einomodel.GetCommonOptions(&einomodel.Options{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		Model:       &modelName,
	}, opts...)

	conf := &einomodel.Config{Model: *o.Model, Temperature: *o.Temperature, MaxTokens: *o.MaxTokens}
	if o.TopP != nil {
		conf.TopP = *o.TopP
	}
	conf.Stop = o.Stop

	ctx = callbacks.OnStart(ctx, &einomodel.CallbackInput{Messages: input, Config: conf})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	req := &api.ChatRequest{
		Model:    conf.Model,
		Messages: toOllamaMessages(input),
		Stream:   new(bool),
		Options:  requestOptions(conf, o.TopP != nil),
	}

	var resp api.ChatResponse
	err = m.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp.Message.Content += r.Message.Content
		if r.Done {
			resp.Done = true
			resp.Metrics = r.Metrics
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	usage := &schema.TokenUsage{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
	out = schema.AssistantMessage(resp.Message.Content, nil)
	out.ResponseMeta = &schema.ResponseMeta{Usage: usage}
	if resp.Done {
		out.ResponseMeta.FinishReason = "stop"
	}

	callbacks.OnEnd(ctx, &einomodel.CallbackOutput{
		Message: out,
		Config:  conf,
		TokenUsage: &einomodel.TokenUsage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		},
	})
	return out, nil
}

// Stream returns the full reply as a single-chunk stream.
func (m *OllamaChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *OllamaChatModel) GetType() string {
	return "Ollama"
}

// IsCallbacksEnabled reports that Generate fires its own callbacks.
func (m *OllamaChatModel) IsCallbacksEnabled() bool {
	return true
}

func requestOptions(conf *einomodel.Config, hasTopP bool) map[string]any {
	opts := map[string]any{"temperature": conf.Temperature}
	if conf.MaxTokens > 0 {
		opts["num_predict"] = conf.MaxTokens
	}
	if hasTopP {
		opts["top_p"] = conf.TopP
	}
	if len(conf.Stop) > 0 {
		opts["stop"] = conf.Stop
	}
	return opts
}

func toOllamaMessages(in []*schema.Message) []api.Message {
	out := make([]api.Message, 0, len(in))
	for _, msg := range in {
		if msg == nil {
			continue
		}
		out = append(out, api.Message{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

var _ einomodel.BaseChatModel = (*OllamaChatModel)(nil)
