package nodes

import (
	"context"

	"github.com/contract-guardian/server/internal/agent/model"
	errx "github.com/contract-guardian/server/internal/core/error"
	logx "github.com/contract-guardian/server/pkg/logger"
)

// generate invokes the model and, when the generator exposes full messages,
// accumulates token usage into the state.
func generate(ctx context.Context, gen model.Generator, prompt string, state *model.AuditState, node string) (string, error) {
	mg, ok := gen.(model.MessageGenerator)
	if !ok {
		text, err := gen.Generate(ctx, prompt)
		if err != nil {
			return "", asGeneration(err)
		}
		return text, nil
	}

	out, err := mg.GenerateMessage(ctx, prompt)
	if err != nil {
		return "", asGeneration(err)
	}
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		usage := out.ResponseMeta.Usage
		state.Usage.Add(usage, mg.ModelName())
		logx.Debug().
			Str("invoice_id", state.Invoice.ID).
			Str("node", node).
			Str("model", mg.ModelName()).
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Float64("total_cost_usd", state.Usage.TotalCostUSD).
			Msg("LLM usage")
	}
	return out.Content, nil
}

func asGeneration(err error) error {
	if errx.KindOf(err) == "" {
		return errx.Generation(err)
	}
	return err
}
