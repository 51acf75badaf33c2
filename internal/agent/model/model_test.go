package model

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInvoice_AmountString(t *testing.T) {
	inv := Invoice{Amount: decimal.RequireFromString("12000")}
	assert.Equal(t, "12000.00", inv.AmountString())

	inv.Amount = decimal.RequireFromString("0.125")
	assert.Equal(t, "0.13", inv.AmountString())
}

func TestNewAuditState(t *testing.T) {
	inv := Invoice{ID: "INV-1"}
	s := NewAuditState(inv)
	assert.Equal(t, StageStart, s.Stage)
	assert.Equal(t, inv, s.Invoice)
	assert.Empty(t, s.Transitions)
	assert.Empty(t, s.AnalysisReport)
}

func TestUsage_Add(t *testing.T) {
	var u Usage
	u.Add(&schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000}, "gemini-2.5-flash")
	assert.Equal(t, 1_000_000, u.PromptTokens)
	assert.InDelta(t, 2.80, u.TotalCostUSD, 1e-9)

	u.Add(&schema.TokenUsage{PromptTokens: 500, CompletionTokens: 100}, "llama3.2")
	assert.Equal(t, 1_000_500, u.PromptTokens)
	assert.Equal(t, 1_000_100, u.CompletionTokens)
	assert.InDelta(t, 2.80, u.TotalCostUSD, 1e-9)

	u.Add(nil, "gemini-2.5-flash")
	assert.Equal(t, 1_000_500, u.PromptTokens)
}

func TestComputeCost(t *testing.T) {
	in, out, total := ComputeCost(&schema.TokenUsage{PromptTokens: 2_000_000, CompletionTokens: 500_000}, ResolvePricing("gemini-2.0-flash"))
	assert.InDelta(t, 0.20, in, 1e-9)
	assert.InDelta(t, 0.20, out, 1e-9)
	assert.InDelta(t, 0.40, total, 1e-9)

	assert.Equal(t, Pricing{}, ResolvePricing("unknown"))
}
