package prompts

import (
	"context"
	_ "embed"

	"github.com/contract-guardian/server/internal/agent/model"
)

//go:embed template/audit_prompt.txt
var auditPrompt string

// AuditPromptInput carries every field the audit prompt embeds.
type AuditPromptInput struct {
	Clauses   []string
	InvoiceID string
	Vendor    string
	Date      string
	Item      string
	Amount    string
	Currency  string
	Status    string
	Metadata  string
}

// NewAuditPromptInput copies the invoice fields and retrieved clauses.
func NewAuditPromptInput(inv model.Invoice, clauses []string) AuditPromptInput {
	return AuditPromptInput{
		Clauses:   clauses,
		InvoiceID: inv.ID,
		Vendor:    inv.Vendor,
		Date:      orUnknown(inv.Date),
		Item:      inv.Item,
		Amount:    inv.AmountString(),
		Currency:  inv.Currency,
		Status:    inv.Status,
		Metadata:  inv.Metadata,
	}
}

// RenderAuditPrompt renders the compliance audit prompt.
func RenderAuditPrompt(ctx context.Context, in AuditPromptInput) (string, error) {
	return render(ctx, "audit", auditPrompt, map[string]any{
		"Clauses":   in.Clauses,
		"InvoiceID": in.InvoiceID,
		"Vendor":    in.Vendor,
		"Date":      in.Date,
		"Item":      in.Item,
		"Amount":    in.Amount,
		"Currency":  in.Currency,
		"Status":    in.Status,
		"Metadata":  in.Metadata,
	})
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
