package prompts

import (
	"context"
	_ "embed"
)

//go:embed template/draft_prompt.txt
var draftPrompt string

// DraftPromptInput carries the fields of the vendor email prompt.
type DraftPromptInput struct {
	InvoiceID      string
	Vendor         string
	AnalysisReport string
}

// RenderDraftPrompt renders the vendor email prompt around the audit report.
func RenderDraftPrompt(ctx context.Context, in DraftPromptInput) (string, error) {
	return render(ctx, "draft", draftPrompt, map[string]any{
		"InvoiceID":      in.InvoiceID,
		"Vendor":         in.Vendor,
		"AnalysisReport": in.AnalysisReport,
	})
}
