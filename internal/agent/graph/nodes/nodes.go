package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/retriever"

	"github.com/contract-guardian/server/internal/agent/graph/prompts"
	"github.com/contract-guardian/server/internal/agent/model"
	errx "github.com/contract-guardian/server/internal/core/error"
	logx "github.com/contract-guardian/server/pkg/logger"
)

const (
	NodeRetrieve = "Retrieve"
	NodeAudit    = "Audit"
	NodeDraft    = "Draft"
)

// retrievalPhrase is appended to the vendor name to form the clause query.
const retrievalPhrase = "payment terms, agreed rates and expense policy"

// StepFunc mutates its own field of the audit state.
type StepFunc func(ctx context.Context, state *model.AuditState) error

// RetrievalQuery builds the similarity query for an invoice.
func RetrievalQuery(inv model.Invoice) string {
	return strings.TrimSpace(inv.Vendor + " " + retrievalPhrase)
}

// NewRetrieveNode fetches the topK most similar contract clauses.
func NewRetrieveNode(r retriever.Retriever, topK int) StepFunc {
	return func(ctx context.Context, state *model.AuditState) error {
		query := RetrievalQuery(state.Invoice)
		docs, err := r.Retrieve(ctx, query, retriever.WithTopK(topK))
		if err != nil {
			if errx.KindOf(err) == "" {
				err = errx.Retrieval(err)
			}
			return err
		}

		clauses := make([]string, 0, len(docs))
		for _, d := range docs {
			if d == nil {
				continue
			}
			clauses = append(clauses, d.Content)
		}
		state.ContractClauses = clauses

		logx.Debug().
			Str("invoice_id", state.Invoice.ID).
			Str("node", NodeRetrieve).
			Str("query", query).
			Int("clauses", len(clauses)).
			Msg("Contract clauses retrieved")
		return nil
	}
}

// NewAuditNode asks the model to judge the invoice against the clauses. The
// response is stored verbatim.
func NewAuditNode(gen model.Generator) StepFunc {
	return func(ctx context.Context, state *model.AuditState) error {
		prompt, err := prompts.RenderAuditPrompt(ctx, prompts.NewAuditPromptInput(state.Invoice, state.ContractClauses))
		if err != nil {
			return fmt.Errorf("render audit prompt: %w", err)
		}

		report, err := generate(ctx, gen, prompt, state, NodeAudit)
		if err != nil {
			return err
		}
		state.AnalysisReport = report
		return nil
	}
}

// NewDraftNode asks the model for a vendor email built around the audit report.
func NewDraftNode(gen model.Generator) StepFunc {
	return func(ctx context.Context, state *model.AuditState) error {
		prompt, err := prompts.RenderDraftPrompt(ctx, prompts.DraftPromptInput{
			InvoiceID:      state.Invoice.ID,
			Vendor:         state.Invoice.Vendor,
			AnalysisReport: state.AnalysisReport,
		})
		if err != nil {
			return fmt.Errorf("render draft prompt: %w", err)
		}

		email, err := generate(ctx, gen, prompt, state, NodeDraft)
		if err != nil {
			return err
		}
		state.EmailDraft = email
		return nil
	}
}
