package model

// Stage is a position in the audit state machine.
type Stage string

const (
	StageStart     Stage = "START"
	StageRetrieved Stage = "RETRIEVED"
	StageAudited   Stage = "AUDITED"
	StageDrafted   Stage = "DRAFTED"
	StageDone      Stage = "DONE"
)

// AuditState stores per-invoice state threaded through the pipeline steps.
// Concurrency model:
//   - One state is created per invoice and processed to completion before
//     the next invoice starts.
//   - Each step writes only its own output field; Stage and Transitions are
//     maintained by the pipeline, never by the steps.
type AuditState struct {
	Invoice         Invoice  `json:"invoice"`
	ContractClauses []string `json:"contract_clauses"` // set by retrieve, read by audit
	AnalysisReport  string   `json:"analysis_report"`  // set by audit, read by draft
	EmailDraft      string   `json:"email_draft"`      // set by draft

	Stage       Stage   `json:"stage"`
	Transitions []Stage `json:"transitions"`

	// Accumulated model usage across the audit and draft calls.
	Usage Usage `json:"usage"`
}

// NewAuditState returns a fresh state for the invoice.
func NewAuditState(inv Invoice) *AuditState {
	return &AuditState{
		Invoice: inv,
		Stage:   StageStart,
	}
}
