package batch

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/contract-guardian/server/internal/agent/graph"
	"github.com/contract-guardian/server/internal/agent/graph/parsers"
	"github.com/contract-guardian/server/internal/agent/model"
	logx "github.com/contract-guardian/server/pkg/logger"
)

// Options configures a batch run.
type Options struct {
	// Out receives the human-readable report. Defaults to stdout.
	Out io.Writer
	// FailFast aborts the batch on the first invoice error. Otherwise the
	// failure is recorded and the next invoice runs.
	FailFast bool
}

// Result is the outcome for one invoice.
type Result struct {
	Invoice model.Invoice
	State   *model.AuditState
	Verdict parsers.Verdict
	Err     error
}

// Summary aggregates a batch run.
type Summary struct {
	RunID        string
	Processed    int
	Failed       int
	Compliant    int
	NonCompliant int
	Unknown      int
	Usage        model.Usage
	Results      []Result
}

// OK reports whether every processed invoice completed.
func (s *Summary) OK() bool {
	return s.Failed == 0
}

// Runner drives the audit workflow over a list of invoices, one at a time.
type Runner struct {
	workflow graph.Runner
	printer  *Printer
	failFast bool
}

// NewRunner returns a Runner over workflow. Output goes to stdout unless
// opts.Out is set.
func NewRunner(workflow graph.Runner, opts Options) *Runner {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Runner{
		workflow: workflow,
		printer:  NewPrinter(out),
		failFast: opts.FailFast,
	}
}

// Run audits invoices in order. Cancellation is checked between invoices.
// The returned error is non-nil only when the batch was aborted.
func (r *Runner) Run(ctx context.Context, invoices []model.Invoice) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}
	log := logx.With().Str("run_id", summary.RunID).Logger()
	log.Info().Int("invoices", len(invoices)).Bool("fail_fast", r.failFast).Msg("batch started")

	for _, inv := range invoices {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("processed", summary.Processed).Msg("batch interrupted")
			r.printer.Summary(summary)
			return summary, err
		}

		res := r.auditOne(ctx, inv)
		summary.record(res)

		if res.Err != nil {
			log.Error().Err(res.Err).Str("invoice_id", inv.ID).Msg("invoice audit failed")
			if r.failFast {
				r.printer.Summary(summary)
				return summary, fmt.Errorf("invoice %s: %w", inv.ID, res.Err)
			}
			continue
		}
		log.Info().
			Str("invoice_id", inv.ID).
			Str("status", res.Verdict.Status).
			Str("action", res.Verdict.Action).
			Msg("invoice audited")
	}

	r.printer.Summary(summary)
	log.Info().
		Int("processed", summary.Processed).
		Int("failed", summary.Failed).
		Int("non_compliant", summary.NonCompliant).
		Msg("batch finished")
	return summary, nil
}

func (r *Runner) auditOne(ctx context.Context, inv model.Invoice) Result {
	r.printer.Header(inv)

	state, err := r.workflow.Invoke(ctx, inv)
	if err != nil {
		r.printer.Failure(inv, err)
		return Result{Invoice: inv, State: state, Err: err}
	}

	r.printer.Result(state)
	verdict, _ := parsers.ParseVerdict(state.AnalysisReport)
	return Result{Invoice: inv, State: state, Verdict: verdict}
}

func (s *Summary) record(res Result) {
	s.Processed++
	s.Results = append(s.Results, res)
	if res.State != nil {
		s.Usage.PromptTokens += res.State.Usage.PromptTokens
		s.Usage.CompletionTokens += res.State.Usage.CompletionTokens
		s.Usage.TotalCostUSD += res.State.Usage.TotalCostUSD
	}
	if res.Err != nil {
		s.Failed++
		return
	}
	switch res.Verdict.Status {
	case parsers.StatusCompliant:
		s.Compliant++
	case parsers.StatusNonCompliant:
		s.NonCompliant++
	default:
		s.Unknown++
	}
}
