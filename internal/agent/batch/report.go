package batch

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/contract-guardian/server/internal/agent/graph/parsers"
	"github.com/contract-guardian/server/internal/agent/model"
)

const ruleWidth = 40

// Printer writes per-invoice results and the batch summary.
type Printer struct {
	out     io.Writer
	title   lipgloss.Style
	rule    lipgloss.Style
	label   lipgloss.Style
	pass    lipgloss.Style
	fail    lipgloss.Style
	unknown lipgloss.Style
}

// NewPrinter styles output for w. Colours are dropped when w is not a terminal.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		out:     w,
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#F9E2AF")),
		rule:    r.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		label:   r.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		pass:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#A6E3A1")),
		fail:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#F38BA8")),
		unknown: r.NewStyle().Foreground(lipgloss.Color("#CDD6F4")),
	}
}

// Header prints the invoice fields before the workflow runs.
func (p *Printer) Header(inv model.Invoice) {
	date := inv.Date
	if date == "" {
		date = "Unknown"
	}
	amount := inv.AmountString()
	if inv.Currency != "" {
		amount += " " + inv.Currency
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.rule.Render(strings.Repeat("=", ruleWidth)))
	fmt.Fprintln(p.out, p.title.Render("AUDIT REPORT: "+inv.ID))
	fmt.Fprintln(p.out, p.rule.Render(strings.Repeat("=", ruleWidth)))
	p.field("Vendor", inv.Vendor)
	p.field("Date", date)
	p.field("Item", inv.Item)
	p.field("Amount", amount)
	fmt.Fprintln(p.out, p.rule.Render(strings.Repeat("-", ruleWidth)))
}

// Result prints the audit report and the email draft verbatim.
func (p *Printer) Result(state *model.AuditState) {
	fmt.Fprintln(p.out, p.label.Render("Audit:"))
	fmt.Fprintln(p.out, state.AnalysisReport)
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.label.Render("Email draft:"))
	fmt.Fprintln(p.out, state.EmailDraft)
}

// Failure prints the error that stopped an invoice.
func (p *Printer) Failure(inv model.Invoice, err error) {
	fmt.Fprintln(p.out, p.fail.Render("FAILED: "+inv.ID)+" "+err.Error())
}

// Summary prints the closing counts for a run.
func (p *Printer) Summary(s *Summary) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.rule.Render(strings.Repeat("=", ruleWidth)))
	fmt.Fprintf(p.out, "Run %s: %d processed, %d failed\n", s.RunID, s.Processed, s.Failed)
	fmt.Fprintf(p.out, "%s %d  %s %d  %s %d\n",
		p.pass.Render(parsers.StatusCompliant), s.Compliant,
		p.fail.Render(parsers.StatusNonCompliant), s.NonCompliant,
		p.unknown.Render(parsers.StatusUnknown), s.Unknown)
	if s.Usage.PromptTokens > 0 || s.Usage.CompletionTokens > 0 {
		fmt.Fprintf(p.out, "Tokens: %d prompt, %d completion (≈ $%.4f)\n",
			s.Usage.PromptTokens, s.Usage.CompletionTokens, s.Usage.TotalCostUSD)
	}
}

func (p *Printer) field(name, value string) {
	fmt.Fprintf(p.out, "%s %s\n", p.label.Render(fmt.Sprintf("%-8s", name+":")), value)
}
