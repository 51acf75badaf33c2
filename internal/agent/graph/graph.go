package graph

import (
	"context"
	"errors"
	"fmt"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/retriever"

	"github.com/contract-guardian/server/internal/agent/graph/nodes"
	"github.com/contract-guardian/server/internal/agent/graph/observers"
	"github.com/contract-guardian/server/internal/agent/model"
	errx "github.com/contract-guardian/server/internal/core/error"
	logx "github.com/contract-guardian/server/pkg/logger"
)

// PipelineName identifies the audit workflow in logs.
const PipelineName = "InvoiceAudit"

// DefaultTopK is the number of contract clauses retrieved per invoice.
const DefaultTopK = 3

// ErrOutOfOrder is returned when a step runs from an unexpected stage.
var ErrOutOfOrder = errors.New("workflow step out of order")

// Runner executes the audit workflow for one invoice.
type Runner interface {
	Invoke(ctx context.Context, inv model.Invoice) (*model.AuditState, error)
}

// Config holds everything needed to compose the audit pipeline end-to-end.
type Config struct {
	Retriever retriever.Retriever
	Generator model.Generator
	TopK      int
	// Callbacks observe prompt renders and model calls. Nil selects the
	// default logging observers; an empty non-nil slice disables them.
	Callbacks []einocb.Handler
}

// Step is one transition of the state machine.
type Step struct {
	Name string
	From model.Stage
	To   model.Stage
	Run  nodes.StepFunc
}

// Pipeline applies its steps in order to a fresh state per invoice.
type Pipeline struct {
	steps    []Step
	handlers []einocb.Handler
}

// BuildAuditGraph composes retrieve → audit → draft and returns a Runner.
func BuildAuditGraph(cfg Config) (*Pipeline, error) {
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("retriever is nil")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is nil")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	handlers := cfg.Callbacks
	if handlers == nil {
		handlers = []einocb.Handler{observers.NewAllCallbacks()}
	}

	p := newPipeline([]Step{
		{Name: nodes.NodeRetrieve, From: model.StageStart, To: model.StageRetrieved, Run: nodes.NewRetrieveNode(cfg.Retriever, topK)},
		{Name: nodes.NodeAudit, From: model.StageRetrieved, To: model.StageAudited, Run: nodes.NewAuditNode(cfg.Generator)},
		{Name: nodes.NodeDraft, From: model.StageAudited, To: model.StageDrafted, Run: nodes.NewDraftNode(cfg.Generator)},
	}, handlers)

	logx.Debug().Int("top_k", topK).Msg("Audit pipeline built successfully")
	return p, nil
}

func newPipeline(steps []Step, handlers []einocb.Handler) *Pipeline {
	return &Pipeline{steps: steps, handlers: handlers}
}

// Invoke runs every step for the invoice. On failure the partially populated
// state is returned with the error.
func (p *Pipeline) Invoke(ctx context.Context, inv model.Invoice) (*model.AuditState, error) {
	state := model.NewAuditState(inv)
	if len(p.handlers) > 0 {
		// no RunInfo here: each prompt and model call sets its own component
		ctx = einocb.InitCallbacks(ctx, nil, p.handlers...)
	}

	for _, step := range p.steps {
		if state.Stage != step.From {
			err := fmt.Errorf("%w: %s expects %s, state is %s", ErrOutOfOrder, step.Name, step.From, state.Stage)
			return state, errx.New(err, errx.KindWorkflow, "invalid workflow transition")
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		if err := step.Run(ctx, state); err != nil {
			logx.Error().Err(err).
				Str("pipeline", PipelineName).
				Str("invoice_id", inv.ID).
				Str("node", step.Name).
				Str("stage", string(state.Stage)).
				Msg("Audit step failed")
			return state, fmt.Errorf("%s step: %w", step.Name, err)
		}

		state.Stage = step.To
		state.Transitions = append(state.Transitions, step.To)
		logx.Debug().Str("pipeline", PipelineName).Str("invoice_id", inv.ID).Str("stage", string(step.To)).Msg("Audit transition")
	}

	state.Stage = model.StageDone
	state.Transitions = append(state.Transitions, model.StageDone)
	return state, nil
}

var _ Runner = (*Pipeline)(nil)
