package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/contract-guardian/server/internal/agent/batch"
	"github.com/contract-guardian/server/internal/agent/graph"
	"github.com/contract-guardian/server/internal/agent/graph/nodes"
	"github.com/contract-guardian/server/internal/agent/knowledge"
	"github.com/contract-guardian/server/internal/agent/model"
	"github.com/contract-guardian/server/internal/agent/source"
	errx "github.com/contract-guardian/server/internal/core/error"
	logx "github.com/contract-guardian/server/pkg/logger"
)

// ErrInvoicesFailed is returned by a run in which at least one invoice failed.
var ErrInvoicesFailed = errors.New("one or more invoices failed")

// services are the long-lived dependencies shared by every command.
type services struct {
	Generator model.Generator
	Embedder  model.Embedder
	Store     model.KnowledgeStore
	closers   []func() error
}

func (s *services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func newServices(ctx context.Context, cfg *AppConfig) (*services, error) {
	models, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{LLM: &cfg.LLM})
	if err != nil {
		return nil, errx.Config(err)
	}

	svc := &services{Generator: models.Generator, Embedder: models.Embedder}
	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc.Store = store
	if closer != nil {
		svc.closers = append(svc.closers, closer)
	}
	return svc, nil
}

// openStore returns the knowledge store for the configured backend and an
// optional closer for its connection.
func openStore(ctx context.Context, cfg *AppConfig) (model.KnowledgeStore, func() error, error) {
	log := logx.With().Str("backend", cfg.Knowledge.Backend).Str("collection", cfg.Knowledge.Collection).Logger()

	switch cfg.Knowledge.Backend {
	case model.BackendMemory:
		return knowledge.NewIndex(), nil, nil

	case model.BackendRedis:
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, nil, errx.WrapRedis(fmt.Errorf("connect redis: %w", err))
		}
		store, err := knowledge.OpenRedisStore(ctx, rdb, cfg.Knowledge.Collection)
		if err != nil {
			rdb.Close()
			return nil, nil, err
		}
		log.Debug().Msg("Connected to Redis successfully")
		return store, rdb.Close, nil

	case model.BackendSQLite:
		db, err := knowledge.OpenSQLite(cfg.Knowledge.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := knowledge.OpenSQLiteStore(ctx, db, cfg.Knowledge.Collection)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Debug().Str("path", cfg.Knowledge.SQLitePath).Msg("SQLite knowledge store opened")
		return store, db.Close, nil

	default:
		return nil, nil, errx.Config(fmt.Errorf("unknown knowledge backend %q", cfg.Knowledge.Backend))
	}
}

// ingestContracts rebuilds the knowledge collection from the contract path.
func ingestContracts(ctx context.Context, cfg *AppConfig, svc *services) (int, error) {
	docs, err := knowledge.LoadContracts(cfg.Knowledge.ContractPath)
	if err != nil {
		return 0, err
	}
	return knowledge.Ingest(ctx, svc.Store, svc.Embedder, docs, cfg.Knowledge.ChunkSize)
}

// ensureKnowledge ingests unless a persistent backend already holds chunks.
func ensureKnowledge(ctx context.Context, cfg *AppConfig, svc *services) error {
	if cfg.Knowledge.Backend != model.BackendMemory {
		n, err := svc.Store.Count(ctx)
		if err != nil {
			return errx.Ingestion(err)
		}
		if n > 0 {
			logx.Info().Int("chunks", n).Str("collection", cfg.Knowledge.Collection).Msg("reusing ingested contracts")
			return nil
		}
	}
	_, err := ingestContracts(ctx, cfg, svc)
	return err
}

// loadInvoices reads the CSV at path, or the built-in samples when path is empty.
func loadInvoices(path string) ([]model.Invoice, error) {
	if path == "" {
		return source.Samples(), nil
	}
	return source.LoadCSV(path)
}

// runAudit executes one full batch cycle.
func runAudit(ctx context.Context, cfg *AppConfig, svc *services, out io.Writer) (*batch.Summary, error) {
	if err := ensureKnowledge(ctx, cfg, svc); err != nil {
		return nil, err
	}

	invoices, err := loadInvoices(cfg.Batch.InvoicesPath)
	if err != nil {
		return nil, err
	}

	pipeline, err := graph.BuildAuditGraph(graph.Config{
		Retriever: knowledge.NewRetriever(svc.Store, svc.Embedder, cfg.Knowledge.TopK),
		Generator: svc.Generator,
		TopK:      cfg.Knowledge.TopK,
	})
	if err != nil {
		return nil, errx.New(err, errx.KindWorkflow, "cannot build audit pipeline")
	}

	summary, err := batch.NewRunner(pipeline, batch.Options{Out: out, FailFast: cfg.Batch.FailFast}).Run(ctx, invoices)
	if err != nil {
		return summary, err
	}
	if !summary.OK() {
		return summary, fmt.Errorf("%w: %d of %d", ErrInvoicesFailed, summary.Failed, summary.Processed)
	}
	return summary, nil
}
