package cli

import (
	"bytes"
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contract-guardian/server/internal/agent/knowledge"
	"github.com/contract-guardian/server/internal/agent/model"
	"github.com/contract-guardian/server/internal/core"
	errx "github.com/contract-guardian/server/internal/core/error"
)

type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 256)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%256]++
	}
	return vec, nil
}

// cannedGenerator fails for prompts mentioning failOn.
type cannedGenerator struct {
	failOn string
	calls  int
}

func (g *cannedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	if g.failOn != "" && strings.Contains(prompt, g.failOn) {
		return "", assert.AnError
	}
	if strings.Contains(prompt, "Commercial Assurance Auditor") {
		return "STATUS: NON-COMPLIANT\nISSUE: Over the agreed rate.\nACTION: DISPUTE", nil
	}
	return "Dear vendor, please send a corrected invoice.", nil
}

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LLM_PROVIDER", "LLM_BASE_URL", "LLM_MODEL", "EMBEDDING_MODEL", "LLM_MAX_TOKENS", "LLM_TIMEOUT",
		"GEMINI_API_KEY", "CONTRACT_PATH", "CHUNK_SIZE", "RETRIEVE_TOP_K", "KNOWLEDGE_BACKEND",
		"KNOWLEDGE_COLLECTION", "SQLITE_PATH", "REDIS_URL", "INVOICES_PATH", "BATCH_FAIL_FAST", "ENVIRONMENT",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, model.ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
	assert.Equal(t, "llama3.2", cfg.LLM.Model)
	assert.Equal(t, float32(0), cfg.LLM.Temperature)
	assert.Equal(t, 1000, cfg.Knowledge.ChunkSize)
	assert.Equal(t, 3, cfg.Knowledge.TopK)
	assert.Equal(t, model.BackendMemory, cfg.Knowledge.Backend)
	assert.False(t, cfg.Batch.FailFast)
	assert.Equal(t, core.Development, cfg.Env())
}

func TestLoadConfig_EnvFile(t *testing.T) {
	setBaseEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RETRIEVE_TOP_K=5\nKNOWLEDGE_BACKEND=sqlite\nSQLITE_PATH=/tmp/g.db\nENVIRONMENT=prod\n"), 0o644))
	t.Cleanup(func() {
		for _, k := range []string{"RETRIEVE_TOP_K", "KNOWLEDGE_BACKEND", "SQLITE_PATH", "ENVIRONMENT"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Knowledge.TopK)
	assert.Equal(t, model.BackendSQLite, cfg.Knowledge.Backend)
	assert.Equal(t, "/tmp/g.db", cfg.Knowledge.SQLitePath)
	assert.Equal(t, core.Production, cfg.Env())
}

func TestValidate(t *testing.T) {
	valid := func() *AppConfig {
		return &AppConfig{
			LLM: model.LLMConfig{
				Provider:       model.ProviderOllama,
				BaseURL:        "http://localhost:11434",
				Model:          "llama3.2",
				EmbeddingModel: "llama3.2",
				MaxTokens:      1024,
			},
			Knowledge: model.KnowledgeConfig{
				ChunkSize:  1000,
				TopK:       3,
				Backend:    model.BackendMemory,
				Collection: "contracts",
				SQLitePath: "guardian.db",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*AppConfig) {}},
		{name: "unknown provider", mutate: func(c *AppConfig) { c.LLM.Provider = "openai" }, wantErr: "LLM_PROVIDER"},
		{name: "gemini without key", mutate: func(c *AppConfig) { c.LLM.Provider = model.ProviderGemini }, wantErr: "GEMINI_API_KEY"},
		{name: "gemini with key", mutate: func(c *AppConfig) { c.LLM.Provider = model.ProviderGemini; c.LLM.APIKey = "k" }},
		{name: "zero chunk size", mutate: func(c *AppConfig) { c.Knowledge.ChunkSize = 0 }, wantErr: "CHUNK_SIZE"},
		{name: "negative top k", mutate: func(c *AppConfig) { c.Knowledge.TopK = -1 }, wantErr: "RETRIEVE_TOP_K"},
		{name: "unknown backend", mutate: func(c *AppConfig) { c.Knowledge.Backend = "chroma" }, wantErr: "KNOWLEDGE_BACKEND"},
		{name: "redis without url", mutate: func(c *AppConfig) { c.Knowledge.Backend = model.BackendRedis }, wantErr: "REDIS_URL"},
		{name: "sqlite without path", mutate: func(c *AppConfig) {
			c.Knowledge.Backend = model.BackendSQLite
			c.Knowledge.SQLitePath = ""
		}, wantErr: "SQLITE_PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errx.KindConfig, errx.KindOf(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func testConfig(t *testing.T) *AppConfig {
	t.Helper()
	dir := t.TempDir()
	contract := "Rates: senior engineering is billed at $1,000 per day.\n\nTravel over $500 requires pre-approval."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "msa.md"), []byte(contract), 0o644))

	return &AppConfig{
		Knowledge: model.KnowledgeConfig{
			ContractPath: dir,
			ChunkSize:    1000,
			TopK:         3,
			Backend:      model.BackendMemory,
			Collection:   "contracts",
		},
	}
}

func TestOpenStore_Backends(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	store, closer, err := openStore(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.IsType(t, &knowledge.Index{}, store)

	cfg.Knowledge.Backend = model.BackendSQLite
	cfg.Knowledge.SQLitePath = filepath.Join(t.TempDir(), "guardian.db")
	store, closer, err = openStore(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &knowledge.SQLiteStore{}, store)
	require.NoError(t, closer())

	mr := miniredis.RunT(t)
	cfg.Knowledge.Backend = model.BackendRedis
	cfg.Redis.URL = "redis://" + mr.Addr()
	store, closer, err = openStore(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &knowledge.RedisStore{}, store)
	require.NoError(t, closer())
}

func TestOpenStore_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Knowledge.Backend = model.BackendRedis
	cfg.Redis.URL = "redis://127.0.0.1:1"
	cfg.Redis.DialTimeout = 1

	_, _, err := openStore(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, errx.KindStorage, errx.KindOf(err))
}

func TestRunAudit_Samples(t *testing.T) {
	cfg := testConfig(t)
	svc := &services{Generator: &cannedGenerator{}, Embedder: hashEmbedder{}, Store: knowledge.NewIndex()}
	var out bytes.Buffer

	summary, err := runAudit(context.Background(), cfg, svc, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.NonCompliant)

	n, err := svc.Store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	text := out.String()
	assert.Contains(t, text, "AUDIT REPORT: INV-2024-001")
	assert.Contains(t, text, "AUDIT REPORT: INV-2024-002")
	assert.Contains(t, text, "Dear vendor, please send a corrected invoice.")
}

func TestRunAudit_CSVWithFailureReportsError(t *testing.T) {
	cfg := testConfig(t)
	csvPath := filepath.Join(t.TempDir(), "invoices.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("invoice_id,vendor,item,amount\nINV-A,Acme,Widgets,10\nINV-B,Broken Co,Gadgets,20\n"), 0o644))
	cfg.Batch.InvoicesPath = csvPath

	gen := &cannedGenerator{failOn: "Broken Co"}
	svc := &services{Generator: gen, Embedder: hashEmbedder{}, Store: knowledge.NewIndex()}

	summary, err := runAudit(context.Background(), cfg, svc, &bytes.Buffer{})
	require.ErrorIs(t, err, ErrInvoicesFailed)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
}

func TestEnsureKnowledge_ReusesPersistentCollection(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Knowledge.Backend = model.BackendSQLite

	db, err := knowledge.OpenSQLite(filepath.Join(t.TempDir(), "guardian.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store, err := knowledge.OpenSQLiteStore(ctx, db, cfg.Knowledge.Collection)
	require.NoError(t, err)

	svc := &services{Embedder: hashEmbedder{}, Store: store}
	require.NoError(t, store.Add(ctx, []model.Chunk{{ID: "x#0", Source: "x", Text: "kept", Vector: []float32{1, 0}}}))

	require.NoError(t, ensureKnowledge(ctx, cfg, svc))
	hits, err := store.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "kept", hits[0].Chunk.Text)
}

func TestIngestContracts_EmptyPathFallsBack(t *testing.T) {
	cfg := testConfig(t)
	cfg.Knowledge.ContractPath = filepath.Join(t.TempDir(), "none")
	svc := &services{Embedder: hashEmbedder{}, Store: knowledge.NewIndex()}

	n, err := ingestContracts(context.Background(), cfg, svc)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["ingest"])

	run, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)
	assert.NotNil(t, run.Flags().Lookup("invoices"))
	assert.NotNil(t, run.Flags().Lookup("fail-fast"))
}

func TestRootCmd_InvalidConfigFails(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("KNOWLEDGE_BACKEND", "chroma")

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"ingest", "--env-file", ""})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Equal(t, errx.KindConfig, errx.KindOf(err))
}
