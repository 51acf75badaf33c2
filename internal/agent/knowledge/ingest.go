package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/contract-guardian/server/internal/agent/model"
	errx "github.com/contract-guardian/server/internal/core/error"
	logx "github.com/contract-guardian/server/pkg/logger"
)

var contractExts = map[string]bool{".md": true, ".txt": true}

// LoadContracts reads a contract file, or every .md/.txt file of a directory
// in name order. A missing path yields no documents.
func LoadContracts(path string) ([]model.ContractDocument, error) {
	if path == "" {
		return nil, nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		logx.Warn().Str("path", path).Msg("contract path not found")
		return nil, nil
	}
	if err != nil {
		return nil, errx.Ingestion(fmt.Errorf("stat %s: %w", path, err))
	}

	if !info.IsDir() {
		doc, err := readContract(path)
		if err != nil {
			return nil, err
		}
		return []model.ContractDocument{doc}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errx.Ingestion(fmt.Errorf("read dir %s: %w", path, err))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var docs []model.ContractDocument
	for _, e := range entries {
		if e.IsDir() || !contractExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		doc, err := readContract(filepath.Join(path, e.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func readContract(path string) (model.ContractDocument, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.ContractDocument{}, errx.Ingestion(fmt.Errorf("read %s: %w", path, err))
	}
	return model.ContractDocument{Source: filepath.Base(path), Text: string(b)}, nil
}

// WithFallback returns docs, or the default contract when none has content.
func WithFallback(docs []model.ContractDocument) []model.ContractDocument {
	for _, d := range docs {
		if strings.TrimSpace(d.Text) != "" {
			return docs
		}
	}
	return []model.ContractDocument{{Source: "default", Text: model.DefaultContract}}
}

// Ingest splits and embeds every document, then replaces the store's
// collection with the result. Nothing is written until every chunk is
// embedded, so a failed ingest keeps the previous collection.
// It returns the number of chunks stored.
func Ingest(ctx context.Context, store model.KnowledgeStore, embedder model.Embedder, docs []model.ContractDocument, chunkSize int) (int, error) {
	docs = WithFallback(docs)

	var chunks []model.Chunk
	for _, d := range docs {
		for i, text := range Split(d.Text, chunkSize) {
			vec, err := embedder.Embed(ctx, text)
			if err != nil {
				return 0, errx.Ingestion(fmt.Errorf("embed %s chunk %d: %w", d.Source, i, err))
			}
			chunks = append(chunks, model.Chunk{
				ID:     fmt.Sprintf("%s#%d", d.Source, i),
				Source: d.Source,
				Text:   text,
				Vector: vec,
			})
		}
	}

	if err := store.Replace(ctx, chunks); err != nil {
		return 0, errx.Ingestion(fmt.Errorf("store chunks: %w", err))
	}

	logx.Info().Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("contracts ingested")
	return len(chunks), nil
}
