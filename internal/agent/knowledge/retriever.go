package knowledge

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	"github.com/contract-guardian/server/internal/agent/model"
	errx "github.com/contract-guardian/server/internal/core/error"
)

// DefaultTopK is the number of clauses fetched per invoice.
const DefaultTopK = 3

// Retriever answers similarity queries over a knowledge store. It implements
// the Eino retriever component so it can be swapped for any other retriever.
type Retriever struct {
	store    model.KnowledgeStore
	embedder model.Embedder
	topK     int
}

// NewRetriever builds a retriever returning topK documents unless overridden
// per call with retriever.WithTopK.
func NewRetriever(store model.KnowledgeStore, embedder model.Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{store: store, embedder: embedder, topK: topK}
}

// TopK returns the default number of documents per query.
func (r *Retriever) TopK() int {
	return r.topK
}

// GetType names the component for Eino callbacks.
func (r *Retriever) GetType() string {
	return "ContractRetriever"
}

// Retrieve embeds the query and returns documents ordered by descending similarity.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	k := r.topK
	o := retriever.GetCommonOptions(&retriever.Options{TopK: &k}, opts...)
	if o.TopK != nil {
		k = *o.TopK
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errx.Retrieval(fmt.Errorf("embed query: %w", err))
	}
	hits, err := r.store.Search(ctx, vec, k)
	if err != nil {
		return nil, errx.Retrieval(fmt.Errorf("search: %w", err))
	}

	docs := make([]*schema.Document, 0, len(hits))
	for _, h := range hits {
		doc := &schema.Document{
			ID:       h.Chunk.ID,
			Content:  h.Chunk.Text,
			MetaData: map[string]any{"source": h.Chunk.Source},
		}
		docs = append(docs, doc.WithScore(h.Score))
	}
	return docs, nil
}

var _ retriever.Retriever = (*Retriever)(nil)
