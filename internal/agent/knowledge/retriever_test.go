package knowledge

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contract-guardian/server/internal/agent/model"
	errx "github.com/contract-guardian/server/internal/core/error"
)

func seededRetriever(t *testing.T, n int) (*Retriever, *wordEmbedder) {
	t.Helper()
	ctx := context.Background()
	emb := &wordEmbedder{}
	store := NewIndex()

	var docs []model.ContractDocument
	for i := 0; i < n; i++ {
		docs = append(docs, model.ContractDocument{
			Source: fmt.Sprintf("clause-%d.md", i),
			Text:   fmt.Sprintf("clause %d covers topic%d", i, i),
		})
	}
	_, err := Ingest(ctx, store, emb, docs, 1000)
	require.NoError(t, err)
	return NewRetriever(store, emb, 0), emb
}

func TestRetriever_DefaultTopKIsThree(t *testing.T) {
	r, _ := seededRetriever(t, 6)
	assert.Equal(t, 3, r.TopK())

	docs, err := r.Retrieve(context.Background(), "clause topic2")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "clause 2 covers topic2", docs[0].Content)
	assert.Equal(t, "clause-2.md", docs[0].MetaData["source"])
	assert.GreaterOrEqual(t, docs[0].Score(), docs[1].Score())
	assert.GreaterOrEqual(t, docs[1].Score(), docs[2].Score())
}

func TestRetriever_WithTopKOverride(t *testing.T) {
	r, _ := seededRetriever(t, 6)
	docs, err := r.Retrieve(context.Background(), "clause", retriever.WithTopK(5))
	require.NoError(t, err)
	assert.Len(t, docs, 5)
}

func TestRetriever_FewerChunksThanK(t *testing.T) {
	r, _ := seededRetriever(t, 2)
	docs, err := r.Retrieve(context.Background(), "clause")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestRetriever_EmbedFailureIsRetrievalError(t *testing.T) {
	r := NewRetriever(NewIndex(), &wordEmbedder{err: errEmbedDown}, 3)
	_, err := r.Retrieve(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, errx.KindRetrieval, errx.KindOf(err))
	assert.ErrorIs(t, err, errEmbedDown)
}
