package knowledge

import (
	"container/heap"
	"context"
	"math"
	"sync"

	"github.com/contract-guardian/server/internal/agent/model"
	logx "github.com/contract-guardian/server/pkg/logger"
)

// Index is an in-process exact cosine index. It is the search side of every
// store backend.
type Index struct {
	mu     sync.RWMutex
	chunks []model.Chunk // vectors normalised on insert
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Reset drops every chunk.
func (ix *Index) Reset(_ context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.chunks = nil
	return nil
}

// Add stores chunks, normalising their vectors so dot product equals cosine similarity.
func (ix *Index) Add(_ context.Context, chunks []model.Chunk) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, c := range chunks {
		c.Vector = normalize(c.Vector)
		ix.chunks = append(ix.chunks, c)
	}
	return nil
}

// Replace swaps the stored chunks for chunks in one step.
func (ix *Index) Replace(_ context.Context, chunks []model.Chunk) error {
	next := make([]model.Chunk, 0, len(chunks))
	for _, c := range chunks {
		c.Vector = normalize(c.Vector)
		next = append(next, c)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.chunks = next
	return nil
}

// Count returns the number of stored chunks.
func (ix *Index) Count(_ context.Context) (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks), nil
}

// Search returns the top-k chunks by cosine similarity, best first. Ties keep
// insertion order.
func (ix *Index) Search(_ context.Context, vector []float32, k int) ([]model.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	query := normalize(vector)

	ix.mu.RLock()
	h := &minHeap{}
	skipped, storedDims := 0, 0
	for i, c := range ix.chunks {
		if len(c.Vector) != len(query) {
			skipped++
			storedDims = len(c.Vector)
			continue
		}
		e := entry{pos: i, score: dotProduct(query, c.Vector)}
		if h.Len() < k {
			heap.Push(h, e)
		} else if e.better((*h)[0]) {
			(*h)[0] = e
			heap.Fix(h, 0)
		}
	}

	results := make([]model.ScoredChunk, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		e := heap.Pop(h).(entry)
		results[i] = model.ScoredChunk{Chunk: ix.chunks[e.pos], Score: e.score}
	}
	total := len(ix.chunks)
	ix.mu.RUnlock()

	if skipped > 0 {
		// usually a collection embedded with a different EMBEDDING_MODEL
		logx.Warn().
			Int("query_dims", len(query)).
			Int("stored_dims", storedDims).
			Int("skipped", skipped).
			Int("chunks", total).
			Msg("embedding dimension mismatch, re-run ingest")
	}
	return results, nil
}

type entry struct {
	pos   int
	score float64
}

// better orders by score, then by earlier position.
func (e entry) better(o entry) bool {
	if e.score != o.score {
		return e.score > o.score
	}
	return e.pos < o.pos
}

// minHeap keeps the worst retained entry at the root.
type minHeap []entry

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h[j].better(h[i]) }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(entry)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	norm = math.Sqrt(norm)
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

var _ model.KnowledgeStore = (*Index)(nil)
