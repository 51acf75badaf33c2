package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// DefaultContract is ingested when no contract text is available.
const DefaultContract = "Standard rate $100. Net 30."

// Chunk is a bounded slice of an ingested contract paired with its embedding.
type Chunk struct {
	ID     string    `json:"id"`
	Source string    `json:"source"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

// ContractDocument is one loaded contract before splitting.
type ContractDocument struct {
	Source string
	Text   string
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// KnowledgeStore persists chunks and answers nearest-neighbour queries.
type KnowledgeStore interface {
	// Reset drops every stored chunk of the collection.
	Reset(ctx context.Context) error

	// Add stores chunks that already carry their vectors.
	Add(ctx context.Context, chunks []Chunk) error

	// Replace swaps the whole collection for chunks. On error the previous
	// collection is left in place.
	Replace(ctx context.Context, chunks []Chunk) error

	// Search returns at most k chunks ordered by descending similarity.
	Search(ctx context.Context, vector []float32, k int) ([]ScoredChunk, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
}

// ScoredChunk pairs a chunk with its cosine similarity to a query.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// MessageGenerator is implemented by generators that can expose the full
// model message, including token usage.
type MessageGenerator interface {
	Generator
	GenerateMessage(ctx context.Context, prompt string) (*schema.Message, error)
	ModelName() string
}
