package graph

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
)

var errModelDown = errors.New("model backend unavailable")

// fakeRetriever records every query and the requested top-k.
type fakeRetriever struct {
	docs    []string
	err     error
	queries []string
	topKs   []int
}

func (r *fakeRetriever) Retrieve(_ context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	o := retriever.GetCommonOptions(&retriever.Options{}, opts...)
	k := -1
	if o.TopK != nil {
		k = *o.TopK
	}
	r.queries = append(r.queries, query)
	r.topKs = append(r.topKs, k)
	if r.err != nil {
		return nil, r.err
	}

	n := len(r.docs)
	if k >= 0 && k < n {
		n = k
	}
	out := make([]*schema.Document, 0, n)
	for _, d := range r.docs[:n] {
		out = append(out, &schema.Document{Content: d})
	}
	return out, nil
}

// scriptedGenerator answers audit prompts with auditReply and every other
// prompt with draftReply. failOn names the prompt kind that errors.
type scriptedGenerator struct {
	mu         sync.Mutex
	auditReply string
	draftReply string
	failOn     string
	prompts    []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)

	kind := "draft"
	if strings.Contains(prompt, "Commercial Assurance Auditor") {
		kind = "audit"
	}
	if g.failOn == kind {
		return "", errModelDown
	}
	if kind == "audit" {
		return g.auditReply, nil
	}
	return g.draftReply, nil
}

// usageGenerator reports token usage like a real chat model.
type usageGenerator struct {
	scriptedGenerator
	modelName string
}

func (g *usageGenerator) GenerateMessage(ctx context.Context, prompt string) (*schema.Message, error) {
	text, err := g.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	msg := schema.AssistantMessage(text, nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{
		PromptTokens:     1000,
		CompletionTokens: 200,
		TotalTokens:      1200,
	}}
	return msg, nil
}

func (g *usageGenerator) ModelName() string {
	return g.modelName
}

// wordEmbedder hashes lowercase words into a bag-of-words vector.
type wordEmbedder struct{}

func (wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 1024)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%1024]++
	}
	return vec, nil
}
