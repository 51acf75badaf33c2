package knowledge

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"unicode"
)

const testDims = 1024

// wordEmbedder hashes lowercase words into a fixed bag-of-words vector so
// texts sharing words score higher.
type wordEmbedder struct {
	calls []string
	err   error
}

func (e *wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls = append(e.calls, text)
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, testDims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%testDims]++
	}
	return vec, nil
}

var errEmbedDown = errors.New("embedding backend unreachable")
