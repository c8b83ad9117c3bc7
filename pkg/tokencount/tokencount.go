// Package tokencount estimates token counts for providers that don't report
// native usage figures, so every Completer can fill in AnswerResult token
// fields consistently.
package tokencount

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	mu      sync.Mutex
	encoder tokenizer.Codec
	ready   bool
)

func codec() (tokenizer.Codec, error) {
	mu.Lock()
	defer mu.Unlock()

	if ready {
		return encoder, nil
	}

	enc, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, err
	}
	encoder = enc
	ready = true
	return encoder, nil
}

// Count returns an estimated token count for text, falling back to a
// whitespace-based heuristic if the tokenizer cannot be loaded.
func Count(text string) int {
	enc, err := codec()
	if err != nil {
		return heuristicCount(text)
	}

	ids, _, err := enc.Encode(text)
	if err != nil {
		return heuristicCount(text)
	}
	return len(ids)
}

func heuristicCount(text string) int {
	// ~4 chars per token is a reasonable fallback for English prose.
	n := len(text) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}
