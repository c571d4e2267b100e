package llm

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates how many tokens a prompt will cost.
type TokenCounter interface {
	Count(text string) int
}

// TokenCounterFunc adapts a function to TokenCounter.
type TokenCounterFunc func(string) int

func (f TokenCounterFunc) Count(text string) int { return f(text) }

// EstimateTokens is the ~4 characters per token heuristic used when no
// tokenizer is available.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// tiktokenCounter loads the BPE for model lazily on first use. Loading may
// need network access the first time; on failure it falls back to
// EstimateTokens for the rest of the process.
type tiktokenCounter struct {
	model string
	once  sync.Once
	enc   *tiktoken.Tiktoken
}

// NewTiktokenCounter returns a counter for model, falling back to the
// cl100k_base encoding for names tiktoken does not know (e.g. Azure
// deployment names).
func NewTiktokenCounter(model string) TokenCounter {
	return &tiktokenCounter{model: model}
}

func (t *tiktokenCounter) Count(text string) int {
	t.once.Do(t.load)
	if t.enc == nil {
		return EstimateTokens(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

func (t *tiktokenCounter) load() {
	if enc, err := tiktoken.EncodingForModel(t.model); err == nil {
		t.enc = enc
		return
	}
	if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		t.enc = enc
	}
}
