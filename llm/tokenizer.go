package llm

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding is used for models tiktoken does not know, such as
// non-OpenAI providers.
const fallbackEncoding = "cl100k_base"

// TokenCounter estimates how many tokens a text occupies
type TokenCounter interface {
	Count(text string) (int, error)
}

// TiktokenCounter counts tokens with a tiktoken encoding. The encoding is
// resolved lazily because it may have to be downloaded on first use.
type TiktokenCounter struct {
	model string

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// NewTiktokenCounter creates a counter for the given model
func NewTiktokenCounter(model string) *TiktokenCounter {
	return &TiktokenCounter{model: model}
}

func (t *TiktokenCounter) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(t.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding(fallbackEncoding)
		}
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding for %s: %w", t.model, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

// Count returns the number of tokens in text
func (t *TiktokenCounter) Count(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

// CountMessages sums the token estimate of every message content
func CountMessages(counter TokenCounter, msgs []Message) (int, error) {
	total := 0
	for _, msg := range msgs {
		n, err := counter.Count(msg.Content)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
