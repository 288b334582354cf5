// Package tokens estimates LLM token counts for chunk metadata.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/logger"
)

var (
	_ driven.TokenCounter = (*Counter)(nil)
	_ driven.TokenCounter = Approx{}
)

// Encoding is the tiktoken encoding used for estimates.
const Encoding = "cl100k_base"

// Counter counts tokens with tiktoken. The encoding is loaded on first use;
// if it cannot be loaded the counter falls back to Approx.
type Counter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewCounter creates a lazily initialised tiktoken counter.
func NewCounter() *Counter {
	return &Counter{}
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(Encoding)
		if err != nil {
			logger.Warn("tiktoken unavailable, using length estimate: %v", err)
			return
		}
		c.enc = enc
	})
	if c.enc == nil {
		return Approx{}.Count(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Approx estimates one token per four bytes.
type Approx struct{}

// Count returns len(text)/4.
func (Approx) Count(text string) int {
	return len(text) / 4
}
