package router

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator approximates prompt token counts so oversized prompts can be
// flagged against the selected model's context window. Gateway models use
// many different tokenizers; cl100k_base is close enough for a warning.
type Estimator struct {
	tokenizer *tiktoken.Tiktoken
}

// NewEstimator creates a token estimator.
func NewEstimator() (*Estimator, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("get tokenizer: %w", err)
	}
	return &Estimator{tokenizer: enc}, nil
}

// Count returns the estimated token count for a string.
func (e *Estimator) Count(text string) int {
	return len(e.tokenizer.Encode(text, nil, nil))
}
