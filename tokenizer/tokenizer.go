// Package tokenizer estimates token counts for chunk content.
package tokenizer

import (
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
)

// Estimator returns the number of tokens in text.
type Estimator func(text string) int

// Approximate estimates one token per four characters, with a minimum of one
// token for any non-blank text.
func Approximate(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	n := utf8.RuneCountInString(text) / 4
	if n < 1 {
		return 1
	}
	return n
}

// ForModel returns an estimator using the BPE encoding of model. An empty
// model name selects Approximate.
func ForModel(model string) Estimator {
	if model == "" {
		return Approximate
	}
	return func(text string) int {
		if strings.TrimSpace(text) == "" {
			return 0
		}
		return llms.CountTokens(model, text)
	}
}
