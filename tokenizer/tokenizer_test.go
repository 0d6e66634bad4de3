package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApproximate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace", " \n\t", 0},
		{"short word", "cat", 1},
		{"sixteen chars", "abcdefghijklmnop", 4},
		{"counts runes not bytes", "ññññññññ", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Approximate(tt.text))
		})
	}
}

func TestForModel_EmptyUsesApproximate(t *testing.T) {
	est := ForModel("")
	assert.Equal(t, Approximate("abcdefgh"), est("abcdefgh"))
}

func TestForModel_BlankText(t *testing.T) {
	est := ForModel("gpt-4")
	assert.Equal(t, 0, est("   "))
}
