package refine

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// WordDiff renders a unified diff between two prompts with one word per
// line and three words of context. Identical prompts give an empty diff.
func WordDiff(previous, current string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        wordLines(previous),
		B:        wordLines(current),
		FromFile: "previous",
		ToFile:   "current",
		Context:  3,
	})
}

func wordLines(s string) []string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = w + "\n"
	}
	return words
}
