package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrNoJSON means the response contained no {...} span.
	ErrNoJSON = errors.New("no JSON object in response")
	// ErrInvalidJSON means the {...} span did not parse.
	ErrInvalidJSON = errors.New("invalid JSON in response")
)

// ExtractJSON pulls the JSON object out of an LLM response. Models often
// wrap the object in prose or markdown fences, so the span from the first
// '{' to the last '}' is taken.
func ExtractJSON(text string) (gjson.Result, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return gjson.Result{}, ErrNoJSON
	}
	raw := text[start : end+1]
	if !gjson.Valid(raw) {
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrInvalidJSON, truncate(raw, 120))
	}
	return gjson.Parse(raw), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
