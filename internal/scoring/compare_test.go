package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/TobiSchelling/reader/internal/database"
	"github.com/TobiSchelling/reader/internal/elo"
)

func TestCompareParsesOutcome(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		want      elo.Outcome
		reasoning string
	}{
		{"a wins", `{"outcome":"a_wins","reasoning":"deeper"}`, elo.AWins, "deeper"},
		{"b wins in prose", `Verdict: {"outcome": "b_wins", "reasoning": "timely"} done`, elo.BWins, "timely"},
		{"invalid outcome", `{"outcome":"both","reasoning":"hm"}`, elo.Tie, "hm"},
		{"missing outcome", `{"reasoning":"unsure"}`, elo.Tie, "unsure"},
		{"missing reasoning", `{"outcome":"tie"}`, elo.Tie, defaultReasoning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewComparator(&mockJudge{responses: []string{tt.response}})
			j, err := c.Compare(context.Background(), "criteria", Preview{Title: "A"}, Preview{Title: "B"})
			if err != nil {
				t.Fatalf("Compare: %v", err)
			}
			if j.Outcome != tt.want || j.Reasoning != tt.reasoning {
				t.Errorf("got %q/%q, want %q/%q", j.Outcome, j.Reasoning, tt.want, tt.reasoning)
			}
		})
	}
}

func TestCompareErrors(t *testing.T) {
	tests := []struct {
		name  string
		judge *mockJudge
	}{
		{"transport", &mockJudge{errs: []error{errors.New("timeout")}}},
		{"no json", &mockJudge{responses: []string{"A is better"}}},
		{"bad json", &mockJudge{responses: []string{`{"outcome": a_wins}`}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewComparator(tt.judge).Compare(context.Background(), "c", Preview{}, Preview{})
			var ce *ComparisonError
			if !errors.As(err, &ce) {
				t.Errorf("expected *ComparisonError, got %v", err)
			}
		})
	}
}

func TestCompareTruncatesReasoning(t *testing.T) {
	long := strings.Repeat("x", 5000)
	c := NewComparator(&mockJudge{responses: []string{`{"outcome":"tie","reasoning":"` + long + `"}`}})
	j, err := c.Compare(context.Background(), "c", Preview{}, Preview{})
	if err != nil {
		t.Fatal(err)
	}
	if len(j.Reasoning) != maxReasoningChars {
		t.Errorf("expected reasoning truncated to %d, got %d", maxReasoningChars, len(j.Reasoning))
	}
}

func TestComparePromptContents(t *testing.T) {
	judge := &mockJudge{}
	c := NewComparator(judge)
	c.Compare(context.Background(), "likes Rust",
		Preview{Title: "Rust async", Source: "Blog A", Text: "futures"},
		Preview{Title: "Go generics", Source: "Blog B", Text: "type params"})

	p := judge.prompts[0]
	for _, want := range []string{"likes Rust", "Article A: Rust async", "Article B: Go generics", "Blog B", "type params"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestNewPreview(t *testing.T) {
	content := strings.Repeat("é", 600)
	a := &database.Article{Title: "T", Content: &content}
	p := NewPreview(a, 500)
	if len([]rune(p.Text)) != 500 {
		t.Errorf("expected 500 characters, got %d", len([]rune(p.Text)))
	}
	if p.Source != "Unknown" {
		t.Errorf("expected Unknown source, got %q", p.Source)
	}

	empty := NewPreview(&database.Article{Title: "T"}, 500)
	if empty.Text == "" {
		t.Error("expected placeholder preview for empty content")
	}
}
