package metrics

import (
	"io"
	"log/slog"
	"reflect"
	"testing"
)

func testExtractor() *Extractor {
	return NewExtractor(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const sampleOutput = `
Working on the task...
done.

Input tokens: 4,200
Output tokens: 900
Cost: $0.35
API calls: 7
`

var samplePatterns = map[string]string{
	TokensIn:  `input tokens:\s*([\d,]+)`,
	TokensOut: `output tokens:\s*([\d,]+)`,
	Cost:      `cost:\s*\$?([\d.]+)`,
	LLMCalls:  `API calls:\s*(\d+)`,
}

func TestExtract(t *testing.T) {
	t.Parallel()

	rec := testExtractor().Extract(sampleOutput, samplePatterns)

	if rec.TokensIn == nil || *rec.TokensIn != 4200 {
		t.Errorf("tokens_in = %v, want 4200 (commas stripped)", rec.TokensIn)
	}
	if rec.TokensOut == nil || *rec.TokensOut != 900 {
		t.Errorf("tokens_out = %v, want 900", rec.TokensOut)
	}
	if rec.CostUSD == nil || *rec.CostUSD != 0.35 {
		t.Errorf("cost = %v, want 0.35", rec.CostUSD)
	}
	if rec.LLMCalls == nil || *rec.LLMCalls != 7 {
		t.Errorf("llm_calls = %v, want 7", rec.LLMCalls)
	}
	if total := rec.TotalTokens(); total == nil || *total != 5100 {
		t.Errorf("total tokens = %v, want 5100", total)
	}
}

func TestExtractCaseInsensitive(t *testing.T) {
	t.Parallel()

	rec := testExtractor().Extract("INPUT TOKENS: 10", map[string]string{
		TokensIn: `input tokens:\s*(\d+)`,
	})
	if rec.TokensIn == nil || *rec.TokensIn != 10 {
		t.Errorf("tokens_in = %v, want 10 despite casing", rec.TokensIn)
	}
}

func TestExtractFirstMatchWins(t *testing.T) {
	t.Parallel()

	out := "cost: $0.10\ncost: $0.99\n"
	rec := testExtractor().Extract(out, map[string]string{Cost: `cost:\s*\$?([\d.]+)`})
	if rec.CostUSD == nil || *rec.CostUSD != 0.10 {
		t.Errorf("cost = %v, want first match 0.10", rec.CostUSD)
	}
}

func TestExtractUnknownNeverZero(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		output   string
		patterns map[string]string
	}{
		{"no patterns", sampleOutput, nil},
		{"no match", "nothing relevant here", samplePatterns},
		{"invalid pattern", sampleOutput, map[string]string{TokensIn: `([`}},
		{"no capture group", "tokens: 5", map[string]string{TokensIn: `tokens: \d+`}},
		{"non-numeric capture", "tokens: lots", map[string]string{TokensIn: `tokens: (\w+)`}},
		{"unrecognized name", sampleOutput, map[string]string{"wall_clock": `(\d+)`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := testExtractor().Extract(tt.output, tt.patterns)
			if rec.TokensIn != nil || rec.TokensOut != nil || rec.CostUSD != nil || rec.LLMCalls != nil {
				t.Errorf("record = %+v, want all fields unknown", rec)
			}
			if rec.TotalTokens() != nil {
				t.Errorf("total tokens = %v, want nil", rec.TotalTokens())
			}
		})
	}
}

func TestExtractPartialUnknown(t *testing.T) {
	t.Parallel()

	rec := testExtractor().Extract("Input tokens: 100", samplePatterns)
	if rec.TokensIn == nil || *rec.TokensIn != 100 {
		t.Errorf("tokens_in = %v, want 100", rec.TokensIn)
	}
	if rec.TokensOut != nil {
		t.Errorf("tokens_out = %v, want unknown", rec.TokensOut)
	}
	if rec.TotalTokens() != nil {
		t.Error("total tokens should be unknown when one side is unknown")
	}
}

func TestExtractIdempotent(t *testing.T) {
	t.Parallel()

	e := testExtractor()
	first := e.Extract(sampleOutput, samplePatterns)
	second := e.Extract(sampleOutput, samplePatterns)
	if !reflect.DeepEqual(derefRecord(first), derefRecord(second)) {
		t.Errorf("repeated extraction differs: %+v vs %+v", derefRecord(first), derefRecord(second))
	}
}

// derefRecord flattens pointers for comparison.
func derefRecord(r Record) [4]any {
	var out [4]any
	if r.TokensIn != nil {
		out[0] = *r.TokensIn
	}
	if r.TokensOut != nil {
		out[1] = *r.TokensOut
	}
	if r.CostUSD != nil {
		out[2] = *r.CostUSD
	}
	if r.LLMCalls != nil {
		out[3] = *r.LLMCalls
	}
	return out
}
