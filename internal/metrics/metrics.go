// Package metrics extracts token, cost, and call-count figures from raw
// agent output.
//
// There is no per-agent parsing code. Each agent's config maps metric names
// to single-capture-group regular expressions, and one generic extractor
// applies them. Extraction is purely observational: it never fails a run and
// never fabricates values: no pattern, no match, or a bad number all leave
// the field unknown.
package metrics

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// Metric names recognized in an agent's pattern map.
const (
	TokensIn  = "tokens_in"
	TokensOut = "tokens_out"
	Cost      = "cost"
	LLMCalls  = "llm_calls"
)

// Record holds the extracted metrics for one run. Nil means unknown, which
// is distinct from zero.
type Record struct {
	TokensIn  *int64   `json:"tokens_in,omitempty"`
	TokensOut *int64   `json:"tokens_out,omitempty"`
	CostUSD   *float64 `json:"cost_usd,omitempty"`
	LLMCalls  *int64   `json:"llm_calls,omitempty"`
}

// TotalTokens returns input + output tokens, or nil when either is unknown.
func (r Record) TotalTokens() *int64 {
	if r.TokensIn == nil || r.TokensOut == nil {
		return nil
	}
	total := *r.TokensIn + *r.TokensOut
	return &total
}

// Extractor applies configured patterns to captured output.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor returns an Extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract applies each configured pattern to output and returns the record.
// Patterns match case-insensitively; the first match wins. Unrecognized
// metric names, invalid patterns, and unparseable captures are logged and
// skipped.
func (e *Extractor) Extract(output string, patterns map[string]string) Record {
	var rec Record
	if len(patterns) == 0 {
		return rec
	}

	for name, pattern := range patterns {
		capture, ok := e.firstCapture(name, pattern, output)
		if !ok {
			continue
		}

		switch name {
		case TokensIn:
			rec.TokensIn = e.parseCount(name, capture)
		case TokensOut:
			rec.TokensOut = e.parseCount(name, capture)
		case LLMCalls:
			rec.LLMCalls = e.parseCount(name, capture)
		case Cost:
			v, err := strconv.ParseFloat(capture, 64)
			if err != nil {
				e.logger.Debug("metric capture is not a number", "metric", name, "capture", capture)
				continue
			}
			rec.CostUSD = &v
		default:
			e.logger.Debug("unrecognized metric name", "metric", name)
		}
	}

	return rec
}

// firstCapture compiles pattern and returns its first capture group's match
// in output.
func (e *Extractor) firstCapture(name, pattern, output string) (string, bool) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		e.logger.Debug("invalid metric pattern", "metric", name, "pattern", pattern, "error", err)
		return "", false
	}
	if re.NumSubexp() < 1 {
		e.logger.Debug("metric pattern has no capture group", "metric", name, "pattern", pattern)
		return "", false
	}

	m := re.FindStringSubmatch(output)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// parseCount parses an integer capture, tolerating thousands separators
// ("4,200").
func (e *Extractor) parseCount(name, capture string) *int64 {
	v, err := strconv.ParseInt(strings.ReplaceAll(capture, ",", ""), 10, 64)
	if err != nil {
		e.logger.Debug("metric capture is not an integer", "metric", name, "capture", capture)
		return nil
	}
	return &v
}
