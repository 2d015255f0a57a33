package validate

import (
	"regexp"
	"strings"
)

// failureMarkers pick out the lines worth keeping from failing validation
// output, across common toolchains. Validation commands are arbitrary shell,
// so these stay generic rather than per-language.
var failureMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^.*\berror\b.*$`),
	regexp.MustCompile(`(?i)^.*\bpanic:\s.*$`),
	regexp.MustCompile(`^--- FAIL:.*$`),
	regexp.MustCompile(`(?i)^.*\bFAILED\b.*$`),
	regexp.MustCompile(`(?i)^.*assertion.*$`),
}

const maxSummaryLines = 5

// Summarize extracts a short diagnostic from failing validation output for
// the result's cause field. Marker lines win; when none match, the first few
// non-empty lines stand in.
func Summarize(output string) []string {
	lines := strings.Split(output, "\n")

	var summaries []string
	seen := make(map[string]bool)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, marker := range failureMarkers {
			if marker.MatchString(line) {
				if !seen[line] {
					seen[line] = true
					summaries = append(summaries, line)
				}
				break
			}
		}
		if len(summaries) >= maxSummaryLines {
			return summaries
		}
	}

	if len(summaries) > 0 {
		return summaries
	}

	// Fallback: first few non-empty, non-separator lines.
	var result []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "===") || strings.HasPrefix(line, "---") {
			continue
		}
		result = append(result, line)
		if len(result) >= maxSummaryLines {
			break
		}
	}
	return result
}
