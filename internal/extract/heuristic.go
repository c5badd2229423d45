package extract

import (
	"context"
	"strings"
)

const (
	minLineLength = 10
	maxPerKind    = 5
)

var issueKeywords = []string{
	"issue", "problem", "challenge", "struggle", "difficult", "concern",
	"risk", "lack", "missing", "shortage", "bottleneck", "needs improvement",
}

var solutionKeywords = []string{
	"solution", "countermeasure", "improvement", "proposal", "propose",
	"initiative", "approach", "should implement", "introduce", "adopt",
	"method", "strategy", "recommend",
}

type heuristic struct{}

// NewHeuristic returns the keyword-scan strategy. It requires no backend
// call: any line longer than minLineLength containing an issue keyword is
// recorded as an issue, and likewise for solutions. A line can qualify as
// both. Output is capped at maxPerKind per kind, in text order.
func NewHeuristic() Strategy {
	return heuristic{}
}

func (heuristic) Extract(_ context.Context, statement string) ([]string, []string) {
	var issues, solutions []string

	for _, line := range strings.Split(statement, "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= minLineLength {
			continue
		}
		lower := strings.ToLower(line)
		if containsAny(lower, issueKeywords) {
			issues = append(issues, line)
		}
		if containsAny(lower, solutionKeywords) {
			solutions = append(solutions, line)
		}
	}

	return cap5(issues), cap5(solutions)
}

func containsAny(line string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}

func cap5(items []string) []string {
	if len(items) > maxPerKind {
		return items[:maxPerKind]
	}
	return items
}
