package coordinator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"roundtable.app/roundtable/internal/model"
)

var listPrefix = regexp.MustCompile(`^\d+[.)]\s*`)

const maxFinalItems = 10

// mergeFindings collapses the raw per-statement issue and solution strings
// into the session-level final lists. Near-duplicates (same text modulo
// case, whitespace, punctuation, and list numbering) are merged; the first
// phrasing wins and becomes the title, and the supporter count is noted in
// the description. Output order is first-mention order, capped.
func mergeFindings(statements []model.PersonaStatement) ([]model.IdentifiedIssue, []model.ProposedSolution) {
	var rawIssues, rawSolutions []string
	for _, stmt := range statements {
		rawIssues = append(rawIssues, stmt.IdentifiedIssues...)
		rawSolutions = append(rawSolutions, stmt.ProposedSolutions...)
	}

	issues := make([]model.IdentifiedIssue, 0, maxFinalItems)
	for _, m := range collapse(rawIssues) {
		issues = append(issues, model.IdentifiedIssue{Title: m.title, Description: m.description("statement")})
	}
	solutions := make([]model.ProposedSolution, 0, maxFinalItems)
	for _, m := range collapse(rawSolutions) {
		solutions = append(solutions, model.ProposedSolution{Title: m.title, Description: m.description("proposal")})
	}
	return issues, solutions
}

type merged struct {
	title      string
	supporters int
}

func (m merged) description(noun string) string {
	if m.supporters == 1 {
		return fmt.Sprintf("Raised in 1 %s.", noun)
	}
	return fmt.Sprintf("Raised in %d %ss.", m.supporters, noun)
}

func collapse(raw []string) []merged {
	var out []merged
	index := map[string]int{}

	for _, item := range raw {
		item = strings.TrimSpace(listPrefix.ReplaceAllString(strings.TrimSpace(item), ""))
		if item == "" {
			continue
		}
		key := canonicalize(item)
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			out[i].supporters++
			continue
		}
		if len(out) >= maxFinalItems {
			continue
		}
		index[key] = len(out)
		out = append(out, merged{title: item, supporters: 1})
	}
	return out
}

// canonicalize folds a finding to its comparison key: lowercase, numbering
// and punctuation stripped, runs of whitespace collapsed.
func canonicalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	lastSpace := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
