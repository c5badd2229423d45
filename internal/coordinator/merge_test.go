package coordinator

import (
	"fmt"
	"strings"
	"testing"

	"roundtable.app/roundtable/internal/model"
)

func TestMergeFindingsDeduplicates(t *testing.T) {
	statements := []model.PersonaStatement{
		{
			IdentifiedIssues:  []string{"1. Unclear ownership of initiatives"},
			ProposedSolutions: []string{"Adopt a decision log"},
		},
		{
			IdentifiedIssues:  []string{"unclear ownership of initiatives!"},
			ProposedSolutions: []string{"2) adopt a decision log"},
		},
		{
			IdentifiedIssues: []string{"No shared definition of done"},
		},
	}

	issues, solutions := mergeFindings(statements)

	if len(issues) != 2 {
		t.Fatalf("issues = %d, want 2: %+v", len(issues), issues)
	}
	if issues[0].Title != "Unclear ownership of initiatives" {
		t.Fatalf("first phrasing should win, got %q", issues[0].Title)
	}
	if issues[0].Description != "Raised in 2 statements." {
		t.Fatalf("unexpected description: %q", issues[0].Description)
	}
	if issues[1].Description != "Raised in 1 statement." {
		t.Fatalf("unexpected singular description: %q", issues[1].Description)
	}

	if len(solutions) != 1 {
		t.Fatalf("solutions = %d, want 1: %+v", len(solutions), solutions)
	}
	if solutions[0].Description != "Raised in 2 proposals." {
		t.Fatalf("unexpected solution description: %q", solutions[0].Description)
	}
}

func TestMergeFindingsCapsOutput(t *testing.T) {
	var stmt model.PersonaStatement
	for i := 0; i < 15; i++ {
		stmt.IdentifiedIssues = append(stmt.IdentifiedIssues, fmt.Sprintf("Issue variant number %d", i))
	}

	issues, _ := mergeFindings([]model.PersonaStatement{stmt})
	if len(issues) != maxFinalItems {
		t.Fatalf("issues = %d, want cap of %d", len(issues), maxFinalItems)
	}
}

func TestMergeFindingsPreservesFirstMentionOrder(t *testing.T) {
	statements := []model.PersonaStatement{
		{IdentifiedIssues: []string{"Beta issue", "Alpha issue"}},
		{IdentifiedIssues: []string{"alpha issue"}},
	}
	issues, _ := mergeFindings(statements)
	if issues[0].Title != "Beta issue" || issues[1].Title != "Alpha issue" {
		t.Fatalf("unexpected order: %+v", issues)
	}
}

func TestCanonicalize(t *testing.T) {
	cases := map[string]string{
		"  Unclear   Ownership!  ": "unclear ownership",
		"ADOPT a decision-log":     "adopt a decisionlog",
		"...":                      "",
	}
	for in, want := range cases {
		if got := canonicalize(in); got != want {
			t.Errorf("canonicalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatOrganizationContext(t *testing.T) {
	got := FormatOrganizationContext(map[string]string{
		"industry":     "saas",
		"zone":         "emea",
		"company_size": "120",
		"area":         "payments",
	})

	lines := strings.Split(got, "\n")
	want := []string{
		"Company size: 120",
		"Industry: saas",
		"area: payments",
		"zone: emea",
	}
	if len(lines) != len(want) {
		t.Fatalf("lines = %d, want %d: %q", len(lines), len(want), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestFormatOrganizationContextEmpty(t *testing.T) {
	if got := FormatOrganizationContext(nil); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
