// Package report renders a completed discussion session into a markdown
// document. Rendering is pure: the same session always produces the same
// bytes.
package report

import (
	"fmt"
	"strings"

	"roundtable.app/roundtable/internal/model"
	"roundtable.app/roundtable/internal/persona"
)

const timeLayout = "2006-01-02 15:04:05"

type phaseInfo struct {
	name        string
	description string
	leadIn      []string
}

func phases(topic string) []phaseInfo {
	return []phaseInfo{
		{
			name:        "Phase 1: Initial Positions",
			description: "Each expert's first analysis of the issues",
			leadIn: []string{
				fmt.Sprintf("We open the discussion of \"%s\" with each expert's own analysis.", topic),
				"Consider the people management, process improvement, and organizational",
				"scaling angles, and identify practical issues with concrete solutions.",
			},
		},
		{
			name:        "Phase 2: Cross-Discussion (First Half)",
			description: "Exchange of views building on the initial positions",
			leadIn: []string{
				"Building on the initial positions, the discussion now turns to:",
				"- Detailed analysis of the points where opinions diverged",
				"- More concrete versions of the proposed solutions",
				"- Implementation obstacles and how to handle them",
			},
		},
		{
			name:        "Phase 3: Cross-Discussion (Second Half)",
			description: "Deeper exploration of the contested points",
			leadIn: []string{
				"Digging deeper into the discussion so far, please focus on:",
				"- Root causes behind the identified issues",
				"- Staged approaches to implementation",
				"- Measures matched to the organization's maturity",
			},
		},
		{
			name:        "Phase 4: Consensus Building",
			description: "Integrated positions and actionable solutions",
			leadIn: []string{
				"As the final phase, please converge on an integrated position:",
				"- Narrow down to the highest-priority issues",
				"- Put forward the most feasible solutions",
				"- Lay out a concrete execution plan and timeline",
			},
		},
	}
}

// Render produces the discussion report. The coordinator's summary statement
// leads as the executive summary; persona statements follow grouped into
// phases by index, with full issue/solution lists on the first and last
// statement of each phase and counts elsewhere.
func Render(session *model.DiscussionSession, registry *persona.Registry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Discussion Report\n\n")
	fmt.Fprintf(&b, "**Session ID**: %s\n", session.ID)
	fmt.Fprintf(&b, "**Topic**: %s\n", session.Topic)
	fmt.Fprintf(&b, "**Created**: %s\n\n", session.CreatedAt.Format(timeLayout))

	if summary := coordinatorSummary(session); summary != "" {
		b.WriteString("## Executive Summary\n\n")
		b.WriteString("*The coordinator's synthesis of the full discussion*\n\n")
		b.WriteString(summary)
		b.WriteString("\n\n---\n\n")
	}

	renderParticipants(&b, session, registry)
	renderOverview(&b, session)

	for i, round := range session.Rounds {
		renderRound(&b, session.Topic, round, i+1)
	}

	renderFindings(&b, session)

	return b.String()
}

func coordinatorSummary(session *model.DiscussionSession) string {
	for _, round := range session.Rounds {
		for _, stmt := range round.Statements {
			if stmt.PersonaID == model.CoordinatorID {
				return stmt.Statement
			}
		}
	}
	return ""
}

func renderParticipants(b *strings.Builder, session *model.DiscussionSession, registry *persona.Registry) {
	b.WriteString("## Participants\n\n")
	b.WriteString("| Role | Name | Organization | Experience | Specialties |\n")
	b.WriteString("|------|------|--------------|------------|-------------|\n")
	b.WriteString("| **Coordinator** | System | Main Coordinator | - | Facilitation and consensus support |\n")

	seen := map[string]bool{}
	for _, round := range session.Rounds {
		for _, pid := range round.Participants {
			if seen[pid] {
				continue
			}
			seen[pid] = true
			profile, ok := registry.Get(pid)
			if !ok {
				continue
			}
			specialties := profile.Specialties
			if len(specialties) > 3 {
				specialties = specialties[:3]
			}
			fmt.Fprintf(b, "| %s | %s | %s | %d years | %s |\n",
				profile.Role, profile.Name, profile.OrganizationType,
				profile.ExperienceYears, strings.Join(specialties, ", "))
		}
	}
	b.WriteString("\n---\n\n")
}

func renderOverview(b *strings.Builder, session *model.DiscussionSession) {
	var totalStatements, totalIssues, totalSolutions int
	participants := map[string]bool{}
	for _, round := range session.Rounds {
		totalStatements += len(round.Statements)
		for _, stmt := range round.Statements {
			totalIssues += len(stmt.IdentifiedIssues)
			totalSolutions += len(stmt.ProposedSolutions)
		}
		for _, pid := range round.Participants {
			participants[pid] = true
		}
	}

	b.WriteString("## Overview\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(b, "| Rounds | %d |\n", len(session.Rounds))
	fmt.Fprintf(b, "| Statements | %d |\n", totalStatements)
	fmt.Fprintf(b, "| Participants | %d |\n", len(participants))
	fmt.Fprintf(b, "| Issues identified | %d |\n", totalIssues)
	fmt.Fprintf(b, "| Solutions proposed | %d |\n", totalSolutions)
	b.WriteString("\n---\n\n")
}

func renderRound(b *strings.Builder, topic string, round model.DiscussionRound, number int) {
	fmt.Fprintf(b, "## Round %d\n\n", number)
	completed := "in progress"
	if round.CompletedAt != nil {
		completed = round.CompletedAt.Format(timeLayout)
	}
	fmt.Fprintf(b, "**Period**: %s to %s\n\n", round.StartedAt.Format(timeLayout), completed)
	fmt.Fprintf(b, "**Participants**: %s\n\n", strings.Join(round.Participants, ", "))

	// Persona statements group into phases by index; the coordinator summary
	// already leads the report and is excluded here.
	var statements []model.PersonaStatement
	for _, stmt := range round.Statements {
		if stmt.PersonaID != model.CoordinatorID {
			statements = append(statements, stmt)
		}
	}
	if len(statements) == 0 {
		return
	}

	phaseSize := len(round.Participants)
	if phaseSize == 0 {
		phaseSize = len(statements)
	}

	infos := phases(topic)
	for phaseIdx, phase := range infos {
		start := phaseIdx * phaseSize
		if start >= len(statements) {
			break
		}
		end := start + phaseSize
		if end > len(statements) {
			end = len(statements)
		}
		renderPhase(b, phase, statements[start:end], start)

		if phaseIdx < len(infos)-1 && end < len(statements) {
			b.WriteString("\n**Next phase**\n\n")
		}
	}
}

func renderPhase(b *strings.Builder, phase phaseInfo, statements []model.PersonaStatement, offset int) {
	fmt.Fprintf(b, "### %s\n\n", phase.name)
	fmt.Fprintf(b, "*%s*\n\n", phase.description)

	b.WriteString("#### From the coordinator\n\n")
	for _, line := range phase.leadIn {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n---\n\n")

	for i, stmt := range statements {
		fmt.Fprintf(b, "#### %d. %s (%s)\n\n", offset+i+1, stmt.PersonaName, stmt.PersonaRole)
		b.WriteString(stmt.Statement)
		b.WriteString("\n\n")

		// Full lists only on the first and last statement of the phase;
		// anything in between gets counts to keep the document readable.
		if i == 0 || i == len(statements)-1 {
			b.WriteString("##### Issues identified and solutions proposed\n\n")
			if len(stmt.IdentifiedIssues) > 0 {
				fmt.Fprintf(b, "**Issues identified** (%d):\n", len(stmt.IdentifiedIssues))
				for k, issue := range stmt.IdentifiedIssues {
					fmt.Fprintf(b, "  %d. %s\n", k+1, issue)
				}
				b.WriteString("\n")
			}
			if len(stmt.ProposedSolutions) > 0 {
				fmt.Fprintf(b, "**Solutions proposed** (%d):\n", len(stmt.ProposedSolutions))
				for k, solution := range stmt.ProposedSolutions {
					fmt.Fprintf(b, "  %d. %s\n", k+1, solution)
				}
				b.WriteString("\n")
			}
		} else {
			fmt.Fprintf(b, "*Raised %d issues and %d solutions*\n\n",
				len(stmt.IdentifiedIssues), len(stmt.ProposedSolutions))
		}
		b.WriteString("---\n\n")
	}
}

func renderFindings(b *strings.Builder, session *model.DiscussionSession) {
	if len(session.FinalIssues) == 0 && len(session.FinalSolutions) == 0 {
		return
	}

	b.WriteString("## Discussion Outcome\n\n")

	if len(session.FinalIssues) > 0 {
		b.WriteString("### Agreed Key Issues\n\n")
		for i, issue := range session.FinalIssues {
			fmt.Fprintf(b, "%d. **%s** - %s\n", i+1, issue.Title, issue.Description)
		}
		b.WriteString("\n")
	}

	if len(session.FinalSolutions) > 0 {
		b.WriteString("### Proposed Solutions\n\n")
		for i, solution := range session.FinalSolutions {
			fmt.Fprintf(b, "%d. **%s** - %s\n", i+1, solution.Title, solution.Description)
		}
		b.WriteString("\n")
	}
}
