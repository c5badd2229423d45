package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"roundtable.app/roundtable/common/llm"
	"roundtable.app/roundtable/common/logger"
	"roundtable.app/roundtable/core/config"
	"roundtable.app/roundtable/internal/model"
)

const facilitatorSystemPrompt = `You are the main coordinator facilitating a discussion among several persona agents.

**Responsibilities:**
1. Structure the topic into clear points of contention and keep the focus sharp
2. Encourage dialogue between the personas and steer the debate constructively
3. Surface where opinions diverge and which points deserve deeper exploration
4. Support the final consensus and the production of an integrated position

**Facilitation principles:**
- Give every persona an equal opportunity to speak
- Welcome disagreement and turn it into constructive debate
- Prefer arguments grounded in concrete cases and experience
- Aim for practical solutions to people management and process problems

Drive a dialogue that deepens with each phase and converges on actionable outcomes.`

// agendaOutput is the structured form of the agenda-setting call when the
// facilitator provider supports schema-constrained output.
type agendaOutput struct {
	SubQuestions []string `json:"sub_questions" jsonschema_description:"3 to 5 organizing sub-questions for the discussion"`
}

var agendaSchema = llm.GenerateSchema[agendaOutput]()

// Facilitator issues the non-persona generation calls of a discussion:
// agenda setting, focus-point synthesis, consensus framework building, and
// the final summary.
type Facilitator struct {
	client llm.Client
	cfg    config.LLMConfig
}

func NewFacilitator(client llm.Client, cfg config.LLMConfig) *Facilitator {
	return &Facilitator{client: client, cfg: cfg}
}

func (f *Facilitator) Model() string { return f.client.Model() }

// SetAgenda restates the topic into 3-5 organizing sub-questions. When the
// configured provider supports structured output the sub-questions come back
// typed; otherwise the call degrades to free text with the same intent.
func (f *Facilitator) SetAgenda(ctx context.Context, topic, orgContext string) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Phase: logger.Ptr("agenda")})

	userPrompt := fmt.Sprintf(`Discussion topic: %s
Context: %s

Organize this topic into 3-5 main points of contention, covering:
1. People management problems
2. Process improvement problems
3. Organizational scaling problems

For each point, spell out the concrete questions the discussion should answer.`, topic, orgContext)

	if og, ok := f.client.(llm.ObjectGenerator); ok {
		var out agendaOutput
		err := og.GenerateObject(ctx, llm.ObjectRequest{
			SystemPrompt: facilitatorSystemPrompt,
			UserPrompt:   userPrompt,
			SchemaName:   "discussion_agenda",
			Schema:       agendaSchema,
			MaxTokens:    f.cfg.MaxTokens,
			Temperature:  llm.Temp(f.cfg.Temperature),
			Timeout:      f.cfg.Timeout,
		}, &out)
		if err == nil && len(out.SubQuestions) > 0 {
			var b strings.Builder
			for i, q := range out.SubQuestions {
				fmt.Fprintf(&b, "%d. %s\n", i+1, q)
			}
			slog.InfoContext(ctx, "agenda set", "sub_questions", len(out.SubQuestions))
			return b.String(), nil
		}
		if err != nil {
			slog.WarnContext(ctx, "structured agenda failed, falling back to free text", "error", err)
		}
	}

	agenda, err := f.generate(ctx, facilitatorSystemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("set agenda: %w", err)
	}
	slog.InfoContext(ctx, "agenda set", "agenda_chars", len(agenda))
	return agenda, nil
}

// FocusPoints synthesizes what the next interactive round should dig into
// from the tail of the discussion. Advisory context only, never parsed.
func (f *Facilitator) FocusPoints(ctx context.Context, statements []model.PersonaStatement, roundNumber int) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Phase: logger.Ptr("interactive")})

	recent := statements
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	var summary strings.Builder
	for i, stmt := range recent {
		if i > 0 {
			summary.WriteString("\n\n")
		}
		fmt.Fprintf(&summary, "%s: %s", stmt.PersonaName, logger.Truncate(stmt.Statement, 300))
	}

	userPrompt := fmt.Sprintf(`Discussion so far:
%s

Identify what round %d should focus on:
1. Points where opinions diverge
2. Issues that need deeper exploration
3. Areas still missing concrete solutions

Then pose exactly three directed questions for the participants to answer in the next phase.`, summary.String(), roundNumber)

	focus, err := f.generate(ctx, facilitatorSystemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("identify focus points for round %d: %w", roundNumber, err)
	}
	slog.InfoContext(ctx, "focus points identified", "round_number", roundNumber)
	return focus, nil
}

// ConsensusFramework integrates the full statement history into a framework
// the consensus phase prompts are built around.
func (f *Facilitator) ConsensusFramework(ctx context.Context, statements []model.PersonaStatement) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Phase: logger.Ptr("consensus")})

	var all strings.Builder
	for i, stmt := range statements {
		if i > 0 {
			all.WriteString("\n\n")
		}
		fmt.Fprintf(&all, "%s (%s): %s", stmt.PersonaName, stmt.PersonaRole, stmt.Statement)
	}

	userPrompt := fmt.Sprintf(`Full discussion so far:
%s

Lay out a consensus framework covering:
1. Issues and solutions everyone already agrees on
2. Points of disagreement and why they persist
3. Directions in which the proposed solutions could be merged
4. Open points left for later

Keep the agreed items practical and concrete.`, all.String())

	framework, err := f.generate(ctx, facilitatorSystemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("build consensus framework: %w", err)
	}
	slog.InfoContext(ctx, "consensus framework built")
	return framework, nil
}

// Summarize produces the final report statement from every statement plus
// the raw extracted issue and solution strings.
func (f *Facilitator) Summarize(ctx context.Context, topic, orgContext string, statements []model.PersonaStatement) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Phase: logger.Ptr("summary")})

	var all strings.Builder
	var issues, solutions []string
	for i, stmt := range statements {
		if i > 0 {
			all.WriteString("\n\n")
		}
		fmt.Fprintf(&all, "[%s (%s)]\n%s", stmt.PersonaName, stmt.PersonaRole, stmt.Statement)
		issues = append(issues, stmt.IdentifiedIssues...)
		solutions = append(solutions, stmt.ProposedSolutions...)
	}

	systemPrompt := `You are the main coordinator who facilitated this discussion.
Integrate everything said into a final summary report.

Structure the report as:
1. Discussion overview
2. Key issues, ordered by priority
3. Solutions, organized into a coherent system
4. Implementation roadmap
5. Points for future consideration

Keep it concrete and practical, in a form an engineering leader can act on immediately.`

	userPrompt := fmt.Sprintf(`Discussion topic: %s
Organization context: %s

[Full discussion]
%s

[Issues identified] (%d)
%s

[Solutions proposed] (%d)
%s

Integrate the discussion above into the final summary report.`,
		topic, orgContext, all.String(),
		len(issues), bulleted(issues),
		len(solutions), bulleted(solutions))

	summary, err := f.generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("generate discussion summary: %w", err)
	}
	slog.InfoContext(ctx, "discussion summary generated", "summary_chars", len(summary))
	return summary, nil
}

func (f *Facilitator) generate(ctx context.Context, system, user string) (string, error) {
	return f.client.Generate(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   f.cfg.MaxTokens,
		Temperature: llm.Temp(f.cfg.Temperature),
		Timeout:     f.cfg.Timeout,
	})
}

func bulleted(items []string) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return b.String()
}
