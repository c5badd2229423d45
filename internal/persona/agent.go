package persona

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"roundtable.app/roundtable/common/id"
	"roundtable.app/roundtable/common/llm"
	"roundtable.app/roundtable/common/logger"
	"roundtable.app/roundtable/internal/extract"
	"roundtable.app/roundtable/internal/model"
)

// DiscussRequest carries the shared discussion state into one persona
// invocation.
type DiscussRequest struct {
	Topic       string
	Context     string
	History     []model.PersonaStatement
	Type        model.DiscussionType
	RoundNumber int
}

// Options carries the per-call generation knobs shared by every agent.
type Options struct {
	MaxTokens   int
	Temperature *float64
	Timeout     time.Duration
}

// Agent binds one persona profile to a generation client and an extraction
// strategy. Agents are stateless between calls and safe for concurrent use.
type Agent struct {
	profile   Profile
	client    llm.Client
	extractor extract.Strategy
	opts      Options
}

func NewAgent(profile Profile, client llm.Client, extractor extract.Strategy, opts Options) *Agent {
	return &Agent{profile: profile, client: client, extractor: extractor, opts: opts}
}

func (a *Agent) Profile() Profile { return a.profile }

// Discuss generates one statement for the given phase and extracts issues
// and solutions from it. Extraction failures degrade to empty lists; only a
// generation failure is returned to the caller.
func (a *Agent) Discuss(ctx context.Context, req DiscussRequest) (*model.PersonaStatement, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Persona: logger.Ptr(a.profile.ID),
		Phase:   logger.Ptr(string(req.Type)),
	})

	text, err := a.client.Generate(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: a.systemPrompt(req.Type)},
			{Role: "user", Content: a.userPrompt(req)},
		},
		MaxTokens:   a.opts.MaxTokens,
		Temperature: a.opts.Temperature,
		Timeout:     a.opts.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("persona %s generation: %w", a.profile.ID, err)
	}

	issues, solutions := a.extractor.Extract(ctx, text)

	stmt := &model.PersonaStatement{
		ID:                id.NewString(),
		PersonaID:         a.profile.ID,
		PersonaName:       a.profile.Name,
		PersonaRole:       a.profile.Role,
		Statement:         text,
		IdentifiedIssues:  issues,
		ProposedSolutions: solutions,
		Model:             a.client.Model(),
		CreatedAt:         time.Now().UTC(),
	}

	slog.InfoContext(ctx, "persona statement generated",
		"round_number", req.RoundNumber,
		"issues_count", len(issues),
		"solutions_count", len(solutions),
		"statement_chars", len(text))

	return stmt, nil
}

func (a *Agent) systemPrompt(dt model.DiscussionType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %s.\n\n", a.profile.Name, a.profile.Role)
	b.WriteString("**Your profile:**\n")
	fmt.Fprintf(&b, "- Organization: %s\n", a.profile.OrganizationType)
	fmt.Fprintf(&b, "- Experience: %d years\n", a.profile.ExperienceYears)
	fmt.Fprintf(&b, "- Specialties: %s\n", strings.Join(a.profile.Specialties, ", "))
	fmt.Fprintf(&b, "- Perspective: %s\n", a.profile.Perspective)
	fmt.Fprintf(&b, "- Communication style: %s\n", a.profile.CommunicationStyle)
	if a.profile.Background != "" {
		fmt.Fprintf(&b, "- Background: %s\n", a.profile.Background)
	}
	b.WriteString("\n**Ground rules:**\n")
	b.WriteString("- Offer practical insight grounded in your own experience\n")
	b.WriteString("- Support claims with concrete examples and cases\n")
	b.WriteString("- Respect the other participants while keeping the discussion constructive\n")
	b.WriteString("- Focus on actionable improvements to people management and process\n")

	switch dt {
	case model.DiscussionTypeInitial:
		b.WriteString("\n**Your role in this round:**\n")
		b.WriteString("State your initial position on the topic from your own expertise.\n")
		b.WriteString("- Identify the 3-5 issues you consider most important\n")
		b.WriteString("- Propose a practical solution for each issue\n")
		b.WriteString("- Illustrate with concrete cases from your experience\n")
	case model.DiscussionTypeInteractive:
		b.WriteString("\n**Your role in this round:**\n")
		b.WriteString("Engage with what the other participants have said.\n")
		b.WriteString("- Make your agreements and disagreements explicit\n")
		b.WriteString("- Point out overlooked issues or new angles\n")
		b.WriteString("- Propose refinements or alternatives to earlier solutions\n")
		b.WriteString("- Deepen the shared understanding through constructive debate\n")
	case model.DiscussionTypeConsensus:
		b.WriteString("\n**Your role in this round:**\n")
		b.WriteString("Integrate the discussion so far into a final position aimed at consensus.\n")
		b.WriteString("- Summarize the issues the group has converged on\n")
		b.WriteString("- Rank the solutions by feasibility\n")
		b.WriteString("- Propose a staged improvement plan for the organization\n")
		b.WriteString("- Note the points that remain open\n")
	}
	return b.String()
}

func (a *Agent) userPrompt(req DiscussRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Discussion topic:** %s\n", req.Topic)
	if req.Context != "" {
		fmt.Fprintf(&b, "\n**Organization context:**\n%s\n", req.Context)
	}

	if len(req.History) > 0 {
		switch req.Type {
		case model.DiscussionTypeInitial:
			// An independent first take: prior statements are reference
			// only, truncated hard so they do not anchor the answer.
			recent := tail(req.History, 2)
			b.WriteString("\n**Earlier statements (for reference only):**\n")
			for _, stmt := range recent {
				fmt.Fprintf(&b, "- %s: %s\n", stmt.PersonaName, logger.Truncate(stmt.Statement, 200))
			}

		case model.DiscussionTypeInteractive:
			b.WriteString("\n**Discussion so far:**\n")
			for _, stmt := range tail(req.History, 5) {
				fmt.Fprintf(&b, "\n**%s (%s) said:**\n%s\n", stmt.PersonaName, stmt.PersonaRole, stmt.Statement)
			}
			fmt.Fprintf(&b, "\n**Guidance for round %d:**\n", req.RoundNumber)
			b.WriteString("Respond to the statements above along these lines:\n")
			b.WriteString("1. Points you agree with and points you question\n")
			b.WriteString("2. Additional issues or perspectives from your own experience\n")
			b.WriteString("3. More feasible versions of the solutions proposed so far\n")
			b.WriteString("4. Concrete implementation steps and pitfalls\n")

		case model.DiscussionTypeConsensus:
			var issueCount, solutionCount int
			for _, stmt := range req.History {
				issueCount += len(stmt.IdentifiedIssues)
				solutionCount += len(stmt.ProposedSolutions)
			}
			b.WriteString("\n**Summary of the full discussion:**\n")
			fmt.Fprintf(&b, "Issues identified: %d\n", issueCount)
			fmt.Fprintf(&b, "Solutions proposed: %d\n", solutionCount)
			b.WriteString("\n**Consensus criteria:**\n")
			b.WriteString("1. Select the 3 most important issues the group can agree on\n")
			b.WriteString("2. Rank the solutions by feasibility\n")
			b.WriteString("3. Propose a staged implementation plan\n")
			b.WriteString("4. Propose metrics to measure the effect\n")
		}
	}

	switch req.Type {
	case model.DiscussionTypeInitial:
		b.WriteString("\n**Response format:**\n")
		b.WriteString("Lay out your view in detail from your own expertise. Include concrete cases and experience, and present practical issues and solutions.")
	case model.DiscussionTypeInteractive:
		b.WriteString("\n**Response format:**\n")
		b.WriteString("Respond in a conversational form, quoting the other participants. Make agreements and disagreements explicit and keep the debate constructive.")
	case model.DiscussionTypeConsensus:
		b.WriteString("\n**Response format:**\n")
		b.WriteString("Present a final position that integrates the discussion so far. Lay out the agreed points, an execution plan, and the remaining open issues.")
	}
	return b.String()
}

func tail(stmts []model.PersonaStatement, n int) []model.PersonaStatement {
	if len(stmts) <= n {
		return stmts
	}
	return stmts[len(stmts)-n:]
}
