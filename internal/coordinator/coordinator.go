// Package coordinator runs the discussion state machine: agenda setting,
// the initial statement phase, the interactive phases, consensus building,
// and summary synthesis, with per-persona failure isolation throughout.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"roundtable.app/roundtable/common/id"
	"roundtable.app/roundtable/common/llm"
	"roundtable.app/roundtable/common/logger"
	"roundtable.app/roundtable/core/config"
	"roundtable.app/roundtable/internal/extract"
	"roundtable.app/roundtable/internal/model"
	"roundtable.app/roundtable/internal/persona"
	"roundtable.app/roundtable/internal/store"
)

// ClientSource hands out the generation client for a named persona,
// honoring per-persona provider or model overrides. *llm.Cache is the
// production implementation.
type ClientSource interface {
	ClientFor(name string, ov *llm.Override) (llm.Client, error)
}

// Coordinator owns a session for the duration of one discussion run. It is
// the only mutator of the session aggregate; persona calls fan out per phase
// but their results are folded back in on the coordinator's goroutine.
type Coordinator struct {
	registry    *persona.Registry
	clients     ClientSource
	facilitator *Facilitator
	extractor   extract.Strategy
	store       store.SessionStore

	discuss    config.DiscussConfig
	personaLLM config.LLMConfig
}

func New(
	registry *persona.Registry,
	clients ClientSource,
	facilitator *Facilitator,
	extractor extract.Strategy,
	st store.SessionStore,
	cfg config.Config,
) *Coordinator {
	return &Coordinator{
		registry:    registry,
		clients:     clients,
		facilitator: facilitator,
		extractor:   extractor,
		store:       st,
		discuss:     cfg.Discuss,
		personaLLM:  cfg.LLM.Persona,
	}
}

// RunDiscussion drives the session from INITIALIZED through all five phases
// to COMPLETED. Per-persona failures are absorbed phase-locally. Structural
// failures are returned as a DiscussionError: retryable when the cause is a
// transient backend condition and the session state is still resumable from
// scratch, fatal otherwise. The caller owns the FAILED transition for fatal
// errors.
func (c *Coordinator) RunDiscussion(ctx context.Context, session *model.DiscussionSession) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: logger.Ptr(session.ID),
		Component: "roundtable.coordinator",
	})

	if err := session.Advance(model.StatusRound1InProgress); err != nil {
		return NewFatalError(err)
	}

	participants := c.registry.Basic()
	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	round := session.AddRound(ids)
	ctx = logger.WithLogFields(ctx, logger.LogFields{RoundID: logger.Ptr(round.ID)})

	if err := c.store.Save(ctx, session); err != nil {
		return NewFatalError(fmt.Errorf("persist session at round start: %w", err))
	}
	slog.InfoContext(ctx, "discussion round started", "participants", len(ids), "topic", session.Topic)

	orgContext := FormatOrganizationContext(session.OrganizationContext)

	// Phase 1: agenda. Advisory context for every later phase.
	agenda, err := c.facilitator.SetAgenda(ctx, session.Topic, orgContext)
	if err != nil {
		return c.structural(ctx, fmt.Errorf("agenda phase: %w", err))
	}
	baseContext := orgContext
	if agenda != "" {
		baseContext += "\n\nDiscussion agenda:\n" + agenda
	}

	// Phase 2: initial statements.
	slog.InfoContext(ctx, "initial statement phase started")
	if err := c.runPhase(ctx, session, round, baseContext, model.DiscussionTypeInitial, 1); err != nil {
		return c.structural(ctx, fmt.Errorf("initial phase: %w", err))
	}

	// Phase 3: interactive cross-talk, steered by fresh focus points.
	for i := 0; i < c.discuss.InteractiveRounds; i++ {
		roundNumber := 2 + i
		focus, err := c.facilitator.FocusPoints(ctx, round.Statements, roundNumber)
		if err != nil {
			return c.structural(ctx, fmt.Errorf("focus points for round %d: %w", roundNumber, err))
		}
		slog.InfoContext(ctx, "interactive phase started", "round_number", roundNumber)
		phaseContext := baseContext + "\n\nFocus points:\n" + focus
		if err := c.runPhase(ctx, session, round, phaseContext, model.DiscussionTypeInteractive, roundNumber); err != nil {
			return c.structural(ctx, fmt.Errorf("interactive phase %d: %w", roundNumber, err))
		}
	}

	// Phase 4: consensus building around an integrated framework.
	framework, err := c.facilitator.ConsensusFramework(ctx, round.Statements)
	if err != nil {
		return c.structural(ctx, fmt.Errorf("consensus framework: %w", err))
	}
	slog.InfoContext(ctx, "consensus phase started")
	consensusContext := baseContext + "\n\nConsensus framework:\n" + framework
	if err := c.runPhase(ctx, session, round, consensusContext, model.DiscussionTypeConsensus, 1); err != nil {
		return c.structural(ctx, fmt.Errorf("consensus phase: %w", err))
	}

	// Phase 5: summary synthesis. Non-fatal: the round completes without a
	// summary statement when this fails.
	c.synthesizeSummary(ctx, session, round, orgContext)

	round.Complete(time.Now())

	session.FinalIssues, session.FinalSolutions = mergeFindings(round.Statements)

	if err := session.Advance(model.StatusCompleted); err != nil {
		return NewFatalError(err)
	}
	if err := c.store.Save(ctx, session); err != nil {
		return NewFatalError(fmt.Errorf("persist completed session: %w", err))
	}

	slog.InfoContext(ctx, "discussion completed",
		"statements", len(round.Statements),
		"final_issues", len(session.FinalIssues),
		"final_solutions", len(session.FinalSolutions))
	return nil
}

// runPhase invokes every scheduled participant for one phase. Calls fan out
// up to the configured limit; results are buffered per participant index and
// appended in participant-list order once all calls settle, so insertion
// order is deterministic regardless of completion order. A failed persona is
// skipped for the phase, never replaced by a placeholder.
func (c *Coordinator) runPhase(
	ctx context.Context,
	session *model.DiscussionSession,
	round *model.DiscussionRound,
	phaseContext string,
	dt model.DiscussionType,
	roundNumber int,
) error {
	history := append([]model.PersonaStatement(nil), round.Statements...)
	results := make([]*model.PersonaStatement, len(round.Participants))

	var g errgroup.Group
	g.SetLimit(c.discuss.MaxFanOut)

	for i, pid := range round.Participants {
		g.Go(func() error {
			agent, err := c.agentFor(pid)
			if err != nil {
				slog.ErrorContext(ctx, "persona agent unavailable, skipping for this phase",
					"persona", pid, "error", err)
				return nil
			}
			stmt, err := agent.Discuss(ctx, persona.DiscussRequest{
				Topic:       session.Topic,
				Context:     phaseContext,
				History:     history,
				Type:        dt,
				RoundNumber: roundNumber,
			})
			if err != nil {
				slog.ErrorContext(ctx, "persona call failed, skipping for this phase",
					"persona", pid, "discussion_type", string(dt), "round_number", roundNumber, "error", err)
				return nil
			}
			results[i] = stmt
			return nil
		})
	}
	// Tasks never return errors; Wait is only a barrier.
	_ = g.Wait()

	for _, stmt := range results {
		if stmt == nil {
			continue
		}
		if err := round.AddStatement(*stmt); err != nil {
			return err
		}
	}

	if err := c.store.Save(ctx, session); err != nil {
		return fmt.Errorf("persist session after %s phase: %w", dt, err)
	}
	return nil
}

func (c *Coordinator) agentFor(personaID string) (*persona.Agent, error) {
	profile, ok := c.registry.Get(personaID)
	if !ok {
		return nil, fmt.Errorf("unknown persona %q", personaID)
	}
	var ov *llm.Override
	if profile.LLM != nil {
		ov = &llm.Override{Provider: profile.LLM.Provider, Model: profile.LLM.Model}
	}
	client, err := c.clients.ClientFor(personaID, ov)
	if err != nil {
		return nil, fmt.Errorf("client for persona %q: %w", personaID, err)
	}
	return persona.NewAgent(profile, client, c.extractor, persona.Options{
		MaxTokens:   c.personaLLM.MaxTokens,
		Temperature: llm.Temp(c.personaLLM.Temperature),
		Timeout:     c.personaLLM.Timeout,
	}), nil
}

// synthesizeSummary records the facilitator's final report as a statement
// from the distinguished coordinator identity. Failures are logged and
// swallowed.
func (c *Coordinator) synthesizeSummary(ctx context.Context, session *model.DiscussionSession, round *model.DiscussionRound, orgContext string) {
	summary, err := c.facilitator.Summarize(ctx, session.Topic, orgContext, round.Statements)
	if err != nil {
		slog.ErrorContext(ctx, "summary synthesis failed, completing round without summary", "error", err)
		return
	}

	stmt := model.PersonaStatement{
		ID:                id.NewString(),
		PersonaID:         model.CoordinatorID,
		PersonaName:       model.CoordinatorName,
		PersonaRole:       model.CoordinatorRole,
		Statement:         summary,
		IdentifiedIssues:  []string{},
		ProposedSolutions: []string{},
		Model:             c.facilitator.Model(),
		CreatedAt:         time.Now().UTC(),
	}
	if err := round.AddStatement(stmt); err != nil {
		slog.ErrorContext(ctx, "recording summary statement failed", "error", err)
	}
}

// structural classifies a phase-level failure. Transient backend conditions
// surface as retryable so the queue can re-run the discussion; everything
// else is fatal and ends the session.
func (c *Coordinator) structural(ctx context.Context, err error) error {
	if llm.IsRetryable(ctx, err) {
		return NewRetryableError(err)
	}
	return NewFatalError(err)
}

// FormatOrganizationContext renders the free-form organization context map
// into labeled lines. Known keys get fixed labels in a fixed order; unknown
// keys follow generically in sorted order.
func FormatOrganizationContext(orgContext map[string]string) string {
	if len(orgContext) == 0 {
		return ""
	}

	known := []struct{ key, label string }{
		{"company_size", "Company size"},
		{"industry", "Industry"},
		{"development_stage", "Development stage"},
		{"current_challenges", "Current challenges"},
		{"team_structure", "Team structure"},
	}

	var lines []string
	seen := map[string]bool{}
	for _, k := range known {
		if v, ok := orgContext[k.key]; ok {
			lines = append(lines, fmt.Sprintf("%s: %s", k.label, v))
			seen[k.key] = true
		}
	}
	for _, key := range sortedKeys(orgContext) {
		if !seen[key] {
			lines = append(lines, fmt.Sprintf("%s: %s", key, orgContext[key]))
		}
	}
	return strings.Join(lines, "\n")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
