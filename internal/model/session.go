package model

import (
	"fmt"
	"time"

	"roundtable.app/roundtable/common/id"
)

// SessionStatus represents lifecycle state of a discussion session.
// Status only moves forward through the state machine; FAILED is an
// absorbing state reachable from any non-terminal state.
type SessionStatus string

const (
	StatusInitialized      SessionStatus = "initialized"
	StatusRound1InProgress SessionStatus = "round1_in_progress"
	StatusCompleted        SessionStatus = "completed"
	StatusFailed           SessionStatus = "failed"
)

var statusRank = map[SessionStatus]int{
	StatusInitialized:      0,
	StatusRound1InProgress: 1,
	StatusCompleted:        2,
}

// DiscussionType represents the intent of a persona invocation within a phase.
type DiscussionType string

const (
	DiscussionTypeInitial     DiscussionType = "initial"
	DiscussionTypeInteractive DiscussionType = "interactive"
	DiscussionTypeConsensus   DiscussionType = "consensus"
)

// CoordinatorID is the distinguished identity used for the synthesized
// summary statement. It is not a persona and never appears in a round's
// participant set.
const (
	CoordinatorID   = "coordinator"
	CoordinatorName = "Main Coordinator"
	CoordinatorRole = "Discussion Facilitator"
)

// PersonaStatement is one contribution to a round: the verbatim generated
// text plus the issues and solutions extracted from it. Immutable once
// created; appended to a round, never mutated afterward.
type PersonaStatement struct {
	ID                string    `json:"id"`
	PersonaID         string    `json:"persona_id"`
	PersonaName       string    `json:"persona_name"`
	PersonaRole       string    `json:"persona_role"`
	Statement         string    `json:"statement"`
	IdentifiedIssues  []string  `json:"identified_issues"`
	ProposedSolutions []string  `json:"proposed_solutions"`
	Model             string    `json:"llm_model"`
	CreatedAt         time.Time `json:"created_at"`
}

// DiscussionRound holds the ordered statements of one round. The participant
// set is fixed at creation; statement order reflects the fixed participant
// iteration order per phase, not arrival order.
type DiscussionRound struct {
	ID           string             `json:"id"`
	Participants []string           `json:"participants"`
	Statements   []PersonaStatement `json:"statements"`
	StartedAt    time.Time          `json:"started_at"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
}

// AddStatement appends a statement for a scheduled participant (or the
// coordinator identity). Statements for unknown identifiers are rejected.
func (r *DiscussionRound) AddStatement(stmt PersonaStatement) error {
	if stmt.PersonaID != CoordinatorID && !r.HasParticipant(stmt.PersonaID) {
		return fmt.Errorf("persona %q is not a participant of round %s", stmt.PersonaID, r.ID)
	}
	r.Statements = append(r.Statements, stmt)
	return nil
}

func (r *DiscussionRound) HasParticipant(personaID string) bool {
	for _, p := range r.Participants {
		if p == personaID {
			return true
		}
	}
	return false
}

// Complete marks the round finished. A round is complete once every scheduled
// phase has emitted its statements and the summary step has run.
func (r *DiscussionRound) Complete(now time.Time) {
	t := now.UTC()
	r.CompletedAt = &t
}

// IdentifiedIssue is a deduplicated final issue derived from the raw
// per-statement issue strings accumulated across a session.
type IdentifiedIssue struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ProposedSolution is a deduplicated final solution derived from the raw
// per-statement solution strings.
type ProposedSolution struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DiscussionSession is the aggregate owned by the coordinator for the
// lifetime of a discussion and persisted at defined checkpoints.
type DiscussionSession struct {
	ID                  string             `json:"session_id"`
	Topic               string             `json:"topic"`
	OrganizationContext map[string]string  `json:"organization_context"`
	Status              SessionStatus      `json:"status"`
	Rounds              []DiscussionRound  `json:"rounds"`
	FinalIssues         []IdentifiedIssue  `json:"final_issues"`
	FinalSolutions      []ProposedSolution `json:"final_solutions"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
	CompletedAt         *time.Time         `json:"completed_at,omitempty"`
}

func NewSession(topic string, orgContext map[string]string) *DiscussionSession {
	now := time.Now().UTC()
	if orgContext == nil {
		orgContext = map[string]string{}
	}
	return &DiscussionSession{
		ID:                  id.NewString(),
		Topic:               topic,
		OrganizationContext: orgContext,
		Status:              StatusInitialized,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// AddRound creates a round with a participant set fixed at creation and
// appends it to the session. Returns a pointer into the session's rounds.
func (s *DiscussionSession) AddRound(participants []string) *DiscussionRound {
	round := DiscussionRound{
		ID:           id.NewString(),
		Participants: append([]string(nil), participants...),
		StartedAt:    time.Now().UTC(),
	}
	s.Rounds = append(s.Rounds, round)
	s.touch()
	return &s.Rounds[len(s.Rounds)-1]
}

// Advance moves the session status forward. Regressions are rejected;
// the only transition out of order is into the terminal FAILED state.
func (s *DiscussionSession) Advance(next SessionStatus) error {
	if s.Status == StatusFailed {
		return fmt.Errorf("session %s already failed", s.ID)
	}
	if next == StatusFailed {
		s.Status = StatusFailed
		s.touch()
		return nil
	}
	if statusRank[next] < statusRank[s.Status] {
		return fmt.Errorf("invalid status transition %s -> %s", s.Status, next)
	}
	s.Status = next
	if next == StatusCompleted {
		now := time.Now().UTC()
		s.CompletedAt = &now
	}
	s.touch()
	return nil
}

func (s *DiscussionSession) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// CurrentRound returns the most recent round, or nil when none exists.
func (s *DiscussionSession) CurrentRound() *DiscussionRound {
	if len(s.Rounds) == 0 {
		return nil
	}
	return &s.Rounds[len(s.Rounds)-1]
}

// AllStatements returns every statement across rounds in emission order.
func (s *DiscussionSession) AllStatements() []PersonaStatement {
	var out []PersonaStatement
	for _, r := range s.Rounds {
		out = append(out, r.Statements...)
	}
	return out
}
