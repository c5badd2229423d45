package coordinator_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"roundtable.app/roundtable/common/id"
	"roundtable.app/roundtable/common/llm"
	"roundtable.app/roundtable/core/config"
	"roundtable.app/roundtable/internal/coordinator"
	"roundtable.app/roundtable/internal/model"
	"roundtable.app/roundtable/internal/persona"
)

var basicIDs = []string{"startup_pm", "enterprise_pm", "tech_lead", "scrum_master", "eng_manager"}

func isInteractive(req llm.Request) bool {
	return strings.Contains(req.Messages[0].Content, "Engage with what the other participants")
}

var _ = Describe("Coordinator", func() {
	var (
		ctx         context.Context
		registry    *persona.Registry
		st          *memStore
		source      *mockClientSource
		facilClient *mockClient
		session     *model.DiscussionSession
	)

	cfg := config.Config{
		Discuss: config.DiscussConfig{InteractiveRounds: 2, MaxFanOut: 3},
		LLM: config.LLMSet{
			Persona:     config.LLMConfig{MaxTokens: 1024, Temperature: 0.7},
			Facilitator: config.LLMConfig{MaxTokens: 1024, Temperature: 0.5},
		},
	}

	BeforeEach(func() {
		ctx = context.Background()
		Expect(id.Init(1)).To(Succeed())

		var err error
		registry, err = persona.Load("")
		Expect(err).NotTo(HaveOccurred())

		st = newMemStore()
		source = &mockClientSource{
			clientForFn: func(name string, _ *llm.Override) (llm.Client, error) {
				return &mockClient{
					generateFn: func(_ context.Context, _ llm.Request) (string, error) {
						return "statement from " + name, nil
					},
				}, nil
			},
		}
		facilClient = &mockClient{model: "facilitator-model"}

		session = model.NewSession("Retaining engineers in a 25-person startup",
			map[string]string{"company_size": "25"})
	})

	newCoordinator := func() *coordinator.Coordinator {
		return coordinator.New(
			registry,
			source,
			coordinator.NewFacilitator(facilClient, cfg.LLM.Facilitator),
			&mockExtractor{
				extractFn: func(_ context.Context, _ string) ([]string, []string) {
					return []string{"shared issue"}, []string{"shared fix"}
				},
			},
			st,
			cfg,
		)
	}

	It("runs all phases and completes with one statement per participant per phase plus the summary", func() {
		err := newCoordinator().RunDiscussion(ctx, session)
		Expect(err).NotTo(HaveOccurred())

		Expect(session.Status).To(Equal(model.StatusCompleted))
		Expect(session.CompletedAt).NotTo(BeNil())
		Expect(session.Rounds).To(HaveLen(1))

		round := session.Rounds[0]
		Expect(round.Participants).To(Equal(basicIDs))
		Expect(round.CompletedAt).NotTo(BeNil())

		// 5 initial + 5x2 interactive + 5 consensus + 1 summary.
		Expect(round.Statements).To(HaveLen(21))
		for phase := 0; phase < 4; phase++ {
			for i, pid := range basicIDs {
				Expect(round.Statements[phase*5+i].PersonaID).To(Equal(pid))
			}
		}
		Expect(round.Statements[20].PersonaID).To(Equal(model.CoordinatorID))
		Expect(round.Statements[20].IdentifiedIssues).To(BeEmpty())

		// First checkpoint at round start, one per phase, one at completion.
		Expect(st.saveCalls).To(BeNumerically(">=", 6))

		// Every persona raised the same finding, so the merge yields one of
		// each with the full supporter count.
		Expect(session.FinalIssues).To(HaveLen(1))
		Expect(session.FinalIssues[0].Title).To(Equal("shared issue"))
		Expect(session.FinalIssues[0].Description).To(Equal("Raised in 20 statements."))
		Expect(session.FinalSolutions).To(HaveLen(1))
		Expect(session.FinalSolutions[0].Description).To(Equal("Raised in 20 proposals."))
	})

	It("keeps participant order even when early participants finish last", func() {
		source.clientForFn = func(name string, _ *llm.Override) (llm.Client, error) {
			return &mockClient{
				generateFn: func(_ context.Context, _ llm.Request) (string, error) {
					if name == basicIDs[0] {
						time.Sleep(30 * time.Millisecond)
					}
					return "statement from " + name, nil
				},
			}, nil
		}

		Expect(newCoordinator().RunDiscussion(ctx, session)).To(Succeed())

		round := session.Rounds[0]
		for i, pid := range basicIDs {
			Expect(round.Statements[i].PersonaID).To(Equal(pid))
		}
	})

	It("skips a persona whose interactive call fails and still completes", func() {
		var mu sync.Mutex
		failed := false
		source.clientForFn = func(name string, _ *llm.Override) (llm.Client, error) {
			return &mockClient{
				generateFn: func(_ context.Context, req llm.Request) (string, error) {
					if name == "tech_lead" && isInteractive(req) {
						mu.Lock()
						defer mu.Unlock()
						if !failed {
							failed = true
							return "", errors.New("provider hiccup")
						}
					}
					return "statement from " + name, nil
				},
			}, nil
		}

		err := newCoordinator().RunDiscussion(ctx, session)
		Expect(err).NotTo(HaveOccurred())

		Expect(session.Status).To(Equal(model.StatusCompleted))
		round := session.Rounds[0]
		Expect(round.CompletedAt).NotTo(BeNil())
		Expect(round.Statements).To(HaveLen(20))

		// The failed persona is absent for that phase, not replaced.
		interactiveFirst := round.Statements[5:9]
		for _, stmt := range interactiveFirst {
			Expect(stmt.PersonaID).NotTo(Equal("tech_lead"))
		}
		// And back for the next phase.
		var returned bool
		for _, stmt := range round.Statements[9:14] {
			if stmt.PersonaID == "tech_lead" {
				returned = true
			}
		}
		Expect(returned).To(BeTrue())
	})

	It("skips a persona whose client cannot be built", func() {
		source.clientForFn = func(name string, _ *llm.Override) (llm.Client, error) {
			if name == "scrum_master" {
				return nil, errors.New("no provider for this persona")
			}
			return &mockClient{
				generateFn: func(_ context.Context, _ llm.Request) (string, error) {
					return "statement from " + name, nil
				},
			}, nil
		}

		Expect(newCoordinator().RunDiscussion(ctx, session)).To(Succeed())

		// 4 speakers per phase across 4 phases, plus the summary.
		Expect(session.Status).To(Equal(model.StatusCompleted))
		Expect(session.Rounds[0].Statements).To(HaveLen(17))
	})

	It("completes the round without a summary when synthesis fails", func() {
		facilClient.generateFn = func(_ context.Context, req llm.Request) (string, error) {
			if strings.Contains(req.Messages[0].Content, "final summary report") {
				return "", errors.New("summary backend down")
			}
			return "facilitator text", nil
		}

		err := newCoordinator().RunDiscussion(ctx, session)
		Expect(err).NotTo(HaveOccurred())

		Expect(session.Status).To(Equal(model.StatusCompleted))
		round := session.Rounds[0]
		Expect(round.Statements).To(HaveLen(20))
		for _, stmt := range round.Statements {
			Expect(stmt.PersonaID).NotTo(Equal(model.CoordinatorID))
		}
		Expect(round.CompletedAt).NotTo(BeNil())
	})

	It("classifies a cancelled agenda call as fatal", func() {
		facilClient.generateFn = func(_ context.Context, req llm.Request) (string, error) {
			if strings.Contains(req.Messages[1].Content, "Organize this topic") {
				return "", fmt.Errorf("agenda call: %w", context.Canceled)
			}
			return "facilitator text", nil
		}

		err := newCoordinator().RunDiscussion(ctx, session)
		Expect(err).To(HaveOccurred())
		Expect(coordinator.IsRetryable(err)).To(BeFalse())
		Expect(session.Status).NotTo(Equal(model.StatusCompleted))
	})

	It("classifies a transient agenda failure as retryable", func() {
		facilClient.generateFn = func(_ context.Context, req llm.Request) (string, error) {
			if strings.Contains(req.Messages[1].Content, "Organize this topic") {
				return "", errors.New("connection reset by peer")
			}
			return "facilitator text", nil
		}

		err := newCoordinator().RunDiscussion(ctx, session)
		Expect(err).To(HaveOccurred())
		Expect(coordinator.IsRetryable(err)).To(BeTrue())
	})

	It("fails fatally when the session cannot be persisted at round start", func() {
		st.saveFn = func(context.Context, *model.DiscussionSession) error {
			return errors.New("disk full")
		}

		err := newCoordinator().RunDiscussion(ctx, session)
		Expect(err).To(HaveOccurred())
		Expect(coordinator.IsRetryable(err)).To(BeFalse())
	})

	It("rejects running a session that is already completed", func() {
		Expect(session.Advance(model.StatusRound1InProgress)).To(Succeed())
		Expect(session.Advance(model.StatusCompleted)).To(Succeed())

		err := newCoordinator().RunDiscussion(ctx, session)
		Expect(err).To(HaveOccurred())
		Expect(coordinator.IsRetryable(err)).To(BeFalse())
	})
})
