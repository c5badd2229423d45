package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"roundtable.app/roundtable/common/id"
	"roundtable.app/roundtable/core/config"
	"roundtable.app/roundtable/internal/coordinator"
	"roundtable.app/roundtable/internal/extract"
	"roundtable.app/roundtable/internal/model"
	"roundtable.app/roundtable/internal/persona"
	"roundtable.app/roundtable/internal/service"
	"roundtable.app/roundtable/internal/store"
)

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		st       *memStore
		registry *persona.Registry
		svc      *service.Service
	)

	cfg := config.Config{
		Discuss: config.DiscussConfig{InteractiveRounds: 2, MaxFanOut: 3},
		LLM: config.LLMSet{
			Persona:     config.LLMConfig{Provider: "openai", APIKey: "k", Model: "gpt-4o"},
			Facilitator: config.LLMConfig{Provider: "openai", APIKey: "k", Model: "gpt-4o"},
		},
	}

	newService := func(withCoordinator bool) *service.Service {
		var coord *coordinator.Coordinator
		if withCoordinator {
			coord = coordinator.New(
				registry,
				&mockClientSource{},
				coordinator.NewFacilitator(&mockClient{}, cfg.LLM.Facilitator),
				extract.NewHeuristic(),
				st,
				cfg,
			)
		}
		return service.New(st, coord, registry, cfg)
	}

	BeforeEach(func() {
		ctx = context.Background()
		Expect(id.Init(1)).To(Succeed())

		var err error
		registry, err = persona.Load("")
		Expect(err).NotTo(HaveOccurred())

		st = newMemStore()
		svc = newService(true)
	})

	Describe("Create", func() {
		It("persists a new initialized session", func() {
			session, err := svc.Create(ctx, "retention", map[string]string{"industry": "saas"})
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Status).To(Equal(model.StatusInitialized))

			loaded, err := st.Load(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Topic).To(Equal("retention"))
		})

		It("rejects an empty topic", func() {
			_, err := svc.Create(ctx, "   ", nil)
			Expect(err).To(MatchError(service.ErrEmptyTopic))
		})
	})

	Describe("Run", func() {
		It("is refused when the process has no coordinator", func() {
			readOnly := newService(false)
			session, err := readOnly.Create(ctx, "topic", nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(readOnly.Run(ctx, session.ID)).To(HaveOccurred())
		})

		It("fails for an unknown session", func() {
			err := svc.Run(ctx, "missing")
			Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
		})

		It("treats a redelivered completed session as a no-op", func() {
			session, err := svc.Create(ctx, "topic", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Advance(model.StatusRound1InProgress)).To(Succeed())
			Expect(session.Advance(model.StatusCompleted)).To(Succeed())
			Expect(st.Save(ctx, session)).To(Succeed())

			Expect(svc.Run(ctx, session.ID)).To(Succeed())

			loaded, err := st.Load(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Status).To(Equal(model.StatusCompleted))
		})

		It("rejects a session that already failed, fatally", func() {
			session, err := svc.Create(ctx, "topic", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Advance(model.StatusFailed)).To(Succeed())
			Expect(st.Save(ctx, session)).To(Succeed())

			err = svc.Run(ctx, session.ID)
			Expect(err).To(HaveOccurred())
			Expect(coordinator.IsRetryable(err)).To(BeFalse())
		})
	})

	Describe("Start", func() {
		It("creates, runs, and returns the completed session", func() {
			session, err := svc.Start(ctx, "topic", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Status).To(Equal(model.StatusCompleted))
			Expect(session.Rounds).To(HaveLen(1))
		})
	})

	Describe("Report", func() {
		It("requires a completed session", func() {
			session, err := svc.Create(ctx, "topic", nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Report(ctx, session.ID)
			Expect(errors.Is(err, service.ErrNotCompleted)).To(BeTrue())
		})

		It("renders the same document on repeated calls", func() {
			session, err := svc.Start(ctx, "topic", nil)
			Expect(err).NotTo(HaveOccurred())

			first, err := svc.Report(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(ContainSubstring("# Discussion Report"))

			second, err := svc.Report(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})
	})

	Describe("Status", func() {
		It("summarizes an existing session", func() {
			session, err := svc.Create(ctx, "retention", nil)
			Expect(err).NotTo(HaveOccurred())

			summary, err := svc.Status(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.SessionID).To(Equal(session.ID))
			Expect(summary.Status).To(Equal(string(model.StatusInitialized)))
			Expect(summary.CompletedAt).To(BeNil())
		})

		It("propagates not found", func() {
			_, err := svc.Status(ctx, "missing")
			Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("Health", func() {
		It("reports configured providers and reachable storage", func() {
			h := svc.Health(ctx)
			Expect(h.Status).To(Equal("healthy"))
			Expect(h.Storage).To(Equal("ok"))
			Expect(h.Providers["persona"]).To(Equal("openai/gpt-4o"))
			Expect(h.Providers["extractor"]).To(Equal("unconfigured"))
		})

		It("degrades when storage is unreachable", func() {
			st.pingFn = func(context.Context) error { return errors.New("directory gone") }
			h := svc.Health(ctx)
			Expect(h.Status).To(Equal("unhealthy"))
			Expect(h.Storage).To(ContainSubstring("directory gone"))
		})
	})
})
