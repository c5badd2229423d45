package persona_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"roundtable.app/roundtable/common/id"
	"roundtable.app/roundtable/common/llm"
	"roundtable.app/roundtable/internal/model"
	"roundtable.app/roundtable/internal/persona"
)

var _ = Describe("Agent", func() {
	var (
		ctx      context.Context
		client   *mockClient
		profile  persona.Profile
		captured llm.Request
	)

	history := func(n int) []model.PersonaStatement {
		var out []model.PersonaStatement
		for i := 0; i < n; i++ {
			out = append(out, model.PersonaStatement{
				PersonaName:       string(rune('A' + i)),
				PersonaRole:       "Role",
				Statement:         strings.Repeat("x", 50),
				IdentifiedIssues:  []string{"an issue"},
				ProposedSolutions: []string{"a fix", "another fix"},
			})
		}
		return out
	}

	BeforeEach(func() {
		ctx = context.Background()
		Expect(id.Init(1)).To(Succeed())
		captured = llm.Request{}
		client = &mockClient{
			generateFn: func(_ context.Context, req llm.Request) (string, error) {
				captured = req
				return "generated statement", nil
			},
			model: "gpt-test",
		}
		profile = persona.Profile{
			ID:                 "startup_pm",
			Name:               "Maya Chen",
			Role:               "Startup PM",
			OrganizationType:   "Seed-stage startup",
			ExperienceYears:    6,
			Specialties:        []string{"discovery", "prioritization"},
			Perspective:        "speed over polish",
			CommunicationStyle: "direct",
		}
	})

	newAgent := func(extractor *mockExtractor) *persona.Agent {
		return persona.NewAgent(profile, client, extractor, persona.Options{MaxTokens: 2048})
	}

	It("builds a statement from the generated text and extraction result", func() {
		agent := newAgent(&mockExtractor{
			extractFn: func(_ context.Context, statement string) ([]string, []string) {
				Expect(statement).To(Equal("generated statement"))
				return []string{"issue one"}, []string{"fix one"}
			},
		})

		stmt, err := agent.Discuss(ctx, persona.DiscussRequest{
			Topic:       "scaling reviews",
			Type:        model.DiscussionTypeInitial,
			RoundNumber: 1,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(stmt.PersonaID).To(Equal("startup_pm"))
		Expect(stmt.PersonaName).To(Equal("Maya Chen"))
		Expect(stmt.Statement).To(Equal("generated statement"))
		Expect(stmt.IdentifiedIssues).To(Equal([]string{"issue one"}))
		Expect(stmt.ProposedSolutions).To(Equal([]string{"fix one"}))
		Expect(stmt.Model).To(Equal("gpt-test"))
		Expect(stmt.ID).NotTo(BeEmpty())

		Expect(captured.MaxTokens).To(Equal(2048))
		Expect(captured.Messages).To(HaveLen(2))
		Expect(captured.Messages[0].Content).To(ContainSubstring("Maya Chen"))
		Expect(captured.Messages[1].Content).To(ContainSubstring("scaling reviews"))
	})

	It("returns the generation error without a statement", func() {
		client.generateFn = func(context.Context, llm.Request) (string, error) {
			return "", errors.New("backend down")
		}
		stmt, err := newAgent(&mockExtractor{}).Discuss(ctx, persona.DiscussRequest{
			Topic: "t", Type: model.DiscussionTypeInitial, RoundNumber: 1,
		})
		Expect(err).To(MatchError(ContainSubstring("backend down")))
		Expect(stmt).To(BeNil())
	})

	Describe("prompt windows", func() {
		It("shows only the last two statements, truncated, in the initial phase", func() {
			long := strings.Repeat("y", 250)
			h := history(3)
			h[2].Statement = long

			_, err := newAgent(&mockExtractor{}).Discuss(ctx, persona.DiscussRequest{
				Topic: "t", History: h, Type: model.DiscussionTypeInitial, RoundNumber: 1,
			})
			Expect(err).NotTo(HaveOccurred())

			prompt := captured.Messages[1].Content
			Expect(prompt).NotTo(ContainSubstring("- A:"))
			Expect(prompt).To(ContainSubstring("- B:"))
			Expect(prompt).To(ContainSubstring("- C:"))
			Expect(prompt).To(ContainSubstring(strings.Repeat("y", 200) + "..."))
			Expect(prompt).NotTo(ContainSubstring(strings.Repeat("y", 201)))
		})

		It("quotes the last five statements in full in the interactive phase", func() {
			h := history(7)

			_, err := newAgent(&mockExtractor{}).Discuss(ctx, persona.DiscussRequest{
				Topic: "t", History: h, Type: model.DiscussionTypeInteractive, RoundNumber: 3,
			})
			Expect(err).NotTo(HaveOccurred())

			prompt := captured.Messages[1].Content
			Expect(prompt).NotTo(ContainSubstring("**B (Role) said:**"))
			Expect(prompt).To(ContainSubstring("**C (Role) said:**"))
			Expect(prompt).To(ContainSubstring("**G (Role) said:**"))
			Expect(prompt).To(ContainSubstring(strings.Repeat("x", 50)))
			Expect(prompt).To(ContainSubstring("Guidance for round 3"))
		})

		It("summarizes the full history by counts in the consensus phase", func() {
			h := history(4)

			_, err := newAgent(&mockExtractor{}).Discuss(ctx, persona.DiscussRequest{
				Topic: "t", History: h, Type: model.DiscussionTypeConsensus, RoundNumber: 1,
			})
			Expect(err).NotTo(HaveOccurred())

			prompt := captured.Messages[1].Content
			Expect(prompt).To(ContainSubstring("Issues identified: 4"))
			Expect(prompt).To(ContainSubstring("Solutions proposed: 8"))
			Expect(prompt).To(ContainSubstring("Consensus criteria"))
		})
	})
})
