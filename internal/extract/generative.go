package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"roundtable.app/roundtable/common/llm"
	"roundtable.app/roundtable/core/config"
)

var numberedLine = regexp.MustCompile(`^(\d+)\.\s*(.+)$`)

type generative struct {
	client llm.Client
	cfg    config.LLMConfig
}

// NewGenerative returns the strategy that issues a second generation call
// asking for issues and solutions in a numbered-list format, then parses the
// reply. Any failure, from the call itself to a reply with no recognizable
// sections, degrades to empty lists.
func NewGenerative(client llm.Client, cfg config.LLMConfig) Strategy {
	return generative{client: client, cfg: cfg}
}

func (g generative) Extract(ctx context.Context, statement string) ([]string, []string) {
	prompt := fmt.Sprintf(`Extract the concrete issues and solutions from the statement below.

Statement:
%s

Reply in exactly this format:

Issues:
1. [first issue]
2. [second issue]
...

Solutions:
1. [first solution]
2. [second solution]
...`, statement)

	reply, err := g.client.Generate(ctx, llm.Request{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: llm.Temp(g.cfg.Temperature),
		Timeout:     g.cfg.Timeout,
	})
	if err != nil {
		slog.WarnContext(ctx, "generative extraction failed", "error", err)
		return nil, nil
	}

	issues, solutions := parseSections(reply)
	slog.DebugContext(ctx, "generative extraction parsed",
		"issues_count", len(issues), "solutions_count", len(solutions))
	return issues, solutions
}

// parseSections walks the reply line by line. Section markers switch the
// target list; numbered lines append to whichever section is active. Lines
// before the first marker are ignored. No cap is applied.
func parseSections(reply string) ([]string, []string) {
	var issues, solutions []string
	section := ""

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Issues:"):
			section = "issues"
		case strings.HasPrefix(line, "Solutions:"):
			section = "solutions"
		default:
			m := numberedLine.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			item := strings.TrimSpace(m[2])
			if item == "" {
				continue
			}
			switch section {
			case "issues":
				issues = append(issues, item)
			case "solutions":
				solutions = append(solutions, item)
			}
		}
	}
	return issues, solutions
}
