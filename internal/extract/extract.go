// Package extract derives structured issue and solution lists from the free
// text of a persona statement.
package extract

import (
	"context"
	"fmt"

	"roundtable.app/roundtable/common/llm"
	"roundtable.app/roundtable/core/config"
)

// Strategy turns one statement into issue and solution lists. Extraction is
// total: a strategy never returns an error, it degrades to empty lists and
// logs instead, so a bad extraction can never cost the statement itself.
type Strategy interface {
	Extract(ctx context.Context, statement string) (issues, solutions []string)
}

// New selects the configured strategy. The extractor client and its
// generation knobs are only used by the generative strategy.
func New(cfg config.DiscussConfig, llmCfg config.LLMConfig, client llm.Client) (Strategy, error) {
	switch cfg.ExtractionStrategy {
	case "heuristic", "":
		return NewHeuristic(), nil
	case "generative":
		if client == nil {
			return nil, fmt.Errorf("generative extraction requires an extractor client")
		}
		return NewGenerative(client, llmCfg), nil
	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", cfg.ExtractionStrategy)
	}
}
