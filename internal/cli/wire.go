package cli

import (
	"context"
	"fmt"

	"roundtable.app/roundtable/common/id"
	"roundtable.app/roundtable/common/llm"
	"roundtable.app/roundtable/common/logger"
	"roundtable.app/roundtable/core/config"
	"roundtable.app/roundtable/internal/coordinator"
	"roundtable.app/roundtable/internal/extract"
	"roundtable.app/roundtable/internal/persona"
	"roundtable.app/roundtable/internal/service"
	"roundtable.app/roundtable/internal/store"
)

type app struct {
	cfg      config.Config
	store    store.SessionStore
	registry *persona.Registry
}

// wireApp prepares the store-backed parts every command needs. LLM clients
// are only wired by discussionService, so read-only commands work without
// provider credentials.
func wireApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return nil, err
	}

	logger.Setup(cfg)

	if err := id.Init(3); err != nil {
		return nil, fmt.Errorf("initialize id generator: %w", err)
	}

	sessionStore, err := store.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initialize session store: %w", err)
	}

	registry, err := persona.Load(cfg.Personas.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load persona catalog: %w", err)
	}

	return &app{cfg: cfg, store: sessionStore, registry: registry}, nil
}

// readService returns a service without a coordinator. Attempting to run a
// discussion through it fails, which is what read-only commands want.
func (a *app) readService() *service.Service {
	return service.New(a.store, nil, a.registry, a.cfg)
}

// discussionService wires the full generation stack. Requires credentials
// for the persona and facilitator providers.
func (a *app) discussionService() (*service.Service, error) {
	if !a.cfg.LLM.Persona.Enabled() {
		return nil, fmt.Errorf("persona provider is not configured, set OPENAI_API_KEY or PERSONA_LLM_API_KEY")
	}
	if !a.cfg.LLM.Facilitator.Enabled() {
		return nil, fmt.Errorf("facilitator provider is not configured, set OPENAI_API_KEY or FACILITATOR_LLM_API_KEY")
	}

	facilitatorClient, err := llm.New(llm.Config{
		Provider: a.cfg.LLM.Facilitator.Provider,
		APIKey:   a.cfg.LLM.Facilitator.APIKey,
		BaseURL:  a.cfg.LLM.Facilitator.BaseURL,
		Model:    a.cfg.LLM.Facilitator.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("wire facilitator client: %w", err)
	}

	var extractorClient llm.Client
	if a.cfg.Discuss.ExtractionStrategy == "generative" {
		if !a.cfg.LLM.Extractor.Enabled() {
			return nil, fmt.Errorf("generative extraction requires EXTRACTOR_LLM_API_KEY")
		}
		extractorClient, err = llm.New(llm.Config{
			Provider: a.cfg.LLM.Extractor.Provider,
			APIKey:   a.cfg.LLM.Extractor.APIKey,
			BaseURL:  a.cfg.LLM.Extractor.BaseURL,
			Model:    a.cfg.LLM.Extractor.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("wire extractor client: %w", err)
		}
	}

	extractor, err := extract.New(a.cfg.Discuss, a.cfg.LLM.Extractor, extractorClient)
	if err != nil {
		return nil, fmt.Errorf("wire extractor: %w", err)
	}

	personaClients := llm.NewCache(llm.Config{
		Provider: a.cfg.LLM.Persona.Provider,
		APIKey:   a.cfg.LLM.Persona.APIKey,
		BaseURL:  a.cfg.LLM.Persona.BaseURL,
		Model:    a.cfg.LLM.Persona.Model,
	})

	coord := coordinator.New(
		a.registry,
		personaClients,
		coordinator.NewFacilitator(facilitatorClient, a.cfg.LLM.Facilitator),
		extractor,
		a.store,
		a.cfg,
	)

	return service.New(a.store, coord, a.registry, a.cfg), nil
}
