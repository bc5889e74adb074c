package main

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/mira-ai/sentinel/internal/agent"
	"github.com/mira-ai/sentinel/internal/bus"
	"github.com/mira-ai/sentinel/internal/config"
	"github.com/mira-ai/sentinel/internal/cron"
	"github.com/mira-ai/sentinel/internal/memory"
	"github.com/mira-ai/sentinel/internal/providers"
	"github.com/mira-ai/sentinel/internal/router"
	"github.com/mira-ai/sentinel/internal/routing"
	"github.com/mira-ai/sentinel/internal/sessions"
	"github.com/mira-ai/sentinel/internal/tools"
	"github.com/mira-ai/sentinel/internal/tools/builtin"
	"github.com/mira-ai/sentinel/internal/workspace"
	"github.com/mira-ai/sentinel/pkg/models"
)

// gateway bundles every collaborator wired from a loaded Config, in
// the dependency order the Agent Loop and Scheduler are built from.
type gateway struct {
	cfg *config.Config
	log *slog.Logger

	bus         *bus.Bus
	sessionMgr  *sessions.Manager
	router      *router.Router
	toolReg     *tools.Registry
	providerReg *providers.Registry
	modelRouter *routing.ModelRouter
	fallback    *routing.FallbackRouter
	workspace   *workspace.Loader
	memoryCtl   *memory.Controller
	compressor  *memory.Compressor
	agentLoop   *agent.Loop
	scheduler   *cron.Scheduler
}

// buildGateway constructs every gateway component from cfg. It does
// not start any background goroutines; callers invoke Start on the
// pieces they need (the Scheduler, in practice).
func buildGateway(cfg *config.Config, log *slog.Logger) (*gateway, error) {
	g := &gateway{cfg: cfg, log: log}

	g.bus = bus.New(log.With("component", "bus"))

	var sessionStore sessions.Store
	switch cfg.Session.Store {
	case "file":
		store, err := sessions.NewFileStore(cfg.Session.Path)
		if err != nil {
			return nil, fmt.Errorf("gateway: session store: %w", err)
		}
		sessionStore = store
	default:
		sessionStore = sessions.NewMemoryStore()
	}
	g.sessionMgr = sessions.NewManager(sessionStore, g.bus, log, cfg.Memory.IdleTimeout)

	g.router = router.New(g.sessionMgr, g.bus)

	g.toolReg = tools.NewRegistry(log)
	builtin.Register(g.toolReg)

	g.providerReg = providers.NewRegistry()
	if err := registerProviders(g.providerReg, cfg.LLM); err != nil {
		return nil, err
	}

	g.modelRouter = routing.NewModelRouter(g.providerReg, routing.ModelRouterConfig{
		DefaultProvider:     cfg.LLM.DefaultProvider,
		DefaultModel:        cfg.LLM.DefaultModel,
		CheapSubstrings:     cfg.LLM.CheapSubstrings,
		ReasoningSubstrings: cfg.LLM.ReasoningSubstrings,
	})
	g.fallback = routing.NewFallbackRouter(g.providerReg, g.modelRouter, routing.FallbackConfig{
		PerCallTimeout: cfg.LLM.PerCallTimeout,
	})

	g.workspace = workspace.NewLoader(cfg.Workspace.Root)
	if _, err := g.workspace.Bootstrap(); err != nil {
		return nil, fmt.Errorf("gateway: workspace bootstrap: %w", err)
	}

	g.memoryCtl = memory.NewController(memory.Config{
		KeepRecentMessages:       cfg.Memory.KeepRecentMessages,
		MaxMessagesBeforeCompact: cfg.Memory.MaxMessagesBeforeCompact,
	}, g.workspace)
	g.compressor = memory.NewCompressor(g.fallback)

	g.agentLoop = agent.New(
		g.sessionMgr,
		g.memoryCtl,
		g.compressor,
		g.modelRouter,
		g.fallback,
		g.toolReg,
		g.bus,
		log,
		agent.Config{
			MaxIterations: cfg.LLM.MaxIterations,
			MaxTokens:     cfg.LLM.MaxTokens,
		},
	)

	runLogs := cron.NewMemoryRunLogStore(50)
	var jobStore cron.JobStore
	if cfg.Cron.StorePath != "" {
		jobStore = cron.NewFileJobStore(cfg.Cron.StorePath)
	}
	g.scheduler = cron.New(
		g.sessionMgr,
		g.router,
		g.toolReg,
		g.agentLoop,
		runLogs,
		g.bus,
		log,
		cron.WithTickInterval(cfg.Cron.TickInterval),
		cron.WithJobTimeout(cfg.Cron.JobTimeout),
		cron.WithJobStore(jobStore),
		cron.WithAgentRunnerFactory(func(toolSubset *tools.Registry) cron.AgentRunner {
			return agent.New(
				g.sessionMgr,
				g.memoryCtl,
				g.compressor,
				g.modelRouter,
				g.fallback,
				toolSubset,
				g.bus,
				log,
				agent.Config{MaxIterations: cfg.LLM.MaxIterations, MaxTokens: cfg.LLM.MaxTokens},
			)
		}),
	)
	if err := g.scheduler.Load(); err != nil {
		return nil, fmt.Errorf("gateway: load cron jobs: %w", err)
	}
	for _, job := range cfg.CronJobs() {
		if err := g.scheduler.RegisterJob(job); err != nil {
			return nil, fmt.Errorf("gateway: register cron job %q: %w", job.ID, err)
		}
	}

	return g, nil
}

// registerProviders constructs and registers an LLMProvider for every
// entry in cfg.Providers keyed "anthropic" or "openai", and sets the
// registry's cost/quality priority orders from their configured ranks.
func registerProviders(reg *providers.Registry, cfg config.LLMConfig) error {
	if len(cfg.Providers) == 0 {
		return fmt.Errorf("gateway: no llm.providers configured")
	}

	type ranked struct {
		id   string
		cost int
		qual int
	}
	var order []ranked

	for id, pc := range cfg.Providers {
		desc := models.ProviderDescriptor{
			ID:       id,
			Endpoint: pc.BaseURL,
			HasCreds: pc.APIKey != "" || pc.BaseURL != "",
			Models:   pc.Models,
			Priority: pc.Priority,
		}
		switch id {
		case "anthropic":
			p, err := providers.NewAnthropicProvider(providers.AnthropicConfig{
				APIKey:       pc.APIKey,
				BaseURL:      pc.BaseURL,
				DefaultModel: pc.DefaultModel,
			})
			if err != nil {
				return fmt.Errorf("gateway: anthropic provider: %w", err)
			}
			reg.Register(p, desc)
		case "openai":
			p, err := providers.NewOpenAIProvider(providers.OpenAIConfig{
				APIKey:       pc.APIKey,
				BaseURL:      pc.BaseURL,
				DefaultModel: pc.DefaultModel,
			})
			if err != nil {
				return fmt.Errorf("gateway: openai provider: %w", err)
			}
			reg.Register(p, desc)
		default:
			return fmt.Errorf("gateway: unknown llm provider %q (supported: anthropic, openai)", id)
		}
		order = append(order, ranked{id: id, cost: pc.CostRank, qual: pc.QualityRank})
	}

	sort.Slice(order, func(i, j int) bool { return order[i].cost < order[j].cost })
	costOrder := make([]string, len(order))
	for i, r := range order {
		costOrder[i] = r.id
	}
	sort.Slice(order, func(i, j int) bool { return order[i].qual < order[j].qual })
	qualOrder := make([]string, len(order))
	for i, r := range order {
		qualOrder[i] = r.id
	}

	reg.SetPriorities(costOrder, qualOrder)
	return nil
}
