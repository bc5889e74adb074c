package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mira-ai/sentinel/internal/providers"
)

// Route names a concrete provider/model pair chosen for a task.
type Route struct {
	Provider string
	Model    string
}

// ModelRouterConfig supplies the configuration-driven inputs the
// selection rule needs beyond the registry's own priority lists.
type ModelRouterConfig struct {
	DefaultProvider string
	DefaultModel    string
	CheapSubstrings []string
	ReasoningSubstrings []string
}

// ModelRouter chooses a (provider, model) pair per task complexity
// class, per the rule in the Provider Registry & Model Router
// component.
type ModelRouter struct {
	registry *providers.Registry
	cfg      ModelRouterConfig
}

// NewModelRouter constructs a ModelRouter over registry.
func NewModelRouter(registry *providers.Registry, cfg ModelRouterConfig) *ModelRouter {
	return &ModelRouter{registry: registry, cfg: cfg}
}

// Select returns the (provider, model) pair for the given complexity
// class, or an error if no provider is configured at all.
func (r *ModelRouter) Select(c Complexity) (Route, error) {
	all := r.registry.All()
	if len(all) == 0 {
		return Route{}, providers.ErrNoProviders
	}
	if len(all) == 1 {
		return r.firstModelRoute(all[0])
	}

	switch c {
	case Simple, Summarize:
		return r.pickFromOrdered(r.registry.CheapestFirst(), r.cfg.CheapSubstrings)
	case Complex:
		return r.pickFromOrdered(r.registry.HighestQualityFirst(), r.cfg.ReasoningSubstrings)
	default: // Moderate
		if r.cfg.DefaultProvider != "" {
			return Route{Provider: r.cfg.DefaultProvider, Model: r.cfg.DefaultModel}, nil
		}
		return r.firstModelRoute(all[0])
	}
}

// Candidates returns the ordered fallback chain for complexity class
// c: the selected route first, then the remaining providers in
// priority order. The Fallback Router consumes this list directly.
func (r *ModelRouter) Candidates(c Complexity) ([]Route, error) {
	primary, err := r.Select(c)
	if err != nil {
		return nil, err
	}

	var order []string
	switch c {
	case Simple, Summarize:
		order = r.registry.CheapestFirst()
	case Complex:
		order = r.registry.HighestQualityFirst()
	default:
		order = r.registry.All()
		sort.SliceStable(order, func(i, j int) bool {
			di, _ := r.registry.Descriptor(order[i])
			dj, _ := r.registry.Descriptor(order[j])
			return di.Priority < dj.Priority
		})
	}

	out := []Route{primary}
	seen := map[string]bool{primary.Provider: true}
	for _, id := range order {
		if seen[id] {
			continue
		}
		route, err := r.firstModelRoute(id)
		if err != nil {
			continue
		}
		out = append(out, route)
		seen[id] = true
	}
	return out, nil
}

func (r *ModelRouter) pickFromOrdered(order []string, substrings []string) (Route, error) {
	if len(order) == 0 {
		return Route{}, providers.ErrNoProviders
	}
	return r.matchSubstring(order[0], substrings)
}

func (r *ModelRouter) matchSubstring(providerID string, substrings []string) (Route, error) {
	p, ok := r.registry.Get(providerID)
	if !ok {
		return Route{}, fmt.Errorf("routing: provider %q not registered", providerID)
	}
	models := p.Models()
	if len(models) == 0 {
		return Route{Provider: providerID}, nil
	}
	for _, sub := range substrings {
		for _, m := range models {
			if strings.Contains(strings.ToLower(m), strings.ToLower(sub)) {
				return Route{Provider: providerID, Model: m}, nil
			}
		}
	}
	return Route{Provider: providerID, Model: models[0]}, nil
}

func (r *ModelRouter) firstModelRoute(providerID string) (Route, error) {
	p, ok := r.registry.Get(providerID)
	if !ok {
		return Route{}, fmt.Errorf("routing: provider %q not registered", providerID)
	}
	models := p.Models()
	model := ""
	if len(models) > 0 {
		model = models[0]
	}
	return Route{Provider: providerID, Model: model}, nil
}
