// Package providers adapts concrete LLM SDKs to the gateway's
// provider-agnostic chat contract and holds the Provider Registry
// that the Model Router selects from.
package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mira-ai/sentinel/pkg/models"
)

// LLMProvider is the single operation every provider backend exposes.
type LLMProvider interface {
	// ID is the provider's registry key, e.g. "anthropic" or "openai".
	ID() string
	// Chat sends a request and returns the model's response.
	Chat(ctx context.Context, req models.CompletionRequest) (models.CompletionResponse, error)
	// Models lists the advertised model identifiers; the Model Router
	// uses the first one as the provider's default model.
	Models() []string
}

// Registry holds configured providers keyed by id and exposes the
// cost/quality rankings the Model Router consults.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]LLMProvider
	descs     map[string]models.ProviderDescriptor
	costOrder []string
	qualOrder []string
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]LLMProvider),
		descs:     make(map[string]models.ProviderDescriptor),
	}
}

// Register adds or replaces a provider under its own ID.
func (r *Registry) Register(p LLMProvider, desc models.ProviderDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
	r.descs[p.ID()] = desc
}

// Get returns the provider registered under id.
func (r *Registry) Get(id string) (LLMProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// Descriptor returns the static descriptor for a registered provider.
func (r *Registry) Descriptor(id string) (models.ProviderDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[id]
	return d, ok
}

// SetPriorities configures the independent cost and quality orderings
// consulted by the Model Router. Both are provider-id lists, most
// preferred first.
func (r *Registry) SetPriorities(costOrder, qualityOrder []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.costOrder = append([]string(nil), costOrder...)
	r.qualOrder = append([]string(nil), qualityOrder...)
}

// CheapestFirst returns selectable provider ids ordered by the
// configured cost priority, followed by any provider missing from the
// configured list in alphabetical id order.
func (r *Registry) CheapestFirst() []string {
	return r.ordered(r.costOrder)
}

// HighestQualityFirst returns selectable provider ids ordered by the
// configured quality priority.
func (r *Registry) HighestQualityFirst() []string {
	return r.ordered(r.qualOrder)
}

// All returns every selectable provider id in alphabetical order.
func (r *Registry) All() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id, d := range r.descs {
		if d.Selectable() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Count reports how many providers are registered, selectable or not.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

func (r *Registry) ordered(priority []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, id := range priority {
		d, ok := r.descs[id]
		if !ok || !d.Selectable() || seen[id] {
			continue
		}
		out = append(out, id)
		seen[id] = true
	}
	// Append any selectable provider not named in the priority list,
	// in deterministic order, so a registry with no configured
	// priorities still yields a usable ordering.
	var rest []string
	for id, d := range r.descs {
		if !d.Selectable() || seen[id] {
			continue
		}
		rest = append(rest, id)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// ErrNoProviders is returned by callers that need at least one
// configured provider and find none.
var ErrNoProviders = fmt.Errorf("providers: no LLM provider configured")
