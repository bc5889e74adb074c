package providers

import (
	"context"
	"testing"

	"github.com/mira-ai/sentinel/pkg/models"
)

type stubProvider struct {
	id     string
	models []string
	fn     func(ctx context.Context, req models.CompletionRequest) (models.CompletionResponse, error)
}

func (s *stubProvider) ID() string     { return s.id }
func (s *stubProvider) Models() []string { return s.models }
func (s *stubProvider) Chat(ctx context.Context, req models.CompletionRequest) (models.CompletionResponse, error) {
	return s.fn(ctx, req)
}

func TestRegistryOrderingFallsBackToAlphabeticalForUnlisted(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{id: "b"}, models.ProviderDescriptor{ID: "b", HasCreds: true})
	r.Register(&stubProvider{id: "a"}, models.ProviderDescriptor{ID: "a", HasCreds: true})

	got := r.CheapestFirst()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected alphabetical fallback [a b], got %v", got)
	}
}

func TestRegistryOrderingHonorsConfiguredPriority(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{id: "openai"}, models.ProviderDescriptor{ID: "openai", HasCreds: true})
	r.Register(&stubProvider{id: "anthropic"}, models.ProviderDescriptor{ID: "anthropic", HasCreds: true})
	r.SetPriorities([]string{"anthropic", "openai"}, []string{"openai", "anthropic"})

	if got := r.CheapestFirst(); got[0] != "anthropic" {
		t.Fatalf("expected anthropic first by cost, got %v", got)
	}
	if got := r.HighestQualityFirst(); got[0] != "openai" {
		t.Fatalf("expected openai first by quality, got %v", got)
	}
}

func TestRegistryExcludesUnselectableProviders(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{id: "nocreds"}, models.ProviderDescriptor{ID: "nocreds", HasCreds: false})
	r.Register(&stubProvider{id: "local"}, models.ProviderDescriptor{ID: "local", Endpoint: "local"})

	all := r.All()
	if len(all) != 1 || all[0] != "local" {
		t.Fatalf("expected only the no-auth local provider selectable, got %v", all)
	}
}
