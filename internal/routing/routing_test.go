package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/mira-ai/sentinel/internal/providers"
	"github.com/mira-ai/sentinel/pkg/models"
)

type fakeProvider struct {
	id        string
	modelList []string
	fn        func(ctx context.Context, req models.CompletionRequest) (models.CompletionResponse, error)
}

func (f *fakeProvider) ID() string       { return f.id }
func (f *fakeProvider) Models() []string { return f.modelList }
func (f *fakeProvider) Chat(ctx context.Context, req models.CompletionRequest) (models.CompletionResponse, error) {
	return f.fn(ctx, req)
}

func TestClassifyErrorKinds(t *testing.T) {
	cases := map[string]models.ErrorKind{
		"rate limit exceeded":     models.ErrRateLimit,
		"request timeout":         models.ErrTimeout,
		"401 unauthorized":        models.ErrAuth,
		"quota exceeded, billing": models.ErrBilling,
		"500 internal server error": models.ErrProviderServerErr,
		"invalid request: bad request": models.ErrValidation,
		"model not found":         models.ErrNotFound,
		"connection reset by peer": models.ErrTransientNetwork,
		"maximum context length exceeded": models.ErrContextOverflow,
	}
	for msg, want := range cases {
		got := ClassifyError(errors.New(msg))
		if got != want {
			t.Errorf("ClassifyError(%q) = %s, want %s", msg, got, want)
		}
	}
}

func TestModelRouterSingleProviderAlwaysWins(t *testing.T) {
	reg := providers.NewRegistry()
	reg.Register(&fakeProvider{id: "only", modelList: []string{"m1"}}, models.ProviderDescriptor{ID: "only", HasCreds: true})
	mr := NewModelRouter(reg, ModelRouterConfig{})

	for _, c := range []Complexity{Simple, Moderate, Complex, Summarize} {
		route, err := mr.Select(c)
		if err != nil {
			t.Fatalf("select %s: %v", c, err)
		}
		if route.Provider != "only" {
			t.Fatalf("expected only provider for %s, got %s", c, route.Provider)
		}
	}
}

func TestModelRouterZeroProvidersErrors(t *testing.T) {
	mr := NewModelRouter(providers.NewRegistry(), ModelRouterConfig{})
	if _, err := mr.Select(Moderate); err != providers.ErrNoProviders {
		t.Fatalf("expected ErrNoProviders, got %v", err)
	}
}

func TestFallbackRouterSucceedsOnSecondCandidate(t *testing.T) {
	reg := providers.NewRegistry()
	reg.Register(&fakeProvider{id: "p1", modelList: []string{"m1"}, fn: func(ctx context.Context, req models.CompletionRequest) (models.CompletionResponse, error) {
		return models.CompletionResponse{}, errors.New("rate limit exceeded")
	}}, models.ProviderDescriptor{ID: "p1", HasCreds: true})
	reg.Register(&fakeProvider{id: "p2", modelList: []string{"m2"}, fn: func(ctx context.Context, req models.CompletionRequest) (models.CompletionResponse, error) {
		return models.CompletionResponse{Content: "ok"}, nil
	}}, models.ProviderDescriptor{ID: "p2", HasCreds: true})
	reg.SetPriorities([]string{"p1", "p2"}, []string{"p1", "p2"})

	mr := NewModelRouter(reg, ModelRouterConfig{})
	fr := NewFallbackRouter(reg, mr, DefaultFallbackConfig())

	result, err := fr.Chat(context.Background(), Moderate, models.CompletionRequest{})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if result.Provider != "p2" {
		t.Fatalf("expected p2 to win, got %s", result.Provider)
	}
	if len(result.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(result.Attempts))
	}
	if result.Attempts[0].Success || result.Attempts[0].ErrorKind != models.ErrRateLimit {
		t.Fatalf("expected first attempt to fail with rate-limit, got %+v", result.Attempts[0])
	}
	if !result.Attempts[1].Success {
		t.Fatalf("expected second attempt to succeed")
	}
}

func TestFallbackRouterStopsOnNonRetryable(t *testing.T) {
	reg := providers.NewRegistry()
	var calledP2 bool
	reg.Register(&fakeProvider{id: "p1", modelList: []string{"m1"}, fn: func(ctx context.Context, req models.CompletionRequest) (models.CompletionResponse, error) {
		return models.CompletionResponse{}, errors.New("401 unauthorized")
	}}, models.ProviderDescriptor{ID: "p1", HasCreds: true})
	reg.Register(&fakeProvider{id: "p2", modelList: []string{"m2"}, fn: func(ctx context.Context, req models.CompletionRequest) (models.CompletionResponse, error) {
		calledP2 = true
		return models.CompletionResponse{Content: "ok"}, nil
	}}, models.ProviderDescriptor{ID: "p2", HasCreds: true})
	reg.SetPriorities([]string{"p1", "p2"}, nil)

	mr := NewModelRouter(reg, ModelRouterConfig{})
	fr := NewFallbackRouter(reg, mr, DefaultFallbackConfig())

	_, err := fr.Chat(context.Background(), Simple, models.CompletionRequest{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calledP2 {
		t.Fatalf("expected chain to stop after non-retryable auth error")
	}
}
