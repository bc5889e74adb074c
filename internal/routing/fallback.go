package routing

import (
	"context"
	"sync"
	"time"

	"github.com/mira-ai/sentinel/internal/providers"
	"github.com/mira-ai/sentinel/pkg/models"
)

// FallbackConfig tunes the Fallback Router's per-call timeout and
// circuit breaker.
type FallbackConfig struct {
	PerCallTimeout          time.Duration
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

// DefaultFallbackConfig matches the spec's stated defaults.
func DefaultFallbackConfig() FallbackConfig {
	return FallbackConfig{
		PerCallTimeout:          90 * time.Second,
		CircuitBreakerThreshold: 3,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

// Attempt records the outcome of trying one candidate.
type Attempt struct {
	Provider  string
	Success   bool
	ErrorKind models.ErrorKind
	LatencyMs int64
}

// Result is everything the Fallback Router hands back to its caller.
type Result struct {
	Response     models.CompletionResponse
	Provider     string
	Model        string
	Attempts     []Attempt
	ElapsedTotal time.Duration
}

type circuitState struct {
	failures    int
	openedAt    time.Time
	open        bool
}

// FallbackRouter wraps a ModelRouter, trying candidates in order on
// classified retryable errors and tracking a per-provider circuit
// breaker.
type FallbackRouter struct {
	registry *providers.Registry
	model    *ModelRouter
	cfg      FallbackConfig
	now      func() time.Time

	mu       sync.Mutex
	circuits map[string]*circuitState
}

// NewFallbackRouter constructs a FallbackRouter.
func NewFallbackRouter(registry *providers.Registry, model *ModelRouter, cfg FallbackConfig) *FallbackRouter {
	if cfg.PerCallTimeout <= 0 {
		cfg = DefaultFallbackConfig()
	}
	return &FallbackRouter{
		registry: registry,
		model:    model,
		cfg:      cfg,
		now:      time.Now,
		circuits: make(map[string]*circuitState),
	}
}

// Chat tries each candidate for complexity c in order, skipping
// providers whose circuit is open, stopping at the first success or
// the first non-retryable classified error, and falling through the
// whole chain on retryable errors.
func (f *FallbackRouter) Chat(ctx context.Context, c Complexity, req models.CompletionRequest) (Result, error) {
	start := f.now()

	candidates, err := f.model.Candidates(c)
	if err != nil {
		return Result{}, err
	}

	var attempts []Attempt
	var lastErr error

	for _, route := range candidates {
		if f.circuitOpen(route.Provider) {
			continue
		}

		p, ok := f.registry.Get(route.Provider)
		if !ok {
			continue
		}

		attemptStart := f.now()
		callCtx, cancel := context.WithTimeout(ctx, f.cfg.PerCallTimeout)
		callReq := req
		callReq.Model = route.Model
		resp, err := p.Chat(callCtx, callReq)
		cancel()
		latency := f.now().Sub(attemptStart)

		if err == nil {
			f.recordSuccess(route.Provider)
			attempts = append(attempts, Attempt{Provider: route.Provider, Success: true, LatencyMs: latency.Milliseconds()})
			return Result{
				Response:     resp,
				Provider:     route.Provider,
				Model:        route.Model,
				Attempts:     attempts,
				ElapsedTotal: f.now().Sub(start),
			}, nil
		}

		kind := ClassifyError(err)
		if isContextTimeout(callCtx.Err()) {
			kind = models.ErrTimeout
		}
		f.recordFailure(route.Provider)
		attempts = append(attempts, Attempt{Provider: route.Provider, Success: false, ErrorKind: kind, LatencyMs: latency.Milliseconds()})
		lastErr = models.NewGatewayError(kind, "provider attempt failed", err)

		if !kind.Retryable() {
			break
		}
	}

	return Result{Attempts: attempts, ElapsedTotal: f.now().Sub(start)}, lastErr
}

func (f *FallbackRouter) circuitOpen(provider string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.circuits[provider]
	if !ok || !c.open {
		return false
	}
	if f.now().Sub(c.openedAt) >= f.cfg.CircuitBreakerTimeout {
		c.open = false
		c.failures = 0
		return false
	}
	return true
}

func (f *FallbackRouter) recordSuccess(provider string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.circuits[provider]; ok {
		c.failures = 0
		c.open = false
	}
}

func (f *FallbackRouter) recordFailure(provider string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.circuits[provider]
	if !ok {
		c = &circuitState{}
		f.circuits[provider] = c
	}
	c.failures++
	if c.failures >= f.cfg.CircuitBreakerThreshold {
		c.open = true
		c.openedAt = f.now()
	}
}
