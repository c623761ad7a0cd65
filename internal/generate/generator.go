// Package generate adapts generative AI backends to a single prompt-in,
// text-out contract and owns the parsing of their JSON responses.
package generate

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadintel/internal/config"
	"github.com/sells-group/leadintel/internal/resilience"
	"github.com/sells-group/leadintel/pkg/anthropic"
	"github.com/sells-group/leadintel/pkg/gemini"
)

// Generator produces text for a prompt in a single attempt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

type stageKey struct{}

// WithStage tags ctx with the pipeline stage issuing the prompt. Adapters
// use it for cost and log attribution.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

// StageFrom returns the stage set by WithStage, or "generate".
func StageFrom(ctx context.Context) string {
	if s, ok := ctx.Value(stageKey{}).(string); ok && s != "" {
		return s
	}
	return "generate"
}

// Guarded bounds each call with a timeout. With a circuit breaker attached, a
// failing backend is skipped until the breaker probes again; without one,
// every call reaches the backend.
type Guarded struct {
	inner   Generator
	breaker *resilience.CircuitBreaker
	timeout time.Duration
	closer  func() error
}

// NewGuarded wraps inner. A nil breaker disables fail-fast; a non-positive
// timeout disables the deadline.
func NewGuarded(inner Generator, breaker *resilience.CircuitBreaker, timeout time.Duration) *Guarded {
	return &Guarded{inner: inner, breaker: breaker, timeout: timeout}
}

func (g *Guarded) Name() string { return g.inner.Name() }

// Generate calls the wrapped backend exactly once.
func (g *Guarded) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if g.breaker == nil {
		return g.inner.Generate(ctx, prompt)
	}
	return resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (string, error) {
		return g.inner.Generate(ctx, prompt)
	})
}

// Close releases the backend client, if it holds one.
func (g *Guarded) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}

// New builds the generator selected by cfg.Generate.Provider, wrapped with
// the configured timeout. A circuit breaker is attached only when
// generate.breaker_failures is positive. The caller owns Close.
func New(ctx context.Context, cfg *config.Config) (*Guarded, error) {
	var (
		inner  Generator
		closer func() error
	)
	switch cfg.Generate.Provider {
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("generate: anthropic.key is required")
		}
		inner = NewAnthropicGenerator(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key, gemini.Config{
			Model:       cfg.Gemini.Model,
			Temperature: cfg.Gemini.Temperature,
			JSON:        true,
		})
		if err != nil {
			return nil, eris.Wrap(err, "generate: gemini")
		}
		inner = NewGeminiGenerator(client)
		closer = client.Close
	default:
		return nil, eris.Errorf("generate: unknown provider %q", cfg.Generate.Provider)
	}

	var breaker *resilience.CircuitBreaker
	if cfg.Generate.BreakerFailures > 0 {
		breaker = resilience.NewCircuitBreaker(resilience.NewCircuitConfig(
			inner.Name(), cfg.Generate.BreakerFailures, cfg.Generate.BreakerResetSecs,
		))
	}
	g := NewGuarded(inner, breaker, time.Duration(cfg.Generate.TimeoutSecs)*time.Second)
	g.closer = closer
	return g, nil
}
