package generate

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadintel/pkg/anthropic"
	"github.com/sells-group/leadintel/pkg/gemini"
)

const defaultAnthropicMaxTokens = 2048

// AnthropicGenerator sends each prompt as a single user message.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicGenerator creates an AnthropicGenerator.
func NewAnthropicGenerator(client anthropic.Client, model string, maxTokens int64) *AnthropicGenerator {
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicGenerator{client: client, model: model, maxTokens: maxTokens}
}

func (a *AnthropicGenerator) Name() string { return "anthropic" }

func (a *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(a.model, StageFrom(ctx))

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", eris.Errorf("anthropic: empty response (stop reason %s)", resp.StopReason)
	}
	return text, nil
}

// GeminiGenerator adapts a Gemini client.
type GeminiGenerator struct {
	client gemini.Client
}

// NewGeminiGenerator creates a GeminiGenerator.
func NewGeminiGenerator(client gemini.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Name() string { return "gemini" }

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.client.Generate(ctx, prompt)
}
