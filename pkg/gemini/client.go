// Package gemini wraps the Google generative AI SDK for single-prompt text generation.
package gemini

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
)

// Client generates text from a single prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
	Close() error
}

// Config selects the model and sampling parameters.
type Config struct {
	Model       string
	Temperature float32
	// JSON asks the model for an application/json response.
	JSON bool
}

type sdkClient struct {
	client *genai.Client
	cfg    Config
}

// NewClient creates a Gemini client. The caller owns Close.
func NewClient(ctx context.Context, apiKey string, cfg Config, opts ...option.ClientOption) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: api key is required")
	}
	if cfg.Model == "" {
		return nil, eris.New("gemini: model is required")
	}

	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, all...)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &sdkClient{client: client, cfg: cfg}, nil
}

func (c *sdkClient) Generate(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.cfg.Model)
	model.SetTemperature(c.cfg.Temperature)
	if c.cfg.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", eris.Wrap(err, "gemini: generate content")
	}
	return ExtractText(resp)
}

func (c *sdkClient) Model() string { return c.cfg.Model }

func (c *sdkClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ExtractText joins the text parts of the first candidate.
func ExtractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", eris.New("gemini: nil response")
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", eris.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", eris.New("gemini: no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", eris.Errorf("gemini: no content in response (finish reason %s)", candidate.FinishReason)
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", eris.New("gemini: no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
