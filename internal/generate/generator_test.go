package generate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadintel/internal/config"
	"github.com/sells-group/leadintel/internal/resilience"
	"github.com/sells-group/leadintel/pkg/anthropic"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *mockGenerator) Name() string { return "mock" }

type fakeAnthropic struct {
	req  anthropic.MessageRequest
	resp *anthropic.MessageResponse
	err  error
}

func (f *fakeAnthropic) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestStage(t *testing.T) {
	assert.Equal(t, "generate", StageFrom(context.Background()))
	assert.Equal(t, "analysis", StageFrom(WithStage(context.Background(), "analysis")))
}

func TestGuarded_PassesThrough(t *testing.T) {
	m := new(mockGenerator)
	m.On("Generate", mock.Anything, "prompt").Return("text", nil).Once()

	g := NewGuarded(m, resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{}), time.Second)
	out, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "text", out)
	assert.Equal(t, "mock", g.Name())
	m.AssertExpectations(t)
}

func TestGuarded_OpensAfterFailuresAndNeverRetries(t *testing.T) {
	m := new(mockGenerator)
	m.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("unavailable")).Times(2)

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})
	g := NewGuarded(m, cb, 0)

	for i := 0; i < 2; i++ {
		_, err := g.Generate(context.Background(), "p")
		require.Error(t, err)
	}
	_, err := g.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)

	m.AssertNumberOfCalls(t, "Generate", 2)
}

func TestGuarded_Timeout(t *testing.T) {
	m := new(mockGenerator)
	m.On("Generate", mock.Anything, "p").Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return("", context.DeadlineExceeded)

	g := NewGuarded(m, nil, 10*time.Millisecond)
	_, err := g.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuarded_CloseWithoutCloser(t *testing.T) {
	assert.NoError(t, NewGuarded(new(mockGenerator), nil, 0).Close())
}

func TestAnthropicGenerator(t *testing.T) {
	fc := &fakeAnthropic{resp: &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"ok":true}`}},
		Usage:   anthropic.TokenUsage{InputTokens: 10, OutputTokens: 5},
	}}
	g := NewAnthropicGenerator(fc, "claude-haiku-4-5-20251001", 0)

	out, err := g.Generate(WithStage(context.Background(), "outreach"), "write an email")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, int64(defaultAnthropicMaxTokens), fc.req.MaxTokens)
	require.Len(t, fc.req.Messages, 1)
	assert.Equal(t, "user", fc.req.Messages[0].Role)
	assert.Equal(t, "write an email", fc.req.Messages[0].Content)
	assert.Equal(t, "anthropic", g.Name())
}

func TestAnthropicGenerator_Errors(t *testing.T) {
	_, err := NewAnthropicGenerator(&fakeAnthropic{err: errors.New("boom")}, "m", 100).Generate(context.Background(), "p")
	assert.EqualError(t, err, "boom")

	empty := &fakeAnthropic{resp: &anthropic.MessageResponse{StopReason: "max_tokens"}}
	_, err = NewAnthropicGenerator(empty, "m", 100).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), &config.Config{Generate: config.GenerateConfig{Provider: "openai"}})
	assert.ErrorContains(t, err, "unknown provider")

	_, err = New(context.Background(), &config.Config{Generate: config.GenerateConfig{Provider: "anthropic"}})
	assert.ErrorContains(t, err, "anthropic.key is required")

	_, err = New(context.Background(), &config.Config{Generate: config.GenerateConfig{Provider: "gemini"}})
	assert.ErrorContains(t, err, "api key is required")
}

func TestGuarded_WithoutBreakerEveryCallReachesBackend(t *testing.T) {
	m := new(mockGenerator)
	m.On("Generate", mock.Anything, "p").Return("", errors.New("unavailable")).Times(6)
	m.On("Generate", mock.Anything, "p").Return("recovered", nil).Once()

	g := NewGuarded(m, nil, time.Second)
	for i := 0; i < 6; i++ {
		_, err := g.Generate(context.Background(), "p")
		require.Error(t, err)
	}
	out, err := g.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	m.AssertNumberOfCalls(t, "Generate", 7)
}

func TestNew_BreakerIsOptIn(t *testing.T) {
	base := config.Config{Anthropic: config.AnthropicConfig{Key: "sk-test", Model: "claude-haiku-4-5-20251001"}}

	off := base
	off.Generate = config.GenerateConfig{Provider: "anthropic", TimeoutSecs: 5}
	g, err := New(context.Background(), &off)
	require.NoError(t, err)
	assert.Nil(t, g.breaker)

	on := base
	on.Generate = config.GenerateConfig{Provider: "anthropic", TimeoutSecs: 5, BreakerFailures: 3, BreakerResetSecs: 30}
	g, err = New(context.Background(), &on)
	require.NoError(t, err)
	require.NotNil(t, g.breaker)
	assert.Equal(t, resilience.CircuitClosed, g.breaker.State())
}

func TestNew_Anthropic(t *testing.T) {
	g, err := New(context.Background(), &config.Config{
		Generate:  config.GenerateConfig{Provider: "anthropic", TimeoutSecs: 5, BreakerFailures: 2},
		Anthropic: config.AnthropicConfig{Key: "sk-test", Model: "claude-haiku-4-5-20251001"},
	})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", g.Name())
	assert.NoError(t, g.Close())
}
