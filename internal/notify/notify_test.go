package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadintel/internal/config"
	"github.com/sells-group/leadintel/internal/model"
)

type mockHook struct {
	mock.Mock
	name string
}

func (m *mockHook) Name() string { return m.name }

func (m *mockHook) Notify(ctx context.Context, lead *model.Lead) error {
	return m.Called(ctx, lead).Error(0)
}

func sampleLead(score float64) model.Lead {
	return model.Lead{
		ID:      "lead-1",
		OwnerID: "u1",
		URL:     "https://acme.com",
		Profile: model.CompanyProfile{
			Name: "Acme", Industry: "Software", Size: "50-200", Location: "Austin, TX",
			Summary: "Widgets.", Services: []string{"widgets"}, PainPoints: []string{"manual ops"},
		},
		Score:     score,
		Contacts:  model.ContactBundle{Emails: []string{"hi@acme.com"}, Phones: []string{"+14437990238"}, Social: []string{}},
		Email:     model.OutreachEmail{Subject: "Hello", Body: "Body"},
		CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestDispatcher_DeliversToEveryHook(t *testing.T) {
	a := &mockHook{name: "a"}
	b := &mockHook{name: "b"}
	a.On("Notify", mock.Anything, mock.MatchedBy(func(l *model.Lead) bool { return l.ID == "lead-1" })).Return(nil).Once()
	b.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()

	d := NewDispatcher(time.Second, 0, a, b)
	d.Dispatch(context.Background(), sampleLead(7))
	d.Wait()

	a.AssertExpectations(t)
	b.AssertExpectations(t)
	assert.Equal(t, []string{"a", "b"}, d.Hooks())
	assert.Empty(t, d.Errors())
}

func TestDispatcher_FailureIsolated(t *testing.T) {
	bad := &mockHook{name: "bad"}
	good := &mockHook{name: "good"}
	boom := errors.New("503 from automation")
	bad.On("Notify", mock.Anything, mock.Anything).Return(boom).Once()
	good.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()

	d := NewDispatcher(0, 0, bad, good)
	d.Dispatch(context.Background(), sampleLead(7))
	d.Wait()

	good.AssertExpectations(t)
	select {
	case he := <-d.Errors():
		assert.Equal(t, "bad", he.Hook)
		assert.Equal(t, "lead-1", he.LeadID)
		assert.ErrorIs(t, he, boom)
	default:
		t.Fatal("expected a hook error")
	}
}

type blockingHook struct {
	release chan struct{}
	done    atomic.Bool
}

func (h *blockingHook) Name() string { return "slow" }

func (h *blockingHook) Notify(ctx context.Context, _ *model.Lead) error {
	select {
	case <-h.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	h.done.Store(true)
	return nil
}

func TestDispatcher_DoesNotBlockCaller(t *testing.T) {
	h := &blockingHook{release: make(chan struct{})}
	d := NewDispatcher(0, 0, h)

	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan struct{})
	go func() {
		d.Dispatch(ctx, sampleLead(7))
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a slow hook")
	}

	cancel()
	close(h.release)
	d.Wait()
	assert.True(t, h.done.Load(), "caller cancellation must not abort delivery")
}

type downHook struct{ name string }

func (h downHook) Name() string { return h.name }

func (downHook) Notify(context.Context, *model.Lead) error { return errors.New("connection refused") }

func TestDispatcher_KeepsEveryFailureOfABatch(t *testing.T) {
	const leads = 100
	hooks := []Hook{downHook{"notion"}, downHook{"salesforce"}}
	d := NewDispatcher(0, leads*len(hooks), hooks...)
	for i := 0; i < leads; i++ {
		lead := sampleLead(5)
		lead.ID = fmt.Sprintf("lead-%d", i)
		d.Dispatch(context.Background(), lead)
	}
	d.Wait()

	perHook := map[string]int{}
	for len(d.Errors()) > 0 {
		perHook[(<-d.Errors()).Hook]++
	}
	assert.Equal(t, map[string]int{"notion": leads, "salesforce": leads}, perHook)
}

func TestNewDispatcher_MinimumErrorBuffer(t *testing.T) {
	assert.Equal(t, minErrBuffer, cap(NewDispatcher(0, 0).Errors()))
	assert.Equal(t, minErrBuffer, cap(NewDispatcher(0, -3).Errors()))
	assert.Equal(t, 500, cap(NewDispatcher(0, 500).Errors()))
}

type panicHook struct{}

func (panicHook) Name() string { return "panicky" }

func (panicHook) Notify(context.Context, *model.Lead) error { panic("nil map") }

func TestDispatcher_RecoversPanics(t *testing.T) {
	d := NewDispatcher(0, 0, panicHook{})
	d.Dispatch(context.Background(), sampleLead(7))
	d.Wait()

	he := <-d.Errors()
	assert.Equal(t, "panicky", he.Hook)
	assert.Contains(t, he.Error(), "panic: nil map")
}

func TestDispatcher_NoHooks(t *testing.T) {
	d := NewDispatcher(time.Second, 0)
	d.Dispatch(context.Background(), sampleLead(7))
	d.Wait()
	assert.Empty(t, d.Hooks())
}

func TestWithMinScore(t *testing.T) {
	inner := &mockHook{name: "crm"}
	inner.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()

	gated := WithMinScore(inner, 8)
	assert.Equal(t, "crm", gated.Name())

	low := sampleLead(7.9)
	high := sampleLead(8)
	require.NoError(t, gated.Notify(context.Background(), &low))
	require.NoError(t, gated.Notify(context.Background(), &high))
	inner.AssertNumberOfCalls(t, "Notify", 1)

	assert.Same(t, inner, WithMinScore(inner, 0))
}

func TestWebhookHook(t *testing.T) {
	var got WebhookPayload
	var gotEvent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotEvent = r.Header.Get("X-Lead-Event")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	lead := sampleLead(9)
	h := NewWebhookHook("n8n", srv.URL, EventHighScoreLead, srv.Client())
	require.NoError(t, h.Notify(context.Background(), &lead))

	assert.Equal(t, EventHighScoreLead, gotEvent)
	assert.Equal(t, EventHighScoreLead, got.Event)
	assert.Equal(t, "Acme", got.Lead.CompanyName)
	assert.Equal(t, 9.0, got.Lead.Score)
	assert.Equal(t, []string{"hi@acme.com"}, got.Lead.Contacts.Emails)
	assert.False(t, got.Timestamp.IsZero())
}

func TestWebhookHook_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "workflow inactive", http.StatusNotFound)
	}))
	defer srv.Close()

	lead := sampleLead(5)
	err := NewWebhookHook("", srv.URL, "", nil).Notify(context.Background(), &lead)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 404")
	assert.Contains(t, err.Error(), "workflow inactive")
}

func TestHooksFromConfig(t *testing.T) {
	hooks, err := HooksFromConfig(config.NotifyConfig{
		TimeoutSecs:         5,
		LeadWebhookURL:      "https://hooks.example/lead",
		HighScoreWebhookURL: "https://hooks.example/hot",
		Webhooks:            []config.WebhookConfig{{Name: "zapier", URL: "https://hooks.example/z", MinScore: 6}},
		Notion:              config.NotionHookConfig{Token: "secret", DatabaseID: "db-1"},
	})
	require.NoError(t, err)

	var names []string
	for _, h := range hooks {
		names = append(names, h.Name())
	}
	assert.Equal(t, []string{"lead-webhook", "high-score-webhook", "zapier", "notion"}, names)

	_, gated := hooks[1].(*scoreGate)
	assert.True(t, gated)
	assert.Equal(t, defaultHighScore, hooks[1].(*scoreGate).min)
}

func TestHooksFromConfig_SalesforceKeyMissing(t *testing.T) {
	_, err := HooksFromConfig(config.NotifyConfig{
		Salesforce: config.SalesforceHookConfig{ClientID: "cid", KeyPath: "/nonexistent/key.pem"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "salesforce")
}

func TestHooksFromConfig_Empty(t *testing.T) {
	hooks, err := HooksFromConfig(config.NotifyConfig{})
	require.NoError(t, err)
	assert.Empty(t, hooks)
}
