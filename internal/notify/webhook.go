package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadintel/internal/model"
)

// Webhook events.
const (
	EventLeadAnalyzed  = "lead.analyzed"
	EventHighScoreLead = "lead.high_score"
)

// WebhookPayload is the JSON body posted to automation webhooks.
type WebhookPayload struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Lead      WebhookLead `json:"lead"`
}

// WebhookLead is the lead summary carried in a webhook payload.
type WebhookLead struct {
	ID          string              `json:"id"`
	URL         string              `json:"url"`
	CompanyName string              `json:"company_name"`
	Industry    string              `json:"industry"`
	CompanySize string              `json:"company_size"`
	Location    string              `json:"location"`
	Score       float64             `json:"score"`
	Contacts    model.ContactBundle `json:"contacts"`
	PainPoints  []string            `json:"pain_points"`
	Summary     string              `json:"summary"`
	Email       model.OutreachEmail `json:"email"`
	Degraded    []string            `json:"degraded,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// NewWebhookPayload builds the payload for lead.
func NewWebhookPayload(event string, lead *model.Lead) WebhookPayload {
	return WebhookPayload{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Lead: WebhookLead{
			ID:          lead.ID,
			URL:         lead.URL,
			CompanyName: lead.Profile.Name,
			Industry:    lead.Profile.Industry,
			CompanySize: lead.Profile.Size,
			Location:    lead.Profile.Location,
			Score:       lead.Score,
			Contacts:    lead.Contacts,
			PainPoints:  lead.Profile.PainPoints,
			Summary:     lead.Profile.Summary,
			Email:       lead.Email,
			Degraded:    lead.Degraded,
			CreatedAt:   lead.CreatedAt,
		},
	}
}

// WebhookHook posts a JSON event to a URL.
type WebhookHook struct {
	name   string
	url    string
	event  string
	client *http.Client
}

// NewWebhookHook creates a webhook hook. A nil client uses http.DefaultClient.
func NewWebhookHook(name, url, event string, client *http.Client) *WebhookHook {
	if client == nil {
		client = http.DefaultClient
	}
	if event == "" {
		event = EventLeadAnalyzed
	}
	if name == "" {
		name = "webhook"
	}
	return &WebhookHook{name: name, url: url, event: event, client: client}
}

func (w *WebhookHook) Name() string { return w.name }

func (w *WebhookHook) Notify(ctx context.Context, lead *model.Lead) error {
	body, err := json.Marshal(NewWebhookPayload(w.event, lead))
	if err != nil {
		return eris.Wrap(err, "webhook: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "webhook: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Lead-Event", w.event)

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrapf(err, "webhook: post %s", w.name)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return eris.Errorf("webhook: %s returned %d: %s", w.name, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}
