package notify

import (
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadintel/internal/config"
	"github.com/sells-group/leadintel/pkg/notion"
	"github.com/sells-group/leadintel/pkg/salesforce"
)

// HooksFromConfig builds every hook enabled in cfg. Unconfigured hooks are
// skipped; a configured hook that cannot be initialized is an error.
func HooksFromConfig(cfg config.NotifyConfig) ([]Hook, error) {
	client := &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second}
	var hooks []Hook

	if cfg.LeadWebhookURL != "" {
		hooks = append(hooks, NewWebhookHook("lead-webhook", cfg.LeadWebhookURL, EventLeadAnalyzed, client))
	}
	if cfg.HighScoreWebhookURL != "" {
		threshold := cfg.HighScoreThreshold
		if threshold <= 0 {
			threshold = defaultHighScore
		}
		hooks = append(hooks, WithMinScore(
			NewWebhookHook("high-score-webhook", cfg.HighScoreWebhookURL, EventHighScoreLead, client),
			threshold,
		))
	}
	for _, wh := range cfg.Webhooks {
		event := EventLeadAnalyzed
		if wh.MinScore > 0 {
			event = EventHighScoreLead
		}
		hooks = append(hooks, WithMinScore(NewWebhookHook(wh.Name, wh.URL, event, client), wh.MinScore))
	}

	if cfg.Notion.Token != "" && cfg.Notion.DatabaseID != "" {
		hooks = append(hooks, NewNotionHook(notion.NewClient(cfg.Notion.Token), cfg.Notion.DatabaseID))
	}

	if cfg.Salesforce.ClientID != "" {
		sf, err := salesforce.Connect(salesforce.Creds{
			LoginURL: cfg.Salesforce.LoginURL,
			Username: cfg.Salesforce.Username,
			ClientID: cfg.Salesforce.ClientID,
			KeyPath:  cfg.Salesforce.KeyPath,
		}, salesforce.WithRateLimit(5))
		if err != nil {
			return nil, eris.Wrap(err, "notify: salesforce hook")
		}
		hooks = append(hooks, WithMinScore(NewSalesforceHook(sf), cfg.Salesforce.MinScore))
	}
	return hooks, nil
}

const defaultHighScore = 8.0
