package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadintel/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertRunFailureRate  AlertType = "run_failure_rate"
	AlertBackendDegraded AlertType = "backend_degraded"
	AlertHookFailures    AlertType = "hook_failures"
)

const (
	defaultMinRuns      = 5
	defaultAlertTimeout = 10 * time.Second
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitorConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitor config.
func NewAlerter(cfg config.MonitorConfig) *Alerter {
	if cfg.MinRuns <= 0 {
		cfg.MinRuns = defaultMinRuns
	}
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: defaultAlertTimeout},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
// Rate alerts need at least MinRuns runs in the window; a zero threshold
// disables its alert.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if a.cfg.FailureRateThreshold > 0 && snap.RunsTotal >= a.cfg.MinRuns && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertRunFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Lead run failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d runs in last %dm)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.RunsFailed, snap.RunsTotal, snap.LookbackMins,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.RunsFailed,
				"total":        snap.RunsTotal,
			},
			Timestamp: now,
		})
	}

	if a.cfg.DegradedRateThreshold > 0 && snap.RunsSucceeded >= a.cfg.MinRuns && snap.DegradedRate > a.cfg.DegradedRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertBackendDegraded,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%.1f%% of leads used fallback output (%d of %d in last %dm); the generative backend may be down",
				snap.DegradedRate*100, snap.RunsDegraded, snap.RunsSucceeded, snap.LookbackMins,
			),
			Details: map[string]any{
				"degraded_rate": snap.DegradedRate,
				"threshold":     a.cfg.DegradedRateThreshold,
				"degraded":      snap.RunsDegraded,
				"succeeded":     snap.RunsSucceeded,
			},
			Timestamp: now,
		})
	}

	if a.cfg.HookFailureThreshold > 0 {
		names := make([]string, 0, len(snap.HookFailures))
		for name := range snap.HookFailures {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			n := snap.HookFailures[name]
			if n < a.cfg.HookFailureThreshold {
				continue
			}
			alerts = append(alerts, Alert{
				Type:      AlertHookFailures,
				Severity:  "medium",
				Message:   fmt.Sprintf("Hook %s failed %d times in last %dm", name, n, snap.LookbackMins),
				Details:   map[string]any{"hook": name, "failures": n},
				Timestamp: now,
			})
		}
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
