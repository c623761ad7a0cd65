// Package monitoring tracks lead run outcomes and hook failures in process
// and raises webhook alerts when they cross configured thresholds.
package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadintel/internal/config"
	"github.com/sells-group/leadintel/internal/notify"
)

// Checker runs periodic alert checks in the background.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitorConfig
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitorConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

func (c *Checker) lookback() time.Duration {
	if c.cfg.LookbackMins <= 0 {
		return time.Hour
	}
	return time.Duration(c.cfg.LookbackMins) * time.Minute
}

// Run feeds hook errors into the collector and evaluates alerts on every
// tick. It blocks until ctx is cancelled. hookErrs may be nil.
func (c *Checker) Run(ctx context.Context, hookErrs <-chan *notify.HookError) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker",
		zap.Duration("interval", interval),
		zap.Duration("lookback", c.lookback()),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case he, ok := <-hookErrs:
			if !ok {
				hookErrs = nil
				continue
			}
			c.collector.ObserveHookError(he)
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Drain records every hook error already buffered on hookErrs without
// blocking.
func (c *Checker) Drain(hookErrs <-chan *notify.HookError) {
	for {
		select {
		case he, ok := <-hookErrs:
			if !ok {
				return
			}
			c.collector.ObserveHookError(he)
		default:
			return
		}
	}
}

// Check collects a snapshot and sends any triggered alerts. It returns the
// alerts that fired.
func (c *Checker) Check(ctx context.Context) []Alert {
	snap := c.collector.Collect(c.lookback())
	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		zap.L().Debug("monitoring: no alerts triggered", zap.Int("runs", snap.RunsTotal))
		return nil
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	zap.L().Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
	return alerts
}
