package monitoring

import (
	"sync"
	"time"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/notify"
)

// MetricsSnapshot holds a point-in-time view of pipeline health.
type MetricsSnapshot struct {
	// Pipeline runs within the lookback window.
	RunsTotal     int     `json:"runs_total"`
	RunsSucceeded int     `json:"runs_succeeded"`
	RunsFailed    int     `json:"runs_failed"`
	RunsDegraded  int     `json:"runs_degraded"`
	FailRate      float64 `json:"fail_rate"`
	DegradedRate  float64 `json:"degraded_rate"`
	AvgScore      float64 `json:"avg_score"`

	// Hook delivery failures within the lookback window, by hook name.
	HookFailures map[string]int `json:"hook_failures"`

	LookbackMins int       `json:"lookback_mins"`
	CollectedAt  time.Time `json:"collected_at"`
}

type runEvent struct {
	at       time.Time
	failed   bool
	degraded bool
	score    float64
}

type hookEvent struct {
	at   time.Time
	hook string
}

// Collector records run outcomes and hook failures in memory. It satisfies
// pipeline.RunObserver.
type Collector struct {
	mu    sync.Mutex
	runs  []runEvent
	hooks []hookEvent
	now   func() time.Time
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{now: time.Now}
}

// ObserveRun records one pipeline outcome.
func (c *Collector) ObserveRun(lead *model.Lead, err error) {
	ev := runEvent{failed: err != nil || lead == nil}
	if !ev.failed {
		ev.degraded = len(lead.Degraded) > 0
		ev.score = lead.Score
	}
	c.mu.Lock()
	ev.at = c.now()
	c.runs = append(c.runs, ev)
	c.mu.Unlock()
}

// ObserveHookError records one failed hook delivery.
func (c *Collector) ObserveHookError(he *notify.HookError) {
	if he == nil {
		return
	}
	c.mu.Lock()
	c.hooks = append(c.hooks, hookEvent{at: c.now(), hook: he.Hook})
	c.mu.Unlock()
}

// Collect summarizes events newer than lookback and discards older ones.
func (c *Collector) Collect(lookback time.Duration) *MetricsSnapshot {
	now := c.now()
	cutoff := now.Add(-lookback)
	snap := &MetricsSnapshot{
		HookFailures: make(map[string]int),
		LookbackMins: int(lookback / time.Minute),
		CollectedAt:  now.UTC(),
	}

	c.mu.Lock()
	c.runs = pruneRuns(c.runs, cutoff)
	c.hooks = pruneHooks(c.hooks, cutoff)
	runs := append([]runEvent(nil), c.runs...)
	hooks := append([]hookEvent(nil), c.hooks...)
	c.mu.Unlock()

	var totalScore float64
	for _, r := range runs {
		snap.RunsTotal++
		if r.failed {
			snap.RunsFailed++
			continue
		}
		snap.RunsSucceeded++
		totalScore += r.score
		if r.degraded {
			snap.RunsDegraded++
		}
	}
	if snap.RunsTotal > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(snap.RunsTotal)
	}
	if snap.RunsSucceeded > 0 {
		snap.DegradedRate = float64(snap.RunsDegraded) / float64(snap.RunsSucceeded)
		snap.AvgScore = totalScore / float64(snap.RunsSucceeded)
	}

	for _, h := range hooks {
		snap.HookFailures[h.hook]++
	}
	return snap
}

// Events are appended in time order, so everything before the first event
// at or after cutoff is stale.
func pruneRuns(events []runEvent, cutoff time.Time) []runEvent {
	i := 0
	for i < len(events) && events[i].at.Before(cutoff) {
		i++
	}
	return events[i:]
}

func pruneHooks(events []hookEvent, cutoff time.Time) []hookEvent {
	i := 0
	for i < len(events) && events[i].at.Before(cutoff) {
		i++
	}
	return events[i:]
}
