// Package notify delivers persisted leads to external automation hooks.
// Delivery is best effort: failures are logged and reported on the
// dispatcher's error channel, never returned to the pipeline caller.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadintel/internal/model"
)

// Hook delivers a lead to one external endpoint.
type Hook interface {
	Name() string
	Notify(ctx context.Context, lead *model.Lead) error
}

// HookError records a failed delivery.
type HookError struct {
	Hook   string
	LeadID string
	Err    error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("notify: hook %s lead %s: %v", e.Hook, e.LeadID, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// scoreGate forwards only leads scoring at or above min.
type scoreGate struct {
	Hook
	min float64
}

// WithMinScore restricts h to leads whose score is at least minScore. A
// non-positive minScore returns h unchanged.
func WithMinScore(h Hook, minScore float64) Hook {
	if minScore <= 0 {
		return h
	}
	return &scoreGate{Hook: h, min: minScore}
}

func (g *scoreGate) Notify(ctx context.Context, lead *model.Lead) error {
	if !lead.IsHighScore(g.min) {
		return nil
	}
	return g.Hook.Notify(ctx, lead)
}

// minErrBuffer is the smallest error buffer a Dispatcher gets.
const minErrBuffer = 64

// Dispatcher fans a lead out to every hook concurrently without blocking
// the caller.
type Dispatcher struct {
	hooks   []Hook
	timeout time.Duration
	errs    chan *HookError
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Each delivery is bounded by timeout
// when positive. errBuffer is how many failures Errors holds while nobody
// drains it; callers that read Errors only after Wait should size it to
// leads*hooks for the batch.
func NewDispatcher(timeout time.Duration, errBuffer int, hooks ...Hook) *Dispatcher {
	if errBuffer < minErrBuffer {
		errBuffer = minErrBuffer
	}
	return &Dispatcher{
		hooks:   hooks,
		timeout: timeout,
		errs:    make(chan *HookError, errBuffer),
	}
}

// Hooks returns the names of the configured hooks.
func (d *Dispatcher) Hooks() []string {
	names := make([]string, len(d.hooks))
	for i, h := range d.hooks {
		names[i] = h.Name()
	}
	return names
}

// Errors reports failed deliveries. Errors are dropped when nobody drains
// the channel and its buffer is full; they are always logged.
func (d *Dispatcher) Errors() <-chan *HookError { return d.errs }

// Dispatch starts one delivery per hook and returns immediately. Deliveries
// outlive ctx cancellation so a finished request does not abort them.
func (d *Dispatcher) Dispatch(ctx context.Context, lead model.Lead) {
	if len(d.hooks) == 0 {
		return
	}
	base := context.WithoutCancel(ctx)
	for _, h := range d.hooks {
		d.wg.Add(1)
		go func(h Hook) {
			defer d.wg.Done()
			d.deliver(base, h, &lead)
		}(h)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, h Hook, lead *model.Lead) {
	log := zap.L().With(zap.String("hook", h.Name()), zap.String("lead_id", lead.ID))
	defer func() {
		if r := recover(); r != nil {
			d.report(log, &HookError{Hook: h.Name(), LeadID: lead.ID, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := h.Notify(ctx, lead); err != nil {
		d.report(log, &HookError{Hook: h.Name(), LeadID: lead.ID, Err: err})
		return
	}
	log.Debug("notify: delivered", zap.Int64("duration_ms", time.Since(start).Milliseconds()))
}

func (d *Dispatcher) report(log *zap.Logger, he *HookError) {
	log.Warn("notify: hook failed", zap.Error(he.Err))
	select {
	case d.errs <- he:
	default:
	}
}

// Wait blocks until every started delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
