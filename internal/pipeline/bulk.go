package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadintel/internal/model"
)

// CleanURLs trims each entry and drops blanks, preserving order.
func CleanURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// Bulk analyzes each URL as an independent run with bounded concurrency.
// A failed URL never stops the others; results keep submission order.
func (p *Pipeline) Bulk(ctx context.Context, urls []string, ownerID string) (*model.BulkReport, error) {
	urls = CleanURLs(urls)
	switch {
	case ownerID == "":
		return nil, ErrOwnerRequired
	case len(urls) == 0:
		return nil, ErrNoURLs
	case len(urls) > p.opts.MaxURLs:
		return nil, &TooManyURLsError{Count: len(urls), Max: p.opts.MaxURLs}
	}

	log := zap.L().With(zap.String("owner", ownerID), zap.Int("urls", len(urls)))
	log.Info("pipeline: bulk starting", zap.Int("max_concurrent", p.opts.MaxConcurrent))
	start := time.Now()

	results := make([]model.BulkResult, len(urls))
	var g errgroup.Group
	g.SetLimit(p.opts.MaxConcurrent)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = model.BulkResult{URL: u}
			lead, err := p.Analyze(ctx, u, ownerID)
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].LeadID = lead.ID
			return nil
		})
	}
	_ = g.Wait()

	report := &model.BulkReport{Results: results}
	for _, r := range results {
		if r.Error != "" {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}

	log.Info("pipeline: bulk complete",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return report, nil
}
