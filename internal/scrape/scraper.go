// Package scrape acquires page content for a single URL from exactly one
// configured backend.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadintel/internal/config"
	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/resilience"
	"github.com/sells-group/leadintel/pkg/firecrawl"
	"github.com/sells-group/leadintel/pkg/jina"
)

// Scraper fetches a single URL and returns its normalized content.
type Scraper interface {
	Acquire(ctx context.Context, url string) (*model.AcquiredContent, error)
	Name() string
}

// Reason classifies why acquisition failed.
type Reason string

const (
	ReasonInvalidURL  Reason = "invalid_url"
	ReasonNetwork     Reason = "network"
	ReasonTimeout     Reason = "timeout"
	ReasonHTTPStatus  Reason = "http_status"
	ReasonContentType Reason = "content_type"
	ReasonBlocked     Reason = "blocked"
	ReasonRobots      Reason = "robots"
	ReasonEmpty       Reason = "empty"
)

// AcquisitionError is the terminal failure of the acquisition stage.
type AcquisitionError struct {
	URL        string
	Reason     Reason
	StatusCode int
	Err        error
}

func (e *AcquisitionError) Error() string {
	msg := fmt.Sprintf("acquire %s: %s", e.URL, e.Reason)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Transient reports whether the failure might succeed on a later run.
func (e *AcquisitionError) Transient() bool {
	switch e.Reason {
	case ReasonTimeout, ReasonNetwork:
		return true
	case ReasonHTTPStatus:
		return resilience.IsTransientHTTPStatus(e.StatusCode)
	default:
		return false
	}
}

// ValidateURL checks that raw is an absolute http or https URL.
func ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &AcquisitionError{URL: raw, Reason: ReasonInvalidURL, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &AcquisitionError{URL: raw, Reason: ReasonInvalidURL, Err: eris.New("scheme must be http or https")}
	}
	if u.Host == "" {
		return nil, &AcquisitionError{URL: raw, Reason: ReasonInvalidURL, Err: eris.New("missing host")}
	}
	return u, nil
}

// classify converts a backend error into an AcquisitionError. Errors that
// already are one pass through unchanged.
func classify(rawURL string, err error) error {
	var ae *AcquisitionError
	if errors.As(err, &ae) {
		return ae
	}

	var fcErr *firecrawl.APIError
	if errors.As(err, &fcErr) {
		return &AcquisitionError{URL: rawURL, Reason: ReasonHTTPStatus, StatusCode: fcErr.StatusCode, Err: err}
	}
	var jinaErr *jina.APIError
	if errors.As(err, &jinaErr) {
		return &AcquisitionError{URL: rawURL, Reason: ReasonHTTPStatus, StatusCode: jinaErr.StatusCode, Err: err}
	}

	if resilience.IsTimeout(err) {
		return &AcquisitionError{URL: rawURL, Reason: ReasonTimeout, Err: err}
	}
	return &AcquisitionError{URL: rawURL, Reason: ReasonNetwork, Err: err}
}

// timeoutScraper bounds every acquisition with a deadline.
type timeoutScraper struct {
	inner   Scraper
	timeout time.Duration
}

func (t *timeoutScraper) Name() string { return t.inner.Name() }

func (t *timeoutScraper) Acquire(ctx context.Context, rawURL string) (*model.AcquiredContent, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Acquire(ctx, rawURL)
}

// WithTimeout wraps s so each call is cancelled after d. A non-positive d
// returns s unchanged.
func WithTimeout(s Scraper, d time.Duration) Scraper {
	if d <= 0 {
		return s
	}
	return &timeoutScraper{inner: s, timeout: d}
}

// New builds the single scraper selected by cfg.Scrape.Backend.
func New(cfg *config.Config) (Scraper, error) {
	var s Scraper
	switch cfg.Scrape.Backend {
	case "firecrawl":
		if cfg.Firecrawl.Key == "" {
			return nil, eris.New("scrape: firecrawl.key is required")
		}
		var opts []firecrawl.Option
		if cfg.Firecrawl.BaseURL != "" {
			opts = append(opts, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
		}
		s = NewFirecrawlScraper(firecrawl.NewClient(cfg.Firecrawl.Key, opts...))
	case "jina":
		var opts []jina.Option
		if cfg.Jina.BaseURL != "" {
			opts = append(opts, jina.WithBaseURL(cfg.Jina.BaseURL))
		}
		s = NewJinaScraper(jina.NewClient(cfg.Jina.Key, opts...))
	case "local":
		local := NewLocalScraper(cfg.Scrape.UserAgent)
		s = local
		if cfg.Scrape.RespectRobots {
			s = NewRobotsGate(local, local.client, cfg.Scrape.UserAgent)
		}
	default:
		return nil, eris.Errorf("scrape: unknown backend %q", cfg.Scrape.Backend)
	}
	return WithTimeout(s, time.Duration(cfg.Scrape.TimeoutSecs)*time.Second), nil
}
