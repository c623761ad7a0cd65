package scrape

import (
	"context"
	"net/http"
	"sync"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/sells-group/leadintel/internal/model"
)

// RobotsGate refuses URLs disallowed by the host's robots.txt before
// delegating to the wrapped scraper. Rules are cached per host for the
// lifetime of the gate. A missing or unreadable robots.txt allows everything.
type RobotsGate struct {
	inner     Scraper
	client    *http.Client
	userAgent string

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

// NewRobotsGate wraps inner with a robots.txt check using client for fetches.
func NewRobotsGate(inner Scraper, client *http.Client, userAgent string) *RobotsGate {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &RobotsGate{
		inner:     inner,
		client:    client,
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

func (g *RobotsGate) Name() string { return g.inner.Name() }

// Acquire checks robots.txt then delegates.
func (g *RobotsGate) Acquire(ctx context.Context, rawURL string) (*model.AcquiredContent, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	data := g.rules(ctx, u.Scheme, u.Host)
	if data != nil {
		path := u.EscapedPath()
		if path == "" {
			path = "/"
		}
		if u.RawQuery != "" {
			path += "?" + u.RawQuery
		}
		if !data.TestAgent(path, g.userAgent) {
			return nil, &AcquisitionError{URL: u.String(), Reason: ReasonRobots}
		}
	}
	return g.inner.Acquire(ctx, rawURL)
}

func (g *RobotsGate) rules(ctx context.Context, scheme, host string) *robotstxt.RobotsData {
	key := scheme + "://" + host

	g.mu.Lock()
	data, ok := g.cache[key]
	g.mu.Unlock()
	if ok {
		return data
	}

	data = g.fetch(ctx, key+"/robots.txt")

	g.mu.Lock()
	g.cache[key] = data
	g.mu.Unlock()
	return data
}

func (g *RobotsGate) fetch(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		zap.L().Debug("scrape: robots.txt unavailable", zap.String("url", robotsURL), zap.Error(err))
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		zap.L().Debug("scrape: robots.txt unparsable", zap.String("url", robotsURL), zap.Error(err))
		return nil
	}
	return data
}
