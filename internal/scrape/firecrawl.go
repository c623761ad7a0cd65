package scrape

import (
	"context"
	"strings"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/pkg/firecrawl"
)

// FirecrawlScraper acquires pages through Firecrawl's scrape API.
type FirecrawlScraper struct {
	client firecrawl.Client
}

// NewFirecrawlScraper creates a FirecrawlScraper from a Firecrawl client.
func NewFirecrawlScraper(client firecrawl.Client) *FirecrawlScraper {
	return &FirecrawlScraper{client: client}
}

// Name implements Scraper.
func (f *FirecrawlScraper) Name() string { return "firecrawl" }

// Acquire fetches markdown, links and metadata for a single URL.
func (f *FirecrawlScraper) Acquire(ctx context.Context, rawURL string) (*model.AcquiredContent, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	target := u.String()

	// Full-page markdown keeps the header and footer, where contact details live.
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             target,
		Formats:         []string{"markdown", "links"},
		OnlyMainContent: false,
	})
	if err != nil {
		return nil, classify(target, err)
	}

	md := resp.Data.Metadata
	if code := md.StatusCode(); code >= 400 {
		return nil, &AcquisitionError{URL: target, Reason: ReasonHTTPStatus, StatusCode: code}
	}

	content := strings.TrimSpace(resp.Data.Markdown)
	if content == "" {
		return nil, &AcquisitionError{URL: target, Reason: ReasonEmpty}
	}

	links := resp.Data.Links
	if links == nil {
		links = []string{}
	}

	return &model.AcquiredContent{
		URL:         target,
		Title:       md.String("title"),
		Description: md.String("description"),
		Content:     content,
		Links:       links,
		Metadata:    md.Flatten(),
	}, nil
}
