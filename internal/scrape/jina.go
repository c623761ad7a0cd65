package scrape

import (
	"context"
	"strings"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/pkg/jina"
)

// JinaScraper acquires pages through the Jina Reader API.
type JinaScraper struct {
	client jina.Client
}

// NewJinaScraper creates a JinaScraper from a Jina client.
func NewJinaScraper(client jina.Client) *JinaScraper {
	return &JinaScraper{client: client}
}

func (j *JinaScraper) Name() string { return "jina" }

// Acquire reads a URL via Jina and rejects challenge pages.
func (j *JinaScraper) Acquire(ctx context.Context, rawURL string) (*model.AcquiredContent, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	target := u.String()

	resp, err := j.client.Read(ctx, target)
	if err != nil {
		return nil, classify(target, err)
	}
	if resp.Code != 0 && resp.Code != 200 {
		return nil, &AcquisitionError{URL: target, Reason: ReasonHTTPStatus, StatusCode: resp.Code}
	}

	content := strings.TrimSpace(resp.Data.Content)
	if content == "" {
		return nil, &AcquisitionError{URL: target, Reason: ReasonEmpty}
	}
	if isChallengeText(content) {
		return nil, &AcquisitionError{URL: target, Reason: ReasonBlocked}
	}

	md := map[string]string{"source": "jina"}
	if resp.Data.URL != "" {
		md["resolvedUrl"] = resp.Data.URL
	}

	return &model.AcquiredContent{
		URL:         target,
		Title:       resp.Data.Title,
		Description: resp.Data.Description,
		Content:     content,
		Links:       resp.Data.LinkURLs(),
		Metadata:    md,
	}, nil
}

var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"attention required",
}

// isChallengeText reports whether short reader output is an anti-bot
// interstitial rather than page content.
func isChallengeText(content string) bool {
	if len(content) >= 1000 {
		return false
	}
	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
