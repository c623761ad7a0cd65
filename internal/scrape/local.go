package scrape

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadintel/internal/model"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; leadintel/1.0)"
	maxBodyBytes     = 2 << 20
	minBodyBytes     = 100
)

// LocalScraper fetches HTML directly, detects anti-bot blocks, and extracts
// the readable text, metadata and links. No third-party API is involved.
type LocalScraper struct {
	client    *http.Client
	userAgent string
}

// NewLocalScraper creates a LocalScraper. An empty userAgent uses a default.
func NewLocalScraper(userAgent string) *LocalScraper {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &LocalScraper{
		userAgent: userAgent,
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

func (l *LocalScraper) Name() string { return "local" }

// Acquire fetches a URL and converts the page to AcquiredContent.
func (l *LocalScraper) Acquire(ctx context.Context, rawURL string) (*model.AcquiredContent, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	target := u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &AcquisitionError{URL: target, Reason: ReasonInvalidURL, Err: err}
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, classify(target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classify(target, err)
	}

	if blocked, bt := DetectBlock(resp, body); blocked {
		return nil, &AcquisitionError{URL: target, Reason: ReasonBlocked, StatusCode: resp.StatusCode, Err: eris.Errorf("%s challenge", bt)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AcquisitionError{URL: target, Reason: ReasonHTTPStatus, StatusCode: resp.StatusCode}
	}

	ct := resp.Header.Get("Content-Type")
	if !isHTML(ct) {
		return nil, &AcquisitionError{URL: target, Reason: ReasonContentType, StatusCode: resp.StatusCode, Err: eris.Errorf("unsupported content type %q", ct)}
	}
	if len(bytes.TrimSpace(body)) < minBodyBytes {
		return nil, &AcquisitionError{URL: target, Reason: ReasonEmpty, StatusCode: resp.StatusCode}
	}

	// Relative links resolve against the page that was served, which differs
	// from the requested URL after a redirect.
	base := u
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}
	page, err := parsePage(body, base)
	if err != nil {
		return nil, &AcquisitionError{URL: target, Reason: ReasonEmpty, StatusCode: resp.StatusCode, Err: err}
	}
	if page.Content == "" {
		return nil, &AcquisitionError{URL: target, Reason: ReasonEmpty, StatusCode: resp.StatusCode}
	}

	page.URL = target
	page.Metadata["statusCode"] = strconv.Itoa(resp.StatusCode)
	if ct != "" {
		page.Metadata["contentType"] = ct
	}
	return page, nil
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

// parsePage extracts title, description, metadata, links and readable text.
// Header, footer and address text is kept after the article because that is
// where sites list their contact details.
func parsePage(body []byte, base *url.URL) (*model.AcquiredContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	md := make(map[string]string)
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key, ok := s.Attr("property")
		if !ok || key == "" {
			key, _ = s.Attr("name")
		}
		val, _ := s.Attr("content")
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		if key == "" || val == "" {
			return
		}
		if _, dup := md[key]; !dup {
			md[key] = val
		}
	})

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = md["og:title"]
	}
	desc := md["description"]
	if desc == "" {
		desc = md["og:description"]
	}

	text := readableText(body, base)
	if text == "" {
		doc.Find("script, style, noscript, nav").Remove()
		text = collapseSpace(doc.Find("body").Text())
	} else if chrome := chromeText(doc, text); chrome != "" {
		text += "\n" + chrome
	}

	return &model.AcquiredContent{
		Title:       title,
		Description: desc,
		Content:     text,
		Links:       extractLinks(doc, base),
		Metadata:    md,
	}, nil
}

// readableText runs readability over the page and flattens the article HTML.
func readableText(body []byte, base *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), base)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(spaceBlocks(article.Content)))
	if err != nil {
		return ""
	}
	return collapseSpace(doc.Text())
}

// chromeText collects the outermost header, footer and address blocks that
// are not already part of article.
func chromeText(doc *goquery.Document, article string) string {
	var parts []string
	doc.Find("header, footer, address").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("header, footer, address").Length() > 0 {
			return
		}
		block := s.Clone()
		block.Find("script, style, noscript").Remove()
		t := collapseSpace(block.Text())
		if t == "" || strings.Contains(article, t) {
			return
		}
		parts = append(parts, t)
	})
	return strings.Join(parts, "\n")
}

// extractLinks resolves anchors against base and keeps web, mailto and tel
// targets in document order without duplicates.
func extractLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]struct{})
	links := []string{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		switch abs.Scheme {
		case "http", "https", "mailto", "tel":
		default:
			return
		}
		abs.Fragment = ""
		s2 := abs.String()
		if _, ok := seen[s2]; ok {
			return
		}
		seen[s2] = struct{}{}
		links = append(links, s2)
	})
	return links
}

var blockTagRe = regexp.MustCompile(`(?i)</(p|div|li|h[1-6]|tr|section|article|br)>`)

// spaceBlocks inserts a newline after block-level closing tags so their text
// does not run together once tags are dropped.
func spaceBlocks(html string) string {
	return blockTagRe.ReplaceAllString(html, "$0\n")
}

var (
	spaceRe = regexp.MustCompile(`[ \t\r\f\v]+`)
	nlRe    = regexp.MustCompile(`\s*\n\s*`)
)

func collapseSpace(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	s = nlRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
