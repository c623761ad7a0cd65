// Package contact extracts emails, phone numbers and social profile links
// from acquired page content. Extraction is pure and never fails; missing
// data yields empty sets.
package contact

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/leadintel/internal/model"
)

const (
	// DefaultMinPhoneDigits rejects short digit runs such as years and prices.
	DefaultMinPhoneDigits = 7
	maxPhoneDigits        = 15
	defaultRegion         = "US"
)

// Options tunes extraction.
type Options struct {
	MinPhoneDigits int
	DefaultRegion  string
}

// Extractor turns page text and links into a ContactBundle.
type Extractor struct {
	minDigits int
	region    string
}

// New creates an Extractor, applying defaults for zero options.
func New(opts Options) *Extractor {
	e := &Extractor{minDigits: opts.MinPhoneDigits, region: strings.ToUpper(opts.DefaultRegion)}
	if e.minDigits <= 0 {
		e.minDigits = DefaultMinPhoneDigits
	}
	if e.minDigits > maxPhoneDigits {
		e.minDigits = maxPhoneDigits
	}
	if e.region == "" {
		e.region = defaultRegion
	}
	return e
}

// Extract scans text and links. Every list in the result is sorted and
// free of duplicates, so identical input always yields an identical bundle.
func (e *Extractor) Extract(text string, links []string) model.ContactBundle {
	text = norm.NFKC.String(text)

	var mailto, tel []string
	for _, l := range links {
		lower := strings.ToLower(l)
		switch {
		case strings.HasPrefix(lower, "mailto:"):
			addr := l[len("mailto:"):]
			if i := strings.IndexByte(addr, '?'); i >= 0 {
				addr = addr[:i]
			}
			if unescaped, err := url.PathUnescape(addr); err == nil {
				addr = unescaped
			}
			mailto = append(mailto, addr)
		case strings.HasPrefix(lower, "tel:"):
			tel = append(tel, l[len("tel:"):])
		}
	}

	return model.ContactBundle{
		Emails: Emails(text + "\n" + strings.Join(mailto, "\n")),
		Phones: e.phones(text, tel),
		Social: Social(links),
	}
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// Asset names such as logo@2x.png look like addresses.
	assetSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".css", ".js"}
)

// Emails returns the distinct lowercase email addresses found in text.
func Emails(text string) []string {
	set := make(map[string]struct{})
	for _, m := range emailRe.FindAllString(text, -1) {
		addr := strings.ToLower(strings.Trim(m, ".-"))
		if !validEmail(addr) {
			continue
		}
		set[addr] = struct{}{}
	}
	return sortedKeys(set)
}

func validEmail(addr string) bool {
	at := strings.LastIndexByte(addr, '@')
	if at <= 0 || at == len(addr)-1 {
		return false
	}
	local, domain := addr[:at], addr[at+1:]
	if strings.HasPrefix(local, ".") || strings.Contains(local, "..") {
		return false
	}
	if strings.Contains(domain, "..") || !strings.Contains(domain, ".") {
		return false
	}
	for _, suf := range assetSuffixes {
		if strings.HasSuffix(domain, suf) {
			return false
		}
	}
	return true
}

var (
	phoneCandidateRe = regexp.MustCompile(`\+?\(?\d[\d \t().\-]{4,}\d`)
	dateLikeRe       = regexp.MustCompile(`^(\d{4}[-./]\d{1,2}[-./]\d{1,2}|\d{1,2}[-./]\d{1,2}[-./]\d{2,4}|\d{4}\s*-\s*\d{4})$`)
)

// Phones returns the distinct E.164 phone numbers found in text.
func (e *Extractor) Phones(text string) []string {
	return e.phones(norm.NFKC.String(text), nil)
}

func (e *Extractor) phones(text string, extra []string) []string {
	candidates := append(phoneCandidateRe.FindAllString(text, -1), extra...)

	set := make(map[string]struct{})
	for _, raw := range candidates {
		if p := e.normalizePhone(raw); p != "" {
			set[p] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// normalizePhone canonicalizes raw to E.164, or returns "" when raw is too
// short, too long, date-like, or not a valid number for its region. Validity
// checks the full numbering plan, so order IDs and counts that merely have a
// plausible length are rejected.
func (e *Extractor) normalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || dateLikeRe.MatchString(raw) {
		return ""
	}
	digits := countDigits(raw)
	if digits < e.minDigits || digits > maxPhoneDigits {
		return ""
	}

	num, err := phonenumbers.Parse(raw, e.region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return ""
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// socialDomains maps registrable domains to their platform.
var socialDomains = map[string]string{
	"linkedin.com":  "linkedin",
	"twitter.com":   "twitter",
	"x.com":         "twitter",
	"facebook.com":  "facebook",
	"fb.com":        "facebook",
	"instagram.com": "instagram",
	"youtube.com":   "youtube",
	"youtu.be":      "youtube",
	"tiktok.com":    "tiktok",
	"pinterest.com": "pinterest",
}

// Share widgets link to the platform without naming a profile.
var sharePrefixes = []string{"/share", "/sharer", "/intent", "/home?status", "/dialog"}

// Social returns the distinct profile URLs among links whose host belongs
// to a known social platform. URLs are normalized to https without query
// or fragment.
func Social(links []string) []string {
	set := make(map[string]struct{})
	for _, raw := range links {
		if u, ok := socialURL(raw); ok {
			set[u] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// Platform reports the social platform of a URL, or "" if it is not one.
func Platform(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return platformForHost(u.Hostname())
}

func platformForHost(host string) string {
	host = strings.ToLower(strings.Trim(host, "."))
	if host == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return socialDomains[domain]
}

func socialURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	if platformForHost(u.Hostname()) == "" {
		return "", false
	}

	path := strings.TrimRight(u.EscapedPath(), "/")
	if path == "" {
		return "", false
	}
	lowerPath := strings.ToLower(path)
	for _, p := range sharePrefixes {
		if strings.HasPrefix(lowerPath, p) {
			return "", false
		}
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	return "https://" + host + path, true
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
