package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot response detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// jsShellMaxBytes bounds the body size at which a noscript or refresh page
// is considered an empty JavaScript shell.
const jsShellMaxBytes = 2000

var (
	cloudflareMarkers = []string{"checking your browser", "cf-browser-verification", "cf-chl-"}
	captchaMarkers    = []string{"captcha", "recaptcha", "hcaptcha"}
)

// DetectBlock inspects a response for anti-bot interstitials.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if isCloudflareStatus(resp) {
		return true, BlockCloudflare
	}

	lower := strings.ToLower(string(body))
	if containsAny(lower, cloudflareMarkers) ||
		(strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge")) {
		return true, BlockCloudflare
	}
	if containsAny(lower, captchaMarkers) {
		return true, BlockCaptcha
	}
	if len(body) < jsShellMaxBytes {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}
	return false, BlockNone
}

func isCloudflareStatus(resp *http.Response) bool {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusServiceUnavailable {
		return false
	}
	h := resp.Header
	return h.Get("Cf-Ray") != "" || h.Get("Cf-Cache-Status") != "" || strings.EqualFold(h.Get("Server"), "cloudflare")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
