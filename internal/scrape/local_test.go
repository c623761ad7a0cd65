package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acmePage = `<html><head>
<title>Acme Corp</title>
<meta name="description" content="Industrial widgets since 1990">
<meta property="og:site_name" content="Acme">
</head>
<body><nav>Menu</nav>
<article>
<h1>Welcome to Acme</h1>
<p>We build great products for manufacturers across North America. Our team of engineers designs
widgets, gizmos and automation fixtures that keep production lines running around the clock.</p>
<p>Reach us at sales@acme.com or call +1 (443) 799-0238 for a quote on your next project.</p>
</article>
<a href="/about">About</a>
<a href="https://www.linkedin.com/company/acme#top">LinkedIn</a>
<a href="mailto:sales@acme.com">Email</a>
<a href="javascript:void(0)">noop</a>
<a href="/about">About again</a>
<footer>Copyright 2024</footer></body></html>`

func htmlServer(t *testing.T, status int, ctype, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ctype != "" {
			w.Header().Set("Content-Type", ctype)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func requireReason(t *testing.T, err error, want Reason) *AcquisitionError {
	t.Helper()
	require.Error(t, err)
	var ae *AcquisitionError
	require.True(t, errors.As(err, &ae), "expected AcquisitionError, got %T", err)
	assert.Equal(t, want, ae.Reason)
	return ae
}

func TestLocalScraper_Acquire(t *testing.T) {
	srv := htmlServer(t, 200, "text/html; charset=utf-8", acmePage)

	got, err := NewLocalScraper("").Acquire(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, srv.URL, got.URL)
	assert.Equal(t, "Acme Corp", got.Title)
	assert.Equal(t, "Industrial widgets since 1990", got.Description)
	assert.Contains(t, got.Content, "great products")
	assert.Contains(t, got.Content, "sales@acme.com")
	assert.Equal(t, "Acme", got.Metadata["og:site_name"])
	assert.Equal(t, "200", got.Metadata["statusCode"])
	assert.Equal(t, []string{
		srv.URL + "/about",
		"https://www.linkedin.com/company/acme",
		"mailto:sales@acme.com",
	}, got.Links)
}

func TestLocalScraper_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		ctype  string
		body   string
		header http.Header
		want   Reason
	}{
		{
			name:   "captcha",
			status: 200,
			ctype:  "text/html",
			body:   `<html><body>Please complete the reCAPTCHA to continue</body></html>`,
			want:   ReasonBlocked,
		},
		{
			name:   "not found",
			status: 404,
			ctype:  "text/html",
			body:   `<html><body>Not found page with lots of content here to exceed threshold</body></html>`,
			want:   ReasonHTTPStatus,
		},
		{
			name:   "pdf",
			status: 200,
			ctype:  "application/pdf",
			body:   strings.Repeat("x", 500),
			want:   ReasonContentType,
		},
		{
			name:   "tiny body",
			status: 200,
			ctype:  "text/html",
			body:   `<html></html>`,
			want:   ReasonEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := htmlServer(t, tt.status, tt.ctype, tt.body)
			_, err := NewLocalScraper("").Acquire(context.Background(), srv.URL)
			requireReason(t, err, tt.want)
		})
	}
}

func TestLocalScraper_CloudflareHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cf-Ray", "abc123")
		w.WriteHeader(403)
		_, _ = w.Write([]byte(`<html><body>Access denied</body></html>`))
	}))
	defer srv.Close()

	_, err := NewLocalScraper("").Acquire(context.Background(), srv.URL)
	ae := requireReason(t, err, ReasonBlocked)
	assert.Equal(t, 403, ae.StatusCode)
	assert.False(t, ae.Transient())
}

func TestLocalScraper_SendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(acmePage))
	}))
	defer srv.Close()

	_, err := NewLocalScraper("leadbot/2.0").Acquire(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "leadbot/2.0", gotUA)
}

func TestLocalScraper_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewLocalScraper("").Acquire(context.Background(), addr)
	ae := requireReason(t, err, ReasonNetwork)
	assert.True(t, ae.Transient())
}

func TestLocalScraper_Name(t *testing.T) {
	assert.Equal(t, "local", NewLocalScraper("").Name())
}

func TestParsePage_FallsBackToOGTags(t *testing.T) {
	base, _ := url.Parse("https://acme.com/")
	body := []byte(`<html><head>
<meta property="og:title" content="Acme OG">
<meta property="og:description" content="From open graph">
</head><body><script>var x=1;</script><p>Plain body text</p></body></html>`)

	page, err := parsePage(body, base)
	require.NoError(t, err)
	assert.Equal(t, "Acme OG", page.Title)
	assert.Equal(t, "From open graph", page.Description)
	assert.Contains(t, page.Content, "Plain body text")
	assert.NotContains(t, page.Content, "var x")
	assert.Empty(t, page.Links)
	assert.NotNil(t, page.Links)
}

func TestParsePage_KeepsHeaderAndFooterContacts(t *testing.T) {
	base, _ := url.Parse("https://acme.com/")
	article := strings.Repeat(`<p>Acme Logistics plans routes for regional carriers, balancing load, fuel and driver hours
across thousands of daily deliveries so dispatchers can focus on exceptions instead of spreadsheets.</p>
`, 8)
	body := []byte(`<html><head><title>Acme Logistics</title></head><body>
<header><nav><a href="/">Home</a></nav><p>Support line (443) 799-0238</p></header>
<article><h1>Route planning that pays for itself</h1>` + article + `</article>
<footer><address>Contact sales@acme.com</address><script>track()</script><p>Copyright 2024</p></footer>
</body></html>`)

	page, err := parsePage(body, base)
	require.NoError(t, err)
	assert.Contains(t, page.Content, "regional carriers")
	assert.Contains(t, page.Content, "sales@acme.com")
	assert.Contains(t, page.Content, "(443) 799-0238")
	assert.NotContains(t, page.Content, "track()")
}

func TestLocalScraper_ResolvesLinksAgainstFinalURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/company/home", http.StatusFound)
	})
	mux.HandleFunc("/company/home", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(acmePage + `<a href="team">Team</a>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	got, err := NewLocalScraper("").Acquire(context.Background(), srv.URL+"/start")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/start", got.URL)
	assert.Contains(t, got.Links, srv.URL+"/company/team")
	assert.NotContains(t, got.Links, srv.URL+"/team")
}

func TestIsHTML(t *testing.T) {
	assert.True(t, isHTML(""))
	assert.True(t, isHTML("text/html; charset=utf-8"))
	assert.True(t, isHTML("application/xhtml+xml"))
	assert.False(t, isHTML("application/json"))
	assert.False(t, isHTML(";;;"))
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "Hello world\nfoo", collapseSpace("  Hello     world\n\n\n\n  foo  "))
}
