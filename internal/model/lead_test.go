package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompanyProfile_Normalize(t *testing.T) {
	t.Parallel()

	p := CompanyProfile{Name: "Acme", Summary: ""}
	p.Normalize()

	assert.Equal(t, "Acme", p.Name)
	assert.Equal(t, Unknown, p.Industry)
	assert.Equal(t, Unknown, p.Size)
	assert.Equal(t, Unknown, p.Location)
	assert.Equal(t, Unknown, p.TargetAudience)
	assert.Equal(t, Unknown, p.ValueProposition)
	assert.Equal(t, "", p.Summary)
	assert.NotNil(t, p.Services)
	assert.NotNil(t, p.PainPoints)
	assert.NotNil(t, p.Technologies)
	assert.NotNil(t, p.KeyDifferentiators)
}

func TestAcquiredContent_Snapshot(t *testing.T) {
	t.Parallel()

	c := &AcquiredContent{
		URL:         "https://acme.com",
		Title:       "Acme",
		Description: "Widgets",
		Content:     "lots of text",
		Metadata:    map[string]string{"lang": "en"},
	}
	snap := c.Snapshot()
	assert.Equal(t, "Acme", snap.Title)
	assert.Equal(t, "Widgets", snap.Description)
	assert.Equal(t, "en", snap.Metadata["lang"])

	// Snapshot must not alias the source map.
	c.Metadata["lang"] = "de"
	assert.Equal(t, "en", snap.Metadata["lang"])
}

func TestContactBundle_Has(t *testing.T) {
	t.Parallel()

	var empty ContactBundle
	assert.False(t, empty.HasEmail())
	assert.False(t, empty.HasPhone())
	assert.False(t, empty.HasSocial())

	full := ContactBundle{Emails: []string{"a@b.co"}, Phones: []string{"+14437990238"}, Social: []string{"https://x.com/acme"}}
	assert.True(t, full.HasEmail())
	assert.True(t, full.HasPhone())
	assert.True(t, full.HasSocial())
}

func TestLeadFilter_Normalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        LeadFilter
		wantPage  int
		wantLimit int
		wantSort  LeadSort
		wantSkip  int
	}{
		{"defaults", LeadFilter{}, 1, DefaultPageLimit, SortNewest, 0},
		{"page three", LeadFilter{Page: 3, Limit: 10, Sort: SortName}, 3, 10, SortName, 20},
		{"limit capped", LeadFilter{Limit: 1000, Sort: "bogus"}, 1, MaxPageLimit, SortNewest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := tt.in
			f.Normalize()
			assert.Equal(t, tt.wantPage, f.Page)
			assert.Equal(t, tt.wantLimit, f.Limit)
			assert.Equal(t, tt.wantSort, f.Sort)
			assert.Equal(t, tt.wantSkip, f.Offset())
		})
	}
}

func TestNewLeadPage(t *testing.T) {
	t.Parallel()

	p := NewLeadPage(nil, 41, LeadFilter{Page: 2, Limit: 20})
	assert.Equal(t, 3, p.Pages)
	assert.Equal(t, 41, p.Total)
	assert.Equal(t, 2, p.Page)
	assert.NotNil(t, p.Leads)
}

func TestLead_IsHighScore(t *testing.T) {
	t.Parallel()

	assert.True(t, (&Lead{Score: 8}).IsHighScore(HighScoreThreshold))
	assert.False(t, (&Lead{Score: 7.9}).IsHighScore(HighScoreThreshold))
}
