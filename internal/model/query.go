package model

// LeadSort selects the ordering of a lead listing.
type LeadSort string

const (
	SortNewest    LeadSort = "newest"
	SortScoreHigh LeadSort = "score-high"
	SortScoreLow  LeadSort = "score-low"
	SortName      LeadSort = "name"
)

// ParseLeadSort maps a user-supplied sort key to a LeadSort, defaulting to newest.
func ParseLeadSort(s string) LeadSort {
	switch LeadSort(s) {
	case SortScoreHigh, SortScoreLow, SortName:
		return LeadSort(s)
	}
	return SortNewest
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// LeadFilter selects leads owned by a single user.
type LeadFilter struct {
	OwnerID  string
	Search   string
	Industry string
	MinScore *float64
	MaxScore *float64
	Sort     LeadSort
	Page     int
	Limit    int
}

// Normalize clamps pagination to sane bounds and resolves the sort key.
func (f *LeadFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	f.Sort = ParseLeadSort(string(f.Sort))
}

// Offset returns the number of rows to skip for the current page.
func (f *LeadFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// LeadPage is one page of a lead listing.
type LeadPage struct {
	Leads []Lead `json:"leads"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Pages int    `json:"pages"`
}

// NewLeadPage computes the page count for a listing.
func NewLeadPage(leads []Lead, total int, f LeadFilter) *LeadPage {
	pages := 0
	if f.Limit > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}
	if leads == nil {
		leads = []Lead{}
	}
	return &LeadPage{Leads: leads, Total: total, Page: f.Page, Pages: pages}
}

// HighScoreThreshold is the score at which a lead counts as high quality in stats.
const HighScoreThreshold = 8.0

// LeadStats aggregates an owner's leads.
type LeadStats struct {
	TotalLeads     int     `json:"total_leads"`
	AverageScore   float64 `json:"average_score"`
	HighScoreLeads int     `json:"high_score_leads"`
}

// BulkResult is the outcome for one URL in a bulk submission.
type BulkResult struct {
	URL    string `json:"url"`
	LeadID string `json:"lead_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BulkReport summarizes a bulk submission.
type BulkReport struct {
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []BulkResult `json:"results"`
}
