package model

import "time"

// Unknown is the sentinel used for profile fields the analysis stage could not derive.
const Unknown = "Unknown"

// AcquiredContent is the normalized snapshot of a single page fetch.
type AcquiredContent struct {
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Content     string            `json:"content"`
	Links       []string          `json:"links"`
	Metadata    map[string]string `json:"metadata"`
}

// Snapshot returns the persisted subset of the acquisition (no raw content).
func (c *AcquiredContent) Snapshot() ScrapeSnapshot {
	md := make(map[string]string, len(c.Metadata))
	for k, v := range c.Metadata {
		md[k] = v
	}
	return ScrapeSnapshot{
		Title:       c.Title,
		Description: c.Description,
		Metadata:    md,
	}
}

// ScrapeSnapshot is the bounded acquisition metadata stored on a lead.
type ScrapeSnapshot struct {
	Title       string            `json:"title" bson:"title"`
	Description string            `json:"description" bson:"description"`
	Metadata    map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// ContactBundle holds deduplicated contact data found on a page.
type ContactBundle struct {
	Emails []string `json:"emails" bson:"emails"`
	Phones []string `json:"phones" bson:"phones"`
	Social []string `json:"social" bson:"social"`
}

// HasEmail reports whether at least one email was found.
func (b ContactBundle) HasEmail() bool { return len(b.Emails) > 0 }

// HasPhone reports whether at least one phone number was found.
func (b ContactBundle) HasPhone() bool { return len(b.Phones) > 0 }

// HasSocial reports whether at least one social profile link was found.
func (b ContactBundle) HasSocial() bool { return len(b.Social) > 0 }

// CompanyProfile is the structured description of a company.
// Every field is always populated; lists are empty rather than nil.
type CompanyProfile struct {
	Name               string   `json:"company_name" bson:"company_name"`
	Industry           string   `json:"industry" bson:"industry"`
	Size               string   `json:"company_size" bson:"company_size"`
	Location           string   `json:"location" bson:"location"`
	Summary            string   `json:"summary" bson:"summary"`
	Services           []string `json:"services" bson:"services"`
	PainPoints         []string `json:"pain_points" bson:"pain_points"`
	TargetAudience     string   `json:"target_audience" bson:"target_audience"`
	ValueProposition   string   `json:"value_proposition" bson:"value_proposition"`
	Technologies       []string `json:"technologies" bson:"technologies"`
	KeyDifferentiators []string `json:"key_differentiators" bson:"key_differentiators"`
}

// Normalize replaces nil lists with empty ones and blank strings with the
// Unknown sentinel. Summary is left as-is.
func (p *CompanyProfile) Normalize() {
	for _, s := range []*string{&p.Name, &p.Industry, &p.Size, &p.Location, &p.TargetAudience, &p.ValueProposition} {
		if *s == "" {
			*s = Unknown
		}
	}
	p.Services = nonNil(p.Services)
	p.PainPoints = nonNil(p.PainPoints)
	p.Technologies = nonNil(p.Technologies)
	p.KeyDifferentiators = nonNil(p.KeyDifferentiators)
}

// OutreachEmail is a drafted cold email.
type OutreachEmail struct {
	Subject string `json:"subject" bson:"subject"`
	Body    string `json:"body" bson:"body"`
}

// Lead is the persisted aggregate produced by one pipeline run.
type Lead struct {
	ID        string         `json:"id" bson:"_id"`
	OwnerID   string         `json:"owner_id" bson:"owner_id"`
	URL       string         `json:"url" bson:"url"`
	Profile   CompanyProfile `json:"profile" bson:"profile"`
	Score     float64        `json:"score" bson:"score"`
	Contacts  ContactBundle  `json:"contacts" bson:"contacts"`
	Email     OutreachEmail  `json:"email" bson:"email"`
	Scrape    ScrapeSnapshot `json:"scrape" bson:"scrape"`
	Degraded  []string       `json:"degraded,omitempty" bson:"degraded,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

// IsHighScore reports whether the lead meets the given threshold.
func (l *Lead) IsHighScore(threshold float64) bool {
	return l.Score >= threshold
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
