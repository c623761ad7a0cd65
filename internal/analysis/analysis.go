// Package analysis derives a structured company profile from acquired page
// content. Generative failures never escape: the stage falls back to a
// deterministic profile and reports why.
package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadintel/internal/generate"
	"github.com/sells-group/leadintel/internal/model"
)

// DefaultContentBudget caps the page content sent to the model, in characters.
const DefaultContentBudget = 8000

const analysisPrompt = `Analyze the following website content for a B2B sales prospect and extract company information in JSON format.

Website URL: %s
Title: %s
Description: %s
Content: %s

Instructions:
1. Be specific. Avoid "Unknown" or generic terms.
2. For "painPoints", infer the problems their customers face that this company solves.
3. For "summary", write a 2-3 sentence executive summary of what this company does, written in a professional tone suitable for a sales briefing.

Extract the following information and return ONLY a valid JSON object:
{
  "companyName": "Company name",
  "industry": "Primary industry/sector",
  "companySize": "Estimated company size",
  "location": "Company location/headquarters",
  "services": ["List of main services or products offered"],
  "painPoints": ["List of customer pain points this company addresses"],
  "targetAudience": "Who are their ideal customers",
  "valueProposition": "Main value proposition",
  "techStack": ["Detected technologies or tools they mention using"],
  "keyFeatures": ["Key features or differentiators"],
  "summary": "2-3 sentence executive summary of the company"
}

Return ONLY the JSON object, no additional text.`

var profileSchema = generate.MustSchema("company profile", `{
  "type": "object",
  "required": ["companyName", "industry", "companySize", "location", "services", "painPoints",
               "targetAudience", "valueProposition", "techStack", "keyFeatures", "summary"],
  "properties": {
    "companyName":      {"type": "string"},
    "industry":         {"type": "string"},
    "companySize":      {"type": "string"},
    "location":         {"type": "string"},
    "services":         {"type": "array", "items": {"type": "string"}},
    "painPoints":       {"type": "array", "items": {"type": "string"}},
    "targetAudience":   {"type": "string"},
    "valueProposition": {"type": "string"},
    "techStack":        {"type": "array", "items": {"type": "string"}},
    "keyFeatures":      {"type": "array", "items": {"type": "string"}},
    "summary":          {"type": "string"}
  }
}`)

// profileResponse is the wire shape requested from the model.
type profileResponse struct {
	CompanyName      string   `json:"companyName"`
	Industry         string   `json:"industry"`
	CompanySize      string   `json:"companySize"`
	Location         string   `json:"location"`
	Services         []string `json:"services"`
	PainPoints       []string `json:"painPoints"`
	TargetAudience   string   `json:"targetAudience"`
	ValueProposition string   `json:"valueProposition"`
	TechStack        []string `json:"techStack"`
	KeyFeatures      []string `json:"keyFeatures"`
	Summary          string   `json:"summary"`
}

// Analyzer runs the company analysis stage.
type Analyzer struct {
	gen    generate.Generator
	budget int
}

// New creates an Analyzer. A non-positive budget uses DefaultContentBudget.
func New(gen generate.Generator, contentBudget int) *Analyzer {
	if contentBudget <= 0 {
		contentBudget = DefaultContentBudget
	}
	return &Analyzer{gen: gen, budget: contentBudget}
}

// Analyze always returns a complete profile. A non-nil error means the
// generative call or its parsing failed and the profile is Fallback(title).
func (a *Analyzer) Analyze(ctx context.Context, content *model.AcquiredContent) (model.CompanyProfile, error) {
	prompt := BuildPrompt(content, a.budget)

	raw, err := a.gen.Generate(generate.WithStage(ctx, "analysis"), prompt)
	if err != nil {
		return Fallback(content.Title), eris.Wrap(err, "analysis: generate")
	}

	var resp profileResponse
	if err := generate.DecodeObject(raw, profileSchema, &resp); err != nil {
		return Fallback(content.Title), eris.Wrap(err, "analysis: parse response")
	}
	return resp.toProfile(content.Title), nil
}

// BuildPrompt renders the analysis prompt with content cut to budget characters.
func BuildPrompt(content *model.AcquiredContent, budget int) string {
	return fmt.Sprintf(analysisPrompt,
		content.URL,
		content.Title,
		content.Description,
		truncate(content.Content, budget),
	)
}

// Fallback is the profile used when analysis fails. The name comes from the
// page title; summary stays empty while every other text field is Unknown.
func Fallback(title string) model.CompanyProfile {
	name := strings.TrimSpace(title)
	if name == "" {
		name = model.Unknown
	}
	return model.CompanyProfile{
		Name:               name,
		Industry:           model.Unknown,
		Size:               model.Unknown,
		Location:           model.Unknown,
		Summary:            "",
		Services:           []string{},
		PainPoints:         []string{},
		TargetAudience:     model.Unknown,
		ValueProposition:   model.Unknown,
		Technologies:       []string{},
		KeyDifferentiators: []string{},
	}
}

func (r profileResponse) toProfile(title string) model.CompanyProfile {
	name := strings.TrimSpace(r.CompanyName)
	if name == "" {
		name = strings.TrimSpace(title)
	}
	p := model.CompanyProfile{
		Name:               name,
		Industry:           strings.TrimSpace(r.Industry),
		Size:               strings.TrimSpace(r.CompanySize),
		Location:           strings.TrimSpace(r.Location),
		Summary:            strings.TrimSpace(r.Summary),
		Services:           cleanList(r.Services),
		PainPoints:         cleanList(r.PainPoints),
		TargetAudience:     strings.TrimSpace(r.TargetAudience),
		ValueProposition:   strings.TrimSpace(r.ValueProposition),
		Technologies:       cleanList(r.TechStack),
		KeyDifferentiators: cleanList(r.KeyFeatures),
	}
	p.Normalize()
	return p
}

// cleanList trims entries and drops blanks, keeping order.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
