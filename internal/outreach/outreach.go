// Package outreach drafts a personalized cold email for an analyzed company.
// A failed or malformed generation is replaced by a deterministic template.
package outreach

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadintel/internal/generate"
	"github.com/sells-group/leadintel/internal/model"
)

// DefaultSender is the agency named in prompts and fallback emails.
const DefaultSender = "HubCredo"

const emailPrompt = `Generate a highly personalized, detailed B2B cold email for the following company:

Company: %[1]s
Industry: %[2]s
Summary: %[3]s
Pain Points: %[4]s
Lead Score: %.1[5]f/10

Your Role:
You are a senior sales director at **%[6]s**, a premium AI Automation Agency.
Your goal is to pitch high-value automation services.

About %[6]s (The Pitch):
- We act as a "Growth Partner", not just a vendor.
- **Services to Pitch**:
  1. AI Sales Agents (that work 24/7).
  2. Automated Outbound Engines (n8n + Clay + Instantly).
  3. CRM Data Enrichment (Firecrawl).

Email Structure (Strictly follow this flow):
1. **Subject**: High impact, relevant to %[1]s.
2. **The Hook**: Start by validating their specific business (use the summary). Show you did your research.
3. **The Problem**: Discuss the specific scalable challenges in %[2]s (e.g., manual lead gen, messy CRMs, slow follow-ups).
4. **The %[6]s Solution (The Core Pitch)**:
   - Write a detailed section explaining how we solve this.
   - **MUST include 3-4 bullet points** listing specific things we can automate for them.
   - Emphasize replacing manual work with smart bots.
5. **Call to Action**: Professional ask for a brief strategy call.

Tone: Sophisticated, authoritative, exciting.

Return ONLY JSON:
{
  "subject": "Subject line",
  "body": "Email body (use \n for line breaks)"
}`

var emailSchema = generate.MustSchema("outreach email", `{
  "type": "object",
  "required": ["subject", "body"],
  "properties": {
    "subject": {"type": "string", "minLength": 1},
    "body":    {"type": "string", "minLength": 1}
  }
}`)

// Drafter runs the outreach generation stage.
type Drafter struct {
	gen    generate.Generator
	sender string
}

// New creates a Drafter. An empty sender uses DefaultSender.
func New(gen generate.Generator, sender string) *Drafter {
	if strings.TrimSpace(sender) == "" {
		sender = DefaultSender
	}
	return &Drafter{gen: gen, sender: sender}
}

// Draft always returns a usable email. A non-nil error means the template
// fallback was used.
func (d *Drafter) Draft(ctx context.Context, p model.CompanyProfile, score float64) (model.OutreachEmail, error) {
	raw, err := d.gen.Generate(generate.WithStage(ctx, "outreach"), BuildPrompt(p, score, d.sender))
	if err != nil {
		return Fallback(p, d.sender), eris.Wrap(err, "outreach: generate")
	}

	var email model.OutreachEmail
	if err := generate.DecodeObject(raw, emailSchema, &email); err != nil {
		return Fallback(p, d.sender), eris.Wrap(err, "outreach: parse response")
	}

	email.Subject = singleLine(email.Subject)
	email.Body = strings.TrimSpace(email.Body)
	if email.Subject == "" || email.Body == "" {
		return Fallback(p, d.sender), eris.New("outreach: blank subject or body")
	}
	return email, nil
}

// BuildPrompt renders the outreach prompt.
func BuildPrompt(p model.CompanyProfile, score float64, sender string) string {
	pains := "None identified"
	if len(p.PainPoints) > 0 {
		pains = strings.Join(p.PainPoints, ", ")
	}
	return fmt.Sprintf(emailPrompt, p.Name, p.Industry, p.Summary, pains, score, sender)
}

// Fallback builds the deterministic email used when generation fails. It
// depends only on the profile and sender.
func Fallback(p model.CompanyProfile, sender string) model.OutreachEmail {
	if strings.TrimSpace(sender) == "" {
		sender = DefaultSender
	}

	var b strings.Builder
	b.WriteString("Hi there,\n\n")
	fmt.Fprintf(&b, "I've been analyzing %s's presence in the %s space.\n\n", p.Name, p.Industry)
	if len(p.PainPoints) > 0 {
		fmt.Fprintf(&b, "Teams like yours often wrestle with %s.\n\n", joinReadable(p.PainPoints))
	}
	fmt.Fprintf(&b, "At %s, we help companies like yours automate repetitive tasks using AI agents and tools like n8n and Clay.\n\n", sender)
	b.WriteString("I'd love to show you how we can save your team hours of manual work.\n\n")
	b.WriteString("Open to a quick chat?\n\n")
	fmt.Fprintf(&b, "Best regards,\n%s Team", sender)

	return model.OutreachEmail{
		Subject: fmt.Sprintf("Automating %s's workflow with AI", p.Name),
		Body:    b.String(),
	}
}

// joinReadable joins up to three items as "a, b and c".
func joinReadable(items []string) string {
	if len(items) > 3 {
		items = items[:3]
	}
	lowered := make([]string, len(items))
	for i, s := range items {
		lowered[i] = strings.ToLower(s)
	}
	if len(lowered) == 1 {
		return lowered[0]
	}
	return strings.Join(lowered[:len(lowered)-1], ", ") + " and " + lowered[len(lowered)-1]
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
