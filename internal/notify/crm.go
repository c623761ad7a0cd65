package notify

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/pkg/notion"
	"github.com/sells-group/leadintel/pkg/salesforce"
)

// Notion database property names written by NotionHook.
const (
	notionPropCompany  = "Company"
	notionPropWebsite  = "Website"
	notionPropScore    = "Score"
	notionPropIndustry = "Industry"
	notionPropSize     = "Size"
	notionPropLocation = "Location"
	notionPropEmail    = "Email"
	notionPropPhone    = "Phone"
	notionPropServices = "Services"
	notionPropSummary  = "Summary"
	notionPropSubject  = "Outreach Subject"
	notionPropAnalyzed = "Analyzed"
)

// NotionHook upserts one page per lead website into a Notion database.
type NotionHook struct {
	client     notion.Client
	databaseID string
}

// NewNotionHook creates a NotionHook writing to databaseID.
func NewNotionHook(client notion.Client, databaseID string) *NotionHook {
	return &NotionHook{client: client, databaseID: databaseID}
}

func (h *NotionHook) Name() string { return "notion" }

func (h *NotionHook) Notify(ctx context.Context, lead *model.Lead) error {
	id, created, err := notion.UpsertByURL(ctx, h.client, h.databaseID, notionPropWebsite, lead.URL, notionProperties(lead))
	if err != nil {
		return eris.Wrap(err, "notify: notion")
	}
	zap.L().Debug("notify: notion page upserted",
		zap.String("page_id", id),
		zap.Bool("created", created),
	)
	return nil
}

func notionProperties(lead *model.Lead) notionapi.Properties {
	props := notionapi.Properties{
		notionPropCompany:  notion.Title(lead.Profile.Name),
		notionPropWebsite:  notion.URL(lead.URL),
		notionPropScore:    notion.Number(lead.Score),
		notionPropIndustry: notion.Select(lead.Profile.Industry),
		notionPropSize:     notion.Text(lead.Profile.Size),
		notionPropLocation: notion.Text(lead.Profile.Location),
		notionPropServices: notion.MultiSelect(lead.Profile.Services),
		notionPropSummary:  notion.Text(lead.Profile.Summary),
		notionPropSubject:  notion.Text(lead.Email.Subject),
		notionPropAnalyzed: notion.Date(lead.CreatedAt),
	}
	if len(lead.Contacts.Emails) > 0 {
		props[notionPropEmail] = notion.Email(lead.Contacts.Emails[0])
	}
	if len(lead.Contacts.Phones) > 0 {
		props[notionPropPhone] = notion.Text(lead.Contacts.Phones[0])
	}
	return props
}

// LeadSource tags leads created in Salesforce.
const LeadSource = "Website Analysis"

// SalesforceHook upserts a Salesforce Lead keyed by website.
type SalesforceHook struct {
	client salesforce.Client
}

// NewSalesforceHook creates a SalesforceHook.
func NewSalesforceHook(client salesforce.Client) *SalesforceHook {
	return &SalesforceHook{client: client}
}

func (h *SalesforceHook) Name() string { return "salesforce" }

func (h *SalesforceHook) Notify(ctx context.Context, lead *model.Lead) error {
	id, created, err := salesforce.UpsertLead(ctx, h.client, salesforceLead(lead))
	if err != nil {
		return eris.Wrap(err, "notify: salesforce")
	}
	zap.L().Debug("notify: salesforce lead upserted",
		zap.String("sf_id", id),
		zap.Bool("created", created),
	)
	return nil
}

func salesforceLead(lead *model.Lead) salesforce.Lead {
	l := salesforce.Lead{
		Company:     lead.Profile.Name,
		Website:     lead.URL,
		Description: lead.Profile.Summary,
		Rating:      Rating(lead.Score),
		LeadSource:  LeadSource,
	}
	if lead.Profile.Industry != model.Unknown {
		l.Industry = lead.Profile.Industry
	}
	if len(lead.Contacts.Emails) > 0 {
		l.Email = lead.Contacts.Emails[0]
	}
	if len(lead.Contacts.Phones) > 0 {
		l.Phone = lead.Contacts.Phones[0]
	}
	return l
}

// Rating maps a lead score onto the Salesforce Lead rating picklist.
func Rating(score float64) string {
	switch {
	case score >= model.HighScoreThreshold:
		return "Hot"
	case score >= 5:
		return "Warm"
	default:
		return "Cold"
	}
}
