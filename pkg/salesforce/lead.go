package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Lead is the subset of the Salesforce Lead object used for hand-off.
type Lead struct {
	ID          string `json:"Id" salesforce:"Id"`
	Company     string `json:"Company" salesforce:"Company"`
	LastName    string `json:"LastName" salesforce:"LastName"`
	Website     string `json:"Website" salesforce:"Website"`
	Industry    string `json:"Industry" salesforce:"Industry"`
	Email       string `json:"Email" salesforce:"Email"`
	Phone       string `json:"Phone" salesforce:"Phone"`
	Description string `json:"Description" salesforce:"Description"`
	Rating      string `json:"Rating" salesforce:"Rating"`
	LeadSource  string `json:"LeadSource" salesforce:"LeadSource"`
}

// Fields returns the writable fields of l as a Salesforce record map.
// Empty values are omitted so updates never blank out existing data.
func (l Lead) Fields() map[string]any {
	out := make(map[string]any)
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("Company", l.Company)
	set("LastName", l.LastName)
	set("Website", l.Website)
	set("Industry", l.Industry)
	set("Email", l.Email)
	set("Phone", l.Phone)
	set("Description", l.Description)
	set("Rating", l.Rating)
	set("LeadSource", l.LeadSource)
	return out
}

// FindLeadByWebsite returns the first open Lead whose Website equals website,
// or nil when none exists.
func FindLeadByWebsite(ctx context.Context, c Client, website string) (*Lead, error) {
	soql := fmt.Sprintf(
		"SELECT Id, Company, Website FROM Lead WHERE Website = '%s' AND IsConverted = false LIMIT 1",
		escapeSoql(website),
	)

	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find lead by website %s", website))
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// UpsertLead updates the open Lead for l.Website or inserts a new one.
// It returns the Salesforce ID and whether a record was created.
func UpsertLead(ctx context.Context, c Client, l Lead) (string, bool, error) {
	if l.Company == "" {
		return "", false, eris.New("sf: lead Company is required")
	}
	if l.LastName == "" {
		// LastName is required on Lead; web-sourced leads have no person yet.
		l.LastName = l.Company
	}

	existing, err := FindLeadByWebsite(ctx, c, l.Website)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		if err := c.UpdateOne(ctx, "Lead", existing.ID, l.Fields()); err != nil {
			return "", false, eris.Wrap(err, "sf: upsert lead")
		}
		return existing.ID, false, nil
	}

	id, err := c.InsertOne(ctx, "Lead", l.Fields())
	if err != nil {
		return "", false, eris.Wrap(err, "sf: upsert lead")
	}
	return id, true, nil
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
