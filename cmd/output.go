package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadintel/internal/model"
)

// render writes v in the selected format. table is used for "table".
func render(out io.Writer, format string, v any, table func(io.Writer)) error {
	switch format {
	case "", "table":
		table(out)
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(toYAMLTree(v)); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	default:
		return eris.Errorf("unknown output format %q", format)
	}
}

// toYAMLTree round-trips v through JSON so YAML keys follow the json tags.
func toYAMLTree(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return v
	}
	return tree
}

// formatLead writes a readable summary of one lead.
func formatLead(out io.Writer, l *model.Lead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	p := l.Profile
	_, _ = fmt.Fprintf(w, "ID:\t%s\n", l.ID)
	_, _ = fmt.Fprintf(w, "URL:\t%s\n", l.URL)
	_, _ = fmt.Fprintf(w, "Company:\t%s\n", p.Name)
	_, _ = fmt.Fprintf(w, "Industry:\t%s\n", p.Industry)
	_, _ = fmt.Fprintf(w, "Size:\t%s\n", p.Size)
	_, _ = fmt.Fprintf(w, "Location:\t%s\n", p.Location)
	_, _ = fmt.Fprintf(w, "Score:\t%.1f\n", l.Score)
	_, _ = fmt.Fprintf(w, "Emails:\t%s\n", strings.Join(l.Contacts.Emails, ", "))
	_, _ = fmt.Fprintf(w, "Phones:\t%s\n", strings.Join(l.Contacts.Phones, ", "))
	_, _ = fmt.Fprintf(w, "Social:\t%s\n", strings.Join(l.Contacts.Social, ", "))
	if len(l.Degraded) > 0 {
		_, _ = fmt.Fprintf(w, "Degraded:\t%s\n", strings.Join(l.Degraded, ", "))
	}
	_, _ = fmt.Fprintf(w, "Created:\t%s\n", l.CreatedAt.Format("2006-01-02 15:04"))
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nSummary:\n%s\n", p.Summary)
	_, _ = fmt.Fprintf(out, "\nSubject: %s\n\n%s\n", l.Email.Subject, l.Email.Body)
}

// formatLeadList writes a tabular page of leads.
func formatLeadList(out io.Writer, page *model.LeadPage) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMPANY\tINDUSTRY\tSCORE\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-------\t--------\t-----\t-------")
	for _, l := range page.Leads {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s\n",
			truncateID(l.ID),
			truncate(companyLabel(&l), 30),
			truncate(l.Profile.Industry, 20),
			l.Score,
			l.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "\nPage %d of %d (%d leads)\n", page.Page, page.Pages, page.Total)
}

// formatStats writes aggregate lead stats.
func formatStats(out io.Writer, s *model.LeadStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total leads:\t%d\n", s.TotalLeads)
	_, _ = fmt.Fprintf(w, "Average score:\t%.1f\n", s.AverageScore)
	_, _ = fmt.Fprintf(w, "High-score leads:\t%d\n", s.HighScoreLeads)
	_ = w.Flush()
}

// formatBulkReport writes one row per submitted URL.
func formatBulkReport(out io.Writer, r *model.BulkReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "URL\tLEAD\tERROR")
	_, _ = fmt.Fprintln(w, "---\t----\t-----")
	for _, res := range r.Results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", truncate(res.URL, 40), truncateID(res.LeadID), truncate(res.Error, 60))
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "\nSucceeded: %d  Failed: %d\n", r.Succeeded, r.Failed)
}

func companyLabel(l *model.Lead) string {
	if l.Profile.Name != "" {
		return l.Profile.Name
	}
	return l.URL
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
