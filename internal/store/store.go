// Package store persists lead records. Every query is scoped to the owning
// user; a lead owned by someone else is indistinguishable from a missing one.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadintel/internal/config"
	"github.com/sells-group/leadintel/internal/model"
)

// ErrNotFound is returned when a lead does not exist for the given owner.
var ErrNotFound = eris.New("store: lead not found")

// Store defines lead persistence.
type Store interface {
	// CreateLead assigns an ID and creation time when unset, then performs a
	// single durable insert.
	CreateLead(ctx context.Context, lead *model.Lead) error
	// ListLeads returns one page of the owner's leads without acquisition snapshots.
	ListLeads(ctx context.Context, filter model.LeadFilter) (*model.LeadPage, error)
	GetLead(ctx context.Context, id, ownerID string) (*model.Lead, error)
	DeleteLead(ctx context.Context, id, ownerID string) error
	Stats(ctx context.Context, ownerID string) (*model.LeadStats, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "mongo":
		return NewMongo(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// prepareLead fills the generated fields of a new lead.
func prepareLead(lead *model.Lead) error {
	if lead == nil {
		return eris.New("store: nil lead")
	}
	if lead.OwnerID == "" {
		return eris.New("store: lead owner is required")
	}
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now()
	}
	lead.CreatedAt = lead.CreatedAt.UTC()
	lead.Profile.Normalize()
	return nil
}

// statsFromAggregates rounds the average to one decimal.
func statsFromAggregates(total int64, avg float64, high int64) *model.LeadStats {
	if total == 0 {
		avg = 0
	}
	return &model.LeadStats{
		TotalLeads:     int(total),
		AverageScore:   roundTenth(avg),
		HighScoreLeads: int(high),
	}
}

func roundTenth(v float64) float64 {
	if v < 0 {
		return -roundTenth(-v)
	}
	return float64(int64(v*10+0.5)) / 10
}

// placeholder renders the n-th (1-based) bind parameter for a SQL dialect.
type placeholder func(n int) string

func dollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }
func questionPlaceholder(int) string { return "?" }

// leadQuery is the WHERE/ORDER part of a lead listing shared by the SQL stores.
type leadQuery struct {
	where string
	args  []any
	order string
}

// buildLeadQuery translates a normalized filter. Search matches the company
// name and industry matches case-insensitively as a substring.
func buildLeadQuery(f model.LeadFilter, ph placeholder) leadQuery {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, ph(len(args))))
	}

	add("owner_id = %s", f.OwnerID)
	if s := strings.TrimSpace(f.Search); s != "" {
		add(`LOWER(company_name) LIKE %s ESCAPE '\'`, likePattern(s))
	}
	if s := strings.TrimSpace(f.Industry); s != "" {
		add(`LOWER(industry) LIKE %s ESCAPE '\'`, likePattern(s))
	}
	if f.MinScore != nil {
		add("score >= %s", *f.MinScore)
	}
	if f.MaxScore != nil {
		add("score <= %s", *f.MaxScore)
	}

	return leadQuery{
		where: strings.Join(conds, " AND "),
		args:  args,
		order: orderClause(f.Sort),
	}
}

func orderClause(s model.LeadSort) string {
	switch s {
	case model.SortScoreHigh:
		return "score DESC, created_at DESC"
	case model.SortScoreLow:
		return "score ASC, created_at DESC"
	case model.SortName:
		return "LOWER(company_name) ASC, created_at DESC"
	default:
		return "created_at DESC, id DESC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

const (
	leadInsertColumns = "id, owner_id, url, company_name, industry, score, profile, contacts, email, scrape, degraded, created_at"
	leadDetailColumns = "id, owner_id, url, score, profile, contacts, email, scrape, degraded, created_at"
	leadListColumns   = "id, owner_id, url, score, profile, contacts, email, degraded, created_at"
)

// scannable abstracts a single result row across database/sql and pgx.
type scannable interface {
	Scan(dest ...any) error
}

// leadArgs returns the bind values for leadInsertColumns.
func leadArgs(lead *model.Lead) ([]any, error) {
	profile, err := json.Marshal(lead.Profile)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal profile")
	}
	contacts, err := json.Marshal(lead.Contacts)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal contacts")
	}
	email, err := json.Marshal(lead.Email)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal email")
	}
	scrape, err := json.Marshal(lead.Scrape)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal scrape")
	}
	degraded := lead.Degraded
	if degraded == nil {
		degraded = []string{}
	}
	degradedJSON, err := json.Marshal(degraded)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal degraded")
	}
	return []any{
		lead.ID, lead.OwnerID, lead.URL,
		lead.Profile.Name, lead.Profile.Industry, lead.Score,
		string(profile), string(contacts), string(email), string(scrape), string(degradedJSON),
		lead.CreatedAt,
	}, nil
}

// scanLead reads a row selected with leadDetailColumns, or leadListColumns
// when withScrape is false.
func scanLead(row scannable, withScrape bool) (*model.Lead, error) {
	var (
		lead                                       model.Lead
		profile, contacts, email, scrape, degraded []byte
	)
	dest := []any{&lead.ID, &lead.OwnerID, &lead.URL, &lead.Score, &profile, &contacts, &email}
	if withScrape {
		dest = append(dest, &scrape)
	}
	dest = append(dest, &degraded, &lead.CreatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	for _, col := range []struct {
		name string
		raw  []byte
		out  any
	}{
		{"profile", profile, &lead.Profile},
		{"contacts", contacts, &lead.Contacts},
		{"email", email, &lead.Email},
		{"scrape", scrape, &lead.Scrape},
		{"degraded", degraded, &lead.Degraded},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.out); err != nil {
			return nil, eris.Wrapf(err, "store: unmarshal %s", col.name)
		}
	}
	if len(lead.Degraded) == 0 {
		lead.Degraded = nil
	}
	lead.Profile.Normalize()
	lead.CreatedAt = lead.CreatedAt.UTC()
	return &lead, nil
}
