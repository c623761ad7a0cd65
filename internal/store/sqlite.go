package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadintel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL,
	url          TEXT NOT NULL,
	company_name TEXT NOT NULL,
	industry     TEXT NOT NULL,
	score        REAL NOT NULL,
	profile      TEXT NOT NULL,
	contacts     TEXT NOT NULL,
	email        TEXT NOT NULL,
	scrape       TEXT NOT NULL,
	degraded     TEXT NOT NULL DEFAULT '[]',
	created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_owner_created ON leads(owner_id, created_at);
CREATE INDEX IF NOT EXISTS idx_leads_owner_score ON leads(owner_id, score);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateLead(ctx context.Context, lead *model.Lead) error {
	if err := prepareLead(lead); err != nil {
		return err
	}
	args, err := leadArgs(lead)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (`+leadInsertColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	return eris.Wrapf(err, "sqlite: insert lead %s", lead.ID)
}

func (s *SQLiteStore) GetLead(ctx context.Context, id, ownerID string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadDetailColumns+` FROM leads WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	)
	lead, err := scanLead(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lead %s", id)
	}
	return lead, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter model.LeadFilter) (*model.LeadPage, error) {
	filter.Normalize()
	q := buildLeadQuery(filter, questionPlaceholder)

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads WHERE `+q.where, q.args...).Scan(&total); err != nil {
		return nil, eris.Wrap(err, "sqlite: count leads")
	}

	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY %s LIMIT ? OFFSET ?`,
		leadListColumns, q.where, q.order)
	args := append(q.args, filter.Limit, filter.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows, false)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads iterate")
	}
	return model.NewLeadPage(leads, int(total), filter), nil
}

func (s *SQLiteStore) DeleteLead(ctx context.Context, id, ownerID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete lead %s", id)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) Stats(ctx context.Context, ownerID string) (*model.LeadStats, error) {
	var (
		total, high int64
		avg         float64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(score), 0.0), COALESCE(SUM(CASE WHEN score >= ? THEN 1 ELSE 0 END), 0)
		 FROM leads WHERE owner_id = ?`,
		model.HighScoreThreshold, ownerID,
	).Scan(&total, &avg, &high)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lead stats")
	}
	return statsFromAggregates(total, avg, high), nil
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
