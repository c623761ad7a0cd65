package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadintel/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var detailCols = []string{"id", "owner_id", "url", "score", "profile", "contacts", "email", "scrape", "degraded", "created_at"}
var listCols = []string{"id", "owner_id", "url", "score", "profile", "contacts", "email", "degraded", "created_at"}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS leads`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateLead(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO leads \(id, owner_id, url, company_name, industry, score`).
		WithArgs(pgxmock.AnyArg(), "u1", "https://acme.com", "Acme", "Software", 7.5,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "[]", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	lead := &model.Lead{
		OwnerID: "u1",
		URL:     "https://acme.com",
		Profile: model.CompanyProfile{Name: "Acme", Industry: "Software"},
		Score:   7.5,
	}
	require.NoError(t, s.CreateLead(context.Background(), lead))
	assert.NotEmpty(t, lead.ID)
	assert.False(t, lead.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateLead_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO leads`).WillReturnError(errors.New("connection reset"))

	err := s.CreateLead(context.Background(), &model.Lead{OwnerID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: insert lead")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetLead(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, owner_id, url, score, profile, contacts, email, scrape, degraded, created_at FROM leads WHERE id = \$1 AND owner_id = \$2`).
		WithArgs("lead-1", "u1").
		WillReturnRows(mock.NewRows(detailCols).AddRow(
			"lead-1", "u1", "https://acme.com", 8.0,
			[]byte(`{"company_name":"Acme","industry":"Software","services":["a","b"]}`),
			[]byte(`{"emails":["hi@acme.com"],"phones":[],"social":[]}`),
			[]byte(`{"subject":"Hi","body":"Hello"}`),
			[]byte(`{"title":"Acme","description":"Widgets"}`),
			[]byte(`[]`),
			created,
		))

	lead, err := s.GetLead(context.Background(), "lead-1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", lead.Profile.Name)
	assert.Equal(t, model.Unknown, lead.Profile.Size)
	assert.Equal(t, []string{"a", "b"}, lead.Profile.Services)
	assert.Equal(t, []string{"hi@acme.com"}, lead.Contacts.Emails)
	assert.Equal(t, "Widgets", lead.Scrape.Description)
	assert.Nil(t, lead.Degraded)
	assert.Equal(t, created, lead.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetLead_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM leads WHERE id = \$1 AND owner_id = \$2`).
		WithArgs("lead-1", "intruder").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetLead(context.Background(), "lead-1", "intruder")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLeads(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM leads WHERE owner_id = \$1 AND score >= \$2`).
		WithArgs("u1", 7.0).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(`SELECT id, owner_id, url, score, profile, contacts, email, degraded, created_at FROM leads WHERE owner_id = \$1 AND score >= \$2 ORDER BY score DESC, created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("u1", 7.0, 2, 2).
		WillReturnRows(mock.NewRows(listCols).AddRow(
			"lead-3", "u1", "https://c.com", 7.0,
			[]byte(`{"company_name":"C Corp"}`), []byte(`{}`), []byte(`{}`), []byte(`[]`), created,
		))

	minScore := 7.0
	page, err := s.ListLeads(context.Background(), model.LeadFilter{
		OwnerID: "u1", MinScore: &minScore, Sort: model.SortScoreHigh, Page: 2, Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.Pages)
	require.Len(t, page.Leads, 1)
	assert.Equal(t, "C Corp", page.Leads[0].Profile.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteLead(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"deleted", 1, nil},
		{"not owned", 0, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockPostgresStore(t)
			mock.ExpectExec(`DELETE FROM leads WHERE id = \$1 AND owner_id = \$2`).
				WithArgs("lead-1", "u1").
				WillReturnResult(pgxmock.NewResult("DELETE", tt.affected))

			err := s.DeleteLead(context.Background(), "lead-1", "u1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_Stats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(AVG\(score\), 0\)::float8`).
		WithArgs("u1", model.HighScoreThreshold).
		WillReturnRows(mock.NewRows([]string{"count", "avg", "high"}).AddRow(int64(4), 6.875, int64(1)))

	stats, err := s.Stats(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, &model.LeadStats{TotalLeads: 4, AverageScore: 6.9, HighScoreLeads: 1}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
