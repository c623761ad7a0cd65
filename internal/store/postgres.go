package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadintel/internal/model"
)

// pgxPool is the subset of *pgxpool.Pool the store uses. pgxmock satisfies it.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pgxPool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL,
	url          TEXT NOT NULL,
	company_name TEXT NOT NULL,
	industry     TEXT NOT NULL,
	score        DOUBLE PRECISION NOT NULL,
	profile      JSONB NOT NULL,
	contacts     JSONB NOT NULL,
	email        JSONB NOT NULL,
	scrape       JSONB NOT NULL,
	degraded     JSONB NOT NULL DEFAULT '[]',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_owner_created ON leads(owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_leads_owner_score ON leads(owner_id, score DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateLead(ctx context.Context, lead *model.Lead) error {
	if err := prepareLead(lead); err != nil {
		return err
	}
	args, err := leadArgs(lead)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO leads (`+leadInsertColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		args...,
	)
	return eris.Wrapf(err, "postgres: insert lead %s", lead.ID)
}

func (s *PostgresStore) GetLead(ctx context.Context, id, ownerID string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+leadDetailColumns+` FROM leads WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	lead, err := scanLead(row, true)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", id)
	}
	return lead, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter model.LeadFilter) (*model.LeadPage, error) {
	filter.Normalize()
	q := buildLeadQuery(filter, dollarPlaceholder)

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE `+q.where, q.args...).Scan(&total); err != nil {
		return nil, eris.Wrap(err, "postgres: count leads")
	}

	n := len(q.args)
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		leadListColumns, q.where, q.order, n+1, n+2)
	args := append(q.args, filter.Limit, filter.Offset())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows, false)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list leads iterate")
	}
	return model.NewLeadPage(leads, int(total), filter), nil
}

func (s *PostgresStore) DeleteLead(ctx context.Context, id, ownerID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete lead %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context, ownerID string) (*model.LeadStats, error) {
	var (
		total, high int64
		avg         float64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(score), 0)::float8, COUNT(*) FILTER (WHERE score >= $2)
		 FROM leads WHERE owner_id = $1`,
		ownerID, model.HighScoreThreshold,
	).Scan(&total, &avg, &high)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lead stats")
	}
	return statsFromAggregates(total, avg, high), nil
}
