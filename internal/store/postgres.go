package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/procurewatch/bomrisk/internal/db"
	"github.com/procurewatch/bomrisk/internal/model"
)

// PostgresStore implements Store on top of a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects to PostgreSQL with the given DSN.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS product_cache (
	part_key   TEXT PRIMARY KEY,
	product    JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS search_cache (
	part_key   TEXT PRIMARY KEY,
	products   JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS assessments (
	id          UUID PRIMARY KEY,
	part_key    TEXT NOT NULL,
	mpn         TEXT NOT NULL,
	risk_level  TEXT NOT NULL,
	assessment  JSONB NOT NULL,
	assessed_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS evaluation_reports (
	id           UUID PRIMARY KEY,
	target_id    TEXT NOT NULL,
	candidate_id TEXT NOT NULL,
	report       JSONB NOT NULL,
	evaluated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_product_cache_expires_at ON product_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_search_cache_expires_at ON search_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_assessments_part_key ON assessments(part_key);
CREATE INDEX IF NOT EXISTS idx_assessments_risk_level ON assessments(risk_level);
CREATE INDEX IF NOT EXISTS idx_evaluation_reports_target ON evaluation_reports(target_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetCachedProduct(ctx context.Context, key string) (*model.UnifiedProduct, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT product FROM product_cache WHERE part_key = $1 AND expires_at > now()`,
		key,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get cached product %s", key)
	}

	var product model.UnifiedProduct
	if err := json.Unmarshal(raw, &product); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal cached product %s", key)
	}
	return &product, nil
}

func (s *PostgresStore) SetCachedProduct(ctx context.Context, key string, product model.UnifiedProduct, ttl time.Duration) error {
	raw, err := json.Marshal(product)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal product")
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO product_cache (part_key, product, cached_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (part_key) DO UPDATE SET product = EXCLUDED.product, cached_at = EXCLUDED.cached_at, expires_at = EXCLUDED.expires_at`,
		key, raw, now, now.Add(ttl),
	)
	return eris.Wrapf(err, "postgres: set cached product %s", key)
}

func (s *PostgresStore) GetCachedSearch(ctx context.Context, key string) ([]model.UnifiedProduct, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT products FROM search_cache WHERE part_key = $1 AND expires_at > now()`,
		key,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get cached search %s", key)
	}

	var products []model.UnifiedProduct
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal cached search %s", key)
	}
	return products, nil
}

func (s *PostgresStore) SetCachedSearch(ctx context.Context, key string, products []model.UnifiedProduct, ttl time.Duration) error {
	raw, err := json.Marshal(products)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal search results")
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO search_cache (part_key, products, cached_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (part_key) DO UPDATE SET products = EXCLUDED.products, cached_at = EXCLUDED.cached_at, expires_at = EXCLUDED.expires_at`,
		key, raw, now, now.Add(ttl),
	)
	return eris.Wrapf(err, "postgres: set cached search %s", key)
}

func (s *PostgresStore) SaveAssessment(ctx context.Context, a model.RiskAssessment) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal assessment")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO assessments (id, part_key, mpn, risk_level, assessment, assessed_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), model.PartKey(a.MPN), a.MPN, string(a.RiskLevel), raw, a.AssessedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: save assessment %s", a.MPN)
}

func (s *PostgresStore) ListAssessments(ctx context.Context, filter AssessmentFilter) ([]model.RiskAssessment, error) {
	query := `SELECT assessment FROM assessments WHERE 1=1`
	var args []any
	if filter.MPN != "" {
		args = append(args, model.PartKey(filter.MPN))
		query += ` AND part_key = $` + strconv.Itoa(len(args))
	}
	if filter.RiskLevel != "" {
		args = append(args, string(filter.RiskLevel))
		query += ` AND risk_level = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY assessed_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assessments")
	}
	defer rows.Close()

	var out []model.RiskAssessment
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan assessment")
		}
		var a model.RiskAssessment
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal assessment")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate assessments")
}

func (s *PostgresStore) SaveEvaluationReport(ctx context.Context, r model.EvaluationReport) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal evaluation report")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO evaluation_reports (id, target_id, candidate_id, report, evaluated_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), r.TargetID, r.CandidateID, raw, r.EvaluatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: save evaluation report %s/%s", r.TargetID, r.CandidateID)
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) (int, error) {
	var total int64
	for _, table := range []string{"product_cache", "search_cache"} {
		tag, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE expires_at <= now()`)
		if err != nil {
			return int(total), eris.Wrapf(err, "postgres: delete expired from %s", table)
		}
		total += tag.RowsAffected()
	}
	return int(total), nil
}
