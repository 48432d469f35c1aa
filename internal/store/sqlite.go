package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/procurewatch/bomrisk/internal/model"
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
CREATE TABLE IF NOT EXISTS product_cache (
	part_key   TEXT PRIMARY KEY,
	product    TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS search_cache (
	part_key   TEXT PRIMARY KEY,
	products   TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS assessments (
	id          TEXT PRIMARY KEY,
	part_key    TEXT NOT NULL,
	mpn         TEXT NOT NULL,
	risk_level  TEXT NOT NULL,
	assessment  TEXT NOT NULL,
	assessed_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS evaluation_reports (
	id           TEXT PRIMARY KEY,
	target_id    TEXT NOT NULL,
	candidate_id TEXT NOT NULL,
	report       TEXT NOT NULL,
	evaluated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_product_cache_expires_at ON product_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_search_cache_expires_at ON search_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_assessments_part_key ON assessments(part_key);
CREATE INDEX IF NOT EXISTS idx_assessments_risk_level ON assessments(risk_level);
CREATE INDEX IF NOT EXISTS idx_evaluation_reports_target ON evaluation_reports(target_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCachedProduct(ctx context.Context, key string) (*model.UnifiedProduct, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT product FROM product_cache WHERE part_key = ? AND expires_at > ?`,
		key, time.Now().UTC(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get cached product %s", key)
	}

	var product model.UnifiedProduct
	if err := json.Unmarshal([]byte(raw), &product); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal cached product %s", key)
	}
	return &product, nil
}

func (s *SQLiteStore) SetCachedProduct(ctx context.Context, key string, product model.UnifiedProduct, ttl time.Duration) error {
	raw, err := json.Marshal(product)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal product")
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO product_cache (part_key, product, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(part_key) DO UPDATE SET product = excluded.product, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		key, string(raw), now, now.Add(ttl),
	)
	return eris.Wrapf(err, "sqlite: set cached product %s", key)
}

func (s *SQLiteStore) GetCachedSearch(ctx context.Context, key string) ([]model.UnifiedProduct, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT products FROM search_cache WHERE part_key = ? AND expires_at > ?`,
		key, time.Now().UTC(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get cached search %s", key)
	}

	var products []model.UnifiedProduct
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal cached search %s", key)
	}
	return products, nil
}

func (s *SQLiteStore) SetCachedSearch(ctx context.Context, key string, products []model.UnifiedProduct, ttl time.Duration) error {
	raw, err := json.Marshal(products)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal search results")
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_cache (part_key, products, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(part_key) DO UPDATE SET products = excluded.products, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		key, string(raw), now, now.Add(ttl),
	)
	return eris.Wrapf(err, "sqlite: set cached search %s", key)
}

func (s *SQLiteStore) SaveAssessment(ctx context.Context, a model.RiskAssessment) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal assessment")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO assessments (id, part_key, mpn, risk_level, assessment, assessed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), model.PartKey(a.MPN), a.MPN, string(a.RiskLevel), string(raw), a.AssessedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save assessment %s", a.MPN)
}

func (s *SQLiteStore) ListAssessments(ctx context.Context, filter AssessmentFilter) ([]model.RiskAssessment, error) {
	query := `SELECT assessment FROM assessments WHERE 1=1`
	var args []any
	if filter.MPN != "" {
		query += ` AND part_key = ?`
		args = append(args, model.PartKey(filter.MPN))
	}
	if filter.RiskLevel != "" {
		query += ` AND risk_level = ?`
		args = append(args, string(filter.RiskLevel))
	}
	query += ` ORDER BY assessed_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assessments")
	}
	defer rows.Close()

	var out []model.RiskAssessment
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan assessment")
		}
		var a model.RiskAssessment
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal assessment")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate assessments")
}

func (s *SQLiteStore) SaveEvaluationReport(ctx context.Context, r model.EvaluationReport) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal evaluation report")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluation_reports (id, target_id, candidate_id, report, evaluated_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), r.TargetID, r.CandidateID, string(raw), r.EvaluatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save evaluation report %s/%s", r.TargetID, r.CandidateID)
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	var total int64
	for _, table := range []string{"product_cache", "search_cache"} {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE expires_at <= ?`, now)
		if err != nil {
			return int(total), eris.Wrapf(err, "sqlite: delete expired from %s", table)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return int(total), nil
}
