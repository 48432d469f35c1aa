// Package store persists cached vendor products, risk assessments, and
// evaluation reports, with SQLite and PostgreSQL backends.
package store

import (
	"context"
	"time"

	"github.com/procurewatch/bomrisk/internal/model"
)

// AssessmentFilter specifies criteria for listing risk assessments.
type AssessmentFilter struct {
	MPN       string          `json:"mpn,omitempty"`
	RiskLevel model.RiskLevel `json:"risk_level,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the risk pipeline. Cache
// reads return (nil, nil) on a miss or an expired entry; absence is not an
// error.
type Store interface {
	// Product cache, keyed by model.PartKey.
	GetCachedProduct(ctx context.Context, key string) (*model.UnifiedProduct, error)
	SetCachedProduct(ctx context.Context, key string, product model.UnifiedProduct, ttl time.Duration) error

	// Substitute search cache, keyed by model.PartKey of the target.
	GetCachedSearch(ctx context.Context, key string) ([]model.UnifiedProduct, error)
	SetCachedSearch(ctx context.Context, key string, products []model.UnifiedProduct, ttl time.Duration) error

	// Assessments
	SaveAssessment(ctx context.Context, a model.RiskAssessment) error
	ListAssessments(ctx context.Context, filter AssessmentFilter) ([]model.RiskAssessment, error)

	// Evaluation reports
	SaveEvaluationReport(ctx context.Context, r model.EvaluationReport) error

	// Lifecycle
	DeleteExpired(ctx context.Context) (int, error)
	Migrate(ctx context.Context) error
	Close() error
}
