package services

import (
	"context"
	"database/sql"
	"errors"

	"atr-bknd/internal/artifacts"
	"atr-bknd/internal/models"

	"github.com/uptrace/bun"
)

// ErrModelNotFound marks a model id that is unknown or marked inactive.
var ErrModelNotFound = errors.New("model not found or inactive")

// ModelService resolves registered ATR model versions and loads their
// artifact bundles. Bundles are never cached across jobs: reloading from
// disk keeps a freshly registered model visible to the next job without a
// process restart.
type ModelService struct {
	db *bun.DB
}

func NewModelService(db *bun.DB) *ModelService {
	return &ModelService{db: db}
}

// ListActive lists every model available for selection.
func (s *ModelService) ListActive(ctx context.Context) ([]*models.ATRModel, error) {
	var out []*models.ATRModel
	err := s.db.NewSelect().Model(&out).
		Where("active = true").
		Order("variety ASC", "reference_month DESC").
		Scan(ctx)
	return out, err
}

// Suggest picks the most recent active model whose reference month does not
// exceed the given date, for the given variety. ISO dates compare
// lexicographically, so plain string comparison is correct here.
func (s *ModelService) Suggest(ctx context.Context, referenceDate, variety string) (*models.ATRModel, error) {
	var m models.ATRModel
	err := s.db.NewSelect().Model(&m).
		Where("reference_month <= ? AND variety = ? AND active = true", referenceDate, variety).
		Order("reference_month DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ArtifactPaths resolves a model id to its three artifact file paths.
func (s *ModelService) ArtifactPaths(ctx context.Context, modelID int64) (artifacts.Paths, error) {
	var m models.ATRModel
	err := s.db.NewSelect().Model(&m).
		Where("id = ? AND active = true", modelID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return artifacts.Paths{}, ErrModelNotFound
		}
		return artifacts.Paths{}, err
	}
	return artifacts.Paths{
		RegressorPath: m.RegressorPath,
		StatsPath:     m.StatsPath,
		FeaturesPath:  m.FeaturesPath,
	}, nil
}

// LoadBundle resolves and deserializes the full bundle for one job.
func (s *ModelService) LoadBundle(ctx context.Context, modelID int64) (*artifacts.Bundle, error) {
	paths, err := s.ArtifactPaths(ctx, modelID)
	if err != nil {
		return nil, err
	}
	return artifacts.Load(paths)
}
