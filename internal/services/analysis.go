package services

import (
	"fmt"

	"atr-bknd/internal/artifacts"
	"atr-bknd/internal/logger"
	"atr-bknd/internal/raster"

	"go.uber.org/zap"
)

// Pipeline result statuses.
const (
	PipelineSuccess = "success"
	PipelineError   = "error"
)

// PipelineResult is the outcome of one (ROI, date) pipeline run. Errors stay
// inside this type: the pipeline never propagates a failure past its own
// boundary, callers check Status.
type PipelineResult struct {
	Status       string
	PredictedATR float64
	Message      string
}

// AnalysisService is the feature-extraction and prediction engine. It holds
// no per-job state; the orchestrator feeds it band paths, hectares and a
// loaded model bundle.
type AnalysisService struct {
	extractor *raster.Extractor
	logr      *logger.Logger
}

func NewAnalysisService(extractor *raster.Extractor, logr *logger.Logger) *AnalysisService {
	return &AnalysisService{extractor: extractor, logr: logr}
}

// Run executes the whole pipeline for one image: extract features, append
// hectares, assemble and normalize the model's feature vector, predict.
// The returned NDVI grid feeds the quicklook renderer; it is nil when
// extraction failed.
func (s *AnalysisService) Run(bandPaths map[string]string, hectares float64, bundle *artifacts.Bundle) (result PipelineResult, ndvi *raster.Grid) {
	defer func() {
		if r := recover(); r != nil {
			result = PipelineResult{Status: PipelineError, Message: fmt.Sprintf("pipeline panic: %v", r)}
			ndvi = nil
		}
	}()

	row, grid, err := s.extractor.ImageFeatures(bandPaths)
	if err != nil {
		return PipelineResult{Status: PipelineError, Message: err.Error()}, nil
	}

	// Hectares is the one contextual feature not derived from the image.
	row["Hectares"] = hectares

	vector, missing := assembleVector(row, bundle.FeatureList)
	if len(missing) > 0 {
		// Likely a version drift between extractor and model bundle; the
		// contract says fill with zero and keep going.
		s.logr.Warn("feature row is missing model features, filling with zero",
			zap.Strings("missing", missing))
	}

	normalized := normalizeVector(vector, bundle.FeatureList, bundle.FeatureStats)
	prediction := bundle.Regressor.Predict(normalized)

	return PipelineResult{Status: PipelineSuccess, PredictedATR: prediction}, &grid
}

// assembleVector selects exactly the features the bundle declares, in its
// order. Features absent from the row become 0; extras in the row are
// dropped. The returned missing list is for diagnostics only.
func assembleVector(row map[string]float64, featureList []string) ([]float64, []string) {
	vector := make([]float64, len(featureList))
	var missing []string
	for i, name := range featureList {
		if v, ok := row[name]; ok {
			vector[i] = v
		} else {
			missing = append(missing, name)
		}
	}
	return vector, missing
}

// normalizeVector maps each feature into [-1, 1] with the stored min/max:
// 2*(v-min)/(max-min)-1. A constant feature (max == min) normalizes to 0.
// Features without stored statistics pass through untouched, matching the
// training-side scaler.
func normalizeVector(vector []float64, featureList []string, stats map[string]artifacts.MinMax) []float64 {
	out := make([]float64, len(vector))
	copy(out, vector)
	for i, name := range featureList {
		mm, ok := stats[name]
		if !ok {
			continue
		}
		span := mm.Max - mm.Min
		if span > 0 {
			out[i] = 2*((vector[i]-mm.Min)/span) - 1
		} else {
			out[i] = 0
		}
	}
	return out
}
