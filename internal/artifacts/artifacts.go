// Package artifacts loads the serialized pieces of a trained ATR model
// bundle: the regressor, the per-feature normalization statistics and the
// ordered feature-name list. Bundles are loaded fresh for every job so a
// newly registered model version is picked up without a restart.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
)

// Paths locates the three artifact files of one registered model.
type Paths struct {
	RegressorPath string
	StatsPath     string
	FeaturesPath  string
}

// MinMax is the stored normalization range for one feature.
type MinMax struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Bundle is one fully loaded model version.
type Bundle struct {
	Regressor    Regressor
	FeatureStats map[string]MinMax
	FeatureList  []string
}

// NotFoundError reports a missing artifact file, surfacing which one.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("model artifact file not found: %s", e.Path)
}

// Load deserializes the three artifact files. A missing file yields a
// *NotFoundError naming it; anything else decodes into a generic load error.
func Load(p Paths) (*Bundle, error) {
	regRaw, err := readArtifact(p.RegressorPath)
	if err != nil {
		return nil, err
	}
	reg, err := decodeRegressor(regRaw)
	if err != nil {
		return nil, fmt.Errorf("decode regressor %s: %w", p.RegressorPath, err)
	}

	statsRaw, err := readArtifact(p.StatsPath)
	if err != nil {
		return nil, err
	}
	var stats map[string]MinMax
	if err := json.Unmarshal(statsRaw, &stats); err != nil {
		return nil, fmt.Errorf("decode feature stats %s: %w", p.StatsPath, err)
	}

	featRaw, err := readArtifact(p.FeaturesPath)
	if err != nil {
		return nil, err
	}
	var features []string
	if err := json.Unmarshal(featRaw, &features); err != nil {
		return nil, fmt.Errorf("decode feature list %s: %w", p.FeaturesPath, err)
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("feature list %s is empty", p.FeaturesPath)
	}

	return &Bundle{Regressor: reg, FeatureStats: stats, FeatureList: features}, nil
}

func readArtifact(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	return data, nil
}
