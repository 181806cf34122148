package artifacts

import (
	"encoding/json"
	"fmt"
)

// Regressor is the opaque inference contract: a feature vector in the
// bundle's declared order goes in, one scalar prediction comes out.
type Regressor interface {
	Predict(features []float64) float64
}

// Serialized regressor envelope. Two kinds are supported: "linear" and
// "forest" (an averaged ensemble of binary decision trees, the JSON export
// of the trained random forest).
type regressorFile struct {
	Kind         string      `json:"kind"`
	Intercept    float64     `json:"intercept,omitempty"`
	Coefficients []float64   `json:"coefficients,omitempty"`
	Trees        []*treeSpec `json:"trees,omitempty"`
}

type treeSpec struct {
	// Parallel arrays indexed by node id. Leaves have Feature == -1.
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	Value         []float64 `json:"value"`
}

func decodeRegressor(raw []byte) (Regressor, error) {
	var rf regressorFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		return nil, err
	}
	switch rf.Kind {
	case "linear":
		if len(rf.Coefficients) == 0 {
			return nil, fmt.Errorf("linear regressor has no coefficients")
		}
		return &linearRegressor{intercept: rf.Intercept, coefficients: rf.Coefficients}, nil
	case "forest":
		if len(rf.Trees) == 0 {
			return nil, fmt.Errorf("forest regressor has no trees")
		}
		for i, t := range rf.Trees {
			if err := t.validate(); err != nil {
				return nil, fmt.Errorf("tree %d: %w", i, err)
			}
		}
		return &forestRegressor{trees: rf.Trees}, nil
	default:
		return nil, fmt.Errorf("unknown regressor kind %q", rf.Kind)
	}
}

type linearRegressor struct {
	intercept    float64
	coefficients []float64
}

func (r *linearRegressor) Predict(features []float64) float64 {
	sum := r.intercept
	for i, c := range r.coefficients {
		if i >= len(features) {
			break
		}
		sum += c * features[i]
	}
	return sum
}

type forestRegressor struct {
	trees []*treeSpec
}

func (r *forestRegressor) Predict(features []float64) float64 {
	sum := 0.0
	for _, t := range r.trees {
		sum += t.predict(features)
	}
	return sum / float64(len(r.trees))
}

func (t *treeSpec) validate() error {
	n := len(t.Feature)
	if n == 0 {
		return fmt.Errorf("empty tree")
	}
	if len(t.ChildrenLeft) != n || len(t.ChildrenRight) != n ||
		len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("node arrays have mismatched lengths")
	}
	return nil
}

func (t *treeSpec) predict(features []float64) float64 {
	node := 0
	for t.Feature[node] >= 0 {
		var v float64
		if idx := t.Feature[node]; idx < len(features) {
			v = features[idx]
		}
		if v <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
		if node < 0 || node >= len(t.Feature) {
			return 0
		}
	}
	return t.Value[node]
}
