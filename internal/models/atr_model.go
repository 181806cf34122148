package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ATRModel is one registered, trained regressor version. The three paths
// point at the serialized artifacts the loader needs: the regressor itself,
// the per-feature min/max statistics, and the ordered feature-name list.
// All three must resolve to loadable files or the bundle is unusable.
type ATRModel struct {
	bun.BaseModel `bun:"table:atr_models,alias:am"`

	ID             int64     `bun:"id,pk,autoincrement" json:"id"`
	Name           string    `bun:"name,notnull" json:"name"`
	Description    *string   `bun:"description" json:"description,omitempty"`
	ReferenceMonth string    `bun:"reference_month,notnull" json:"reference_month"` // ISO date YYYY-MM-DD
	Variety        string    `bun:"variety,notnull" json:"variety"`
	Active         bool      `bun:"active,notnull,default:true" json:"active"`
	RegressorPath  string    `bun:"regressor_path,notnull" json:"-"`
	StatsPath      string    `bun:"stats_path,notnull" json:"-"`
	FeaturesPath   string    `bun:"features_path,notnull" json:"-"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
