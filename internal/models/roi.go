package models

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// ROI types. A TALHAO (plot) always hangs off a PROPRIEDADE (property).
const (
	ROITypeProperty = "PROPRIEDADE"
	ROITypePlot     = "TALHAO"
)

// ROI is a geo-referenced parcel imported by the external shapefile tool.
// This service only ever reads it. Geometry and Metadata are stored as JSON
// text and parsed on demand.
type ROI struct {
	bun.BaseModel `bun:"table:rois,alias:roi"`

	ID           int64     `bun:"roi_id,pk,autoincrement" json:"roi_id"`
	UserID       int64     `bun:"user_id,notnull" json:"user_id"`
	Name         string    `bun:"name,notnull" json:"name"`
	Description  *string   `bun:"description" json:"description,omitempty"`
	ROIType      string    `bun:"roi_type,notnull" json:"roi_type"`
	ParentROIID  *int64    `bun:"parent_roi_id" json:"parent_roi_id,omitempty"`
	PropertyName *string   `bun:"property_name" json:"property_name,omitempty"`
	PlotName     *string   `bun:"plot_name" json:"plot_name,omitempty"`
	Geometry     string    `bun:"geometry,type:jsonb" json:"-"`
	Metadata     string    `bun:"metadata,type:jsonb" json:"-"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// MetadataMap parses the stored metadata JSON. A malformed or empty blob
// yields an empty map rather than an error; callers treat missing keys as
// absent metadata.
func (r *ROI) MetadataMap() map[string]any {
	out := map[string]any{}
	if r.Metadata == "" {
		return out
	}
	if err := json.Unmarshal([]byte(r.Metadata), &out); err != nil {
		return map[string]any{}
	}
	return out
}

// Hectares returns the ROI area used as the contextual prediction feature.
// It accepts either area_ha or area_total_ha, and reports false when neither
// is present as a positive number. Analysis cannot run without it.
func (r *ROI) Hectares() (float64, bool) {
	md := r.MetadataMap()
	for _, key := range []string{"area_ha", "area_total_ha"} {
		if v, ok := md[key]; ok {
			if f, ok := toFloat(v); ok && f > 0 {
				return f, true
			}
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
