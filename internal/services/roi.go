package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"atr-bknd/internal/models"

	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a record does not exist or does not belong to
// the requesting user. Callers cannot tell the two apart on purpose.
var ErrNotFound = errors.New("not found")

// ROIService reads regions of interest. ROIs are created by the external
// shapefile import tool; this service never mutates them.
type ROIService struct {
	db *bun.DB
}

func NewROIService(db *bun.DB) *ROIService {
	return &ROIService{db: db}
}

type ROIQueryParams struct {
	Limit          int
	Offset         int
	PropertyFilter string
	VarietyFilter  string
	PropertiesOnly bool
}

// ROIFeature is a ROI rendered as a GeoJSON feature for API responses.
type ROIFeature struct {
	Type       string         `json:"type"` // "Feature"
	ID         int64          `json:"id"`
	Geometry   map[string]any `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// GetByID fetches one ROI scoped to its owner.
func (s *ROIService) GetByID(ctx context.Context, roiID, userID int64) (*models.ROI, error) {
	var roi models.ROI
	err := s.db.NewSelect().Model(&roi).
		Where("roi_id = ? AND user_id = ?", roiID, userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &roi, nil
}

// GetByIDs resolves many ROIs in one query, still scoped to the owner. IDs
// that are unknown or belong to someone else are simply absent from the map.
func (s *ROIService) GetByIDs(ctx context.Context, roiIDs []int64, userID int64) (map[int64]*models.ROI, error) {
	out := make(map[int64]*models.ROI, len(roiIDs))
	if len(roiIDs) == 0 {
		return out, nil
	}
	var rois []*models.ROI
	err := s.db.NewSelect().Model(&rois).
		Where("roi_id IN (?) AND user_id = ?", bun.In(roiIDs), userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, roi := range rois {
		out[roi.ID] = roi
	}
	return out, nil
}

// List returns a page of the user's ROIs with the total count.
func (s *ROIService) List(ctx context.Context, userID int64, params ROIQueryParams) ([]*models.ROI, int, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}

	q := s.db.NewSelect().Model((*models.ROI)(nil)).
		Where("user_id = ?", userID)
	if params.PropertiesOnly {
		q = q.Where("roi_type = ?", models.ROITypeProperty)
	}
	if params.PropertyFilter != "" {
		q = q.Where("property_name = ?", params.PropertyFilter)
	}
	if params.VarietyFilter != "" {
		q = q.Where("metadata LIKE ?", "%"+params.VarietyFilter+"%")
	}

	var rois []*models.ROI
	total, err := q.Order("roi_id ASC").
		Limit(params.Limit).
		Offset(params.Offset).
		ScanAndCount(ctx, &rois)
	if err != nil {
		return nil, 0, err
	}
	return rois, total, nil
}

// PlotsByProperty lists the TALHAO children of one PROPRIEDADE. The parent
// must exist, belong to the user and actually be a property.
func (s *ROIService) PlotsByProperty(ctx context.Context, propertyID, userID int64) ([]*models.ROI, error) {
	parent, err := s.GetByID(ctx, propertyID, userID)
	if err != nil {
		return nil, err
	}
	if parent.ROIType != models.ROITypeProperty {
		return nil, fmt.Errorf("ROI %d is not a property", propertyID)
	}

	var plots []*models.ROI
	err = s.db.NewSelect().Model(&plots).
		Where("parent_roi_id = ? AND user_id = ? AND roi_type = ?", propertyID, userID, models.ROITypePlot).
		Order("roi_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return plots, nil
}

// ToGeoJSON renders a ROI as a GeoJSON feature, validating the stored
// geometry on the way and attaching the geodesic area in hectares as a
// display property. The analysis pipeline does not use this area: hectares
// for prediction always come from the imported metadata.
func (s *ROIService) ToGeoJSON(roi *models.ROI) (*ROIFeature, error) {
	geom, err := geojson.UnmarshalGeometry([]byte(roi.Geometry))
	if err != nil {
		return nil, fmt.Errorf("ROI %d has invalid geometry: %w", roi.ID, err)
	}

	var geomMap map[string]any
	raw, err := geom.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &geomMap); err != nil {
		return nil, err
	}

	props := map[string]any{
		"name":             roi.Name,
		"roi_type":         roi.ROIType,
		"metadata":         roi.MetadataMap(),
		"computed_area_ha": geo.Area(geom.Geometry()) / 10000,
	}
	if roi.PropertyName != nil {
		props["property_name"] = *roi.PropertyName
	}
	if roi.PlotName != nil {
		props["plot_name"] = *roi.PlotName
	}
	if roi.ParentROIID != nil {
		props["parent_roi_id"] = *roi.ParentROIID
	}

	return &ROIFeature{
		Type:       "Feature",
		ID:         roi.ID,
		Geometry:   geomMap,
		Properties: props,
	}, nil
}
