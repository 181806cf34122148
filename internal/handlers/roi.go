package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"atr-bknd/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ROIHandler exposes read-only ROI endpoints. ROIs are imported by an
// external tool; nothing here mutates them.
type ROIHandler struct {
	service *services.ROIService
	logr    *zap.Logger
}

func NewROIHandler(svc *services.ROIService, logr *zap.Logger) *ROIHandler {
	return &ROIHandler{service: svc, logr: logr}
}

// ListROIs handles GET /rois
func (h *ROIHandler) ListROIs(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset, err := strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	params := services.ROIQueryParams{
		Limit:          limit,
		Offset:         offset,
		PropertyFilter: q.Get("property"),
		VarietyFilter:  q.Get("variety"),
		PropertiesOnly: q.Get("all") == "",
	}

	rois, total, err := h.service.List(r.Context(), userID, params)
	if err != nil {
		h.logr.Error("failed to list rois", zap.Error(err), zap.Int64("user_id", userID))
		writeError(w, http.StatusInternalServerError, "Failed to list ROIs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    rois,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetROI handles GET /rois/{id}, returning the ROI as a GeoJSON feature.
func (h *ROIHandler) GetROI(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	roiID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ROI ID")
		return
	}

	roi, err := h.service.GetByID(r.Context(), roiID, userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("ROI %d not found or not owned by you", roiID))
			return
		}
		h.logr.Error("failed to fetch roi", zap.Error(err), zap.Int64("roi_id", roiID))
		writeError(w, http.StatusInternalServerError, "Failed to fetch ROI")
		return
	}

	feature, err := h.service.ToGeoJSON(roi)
	if err != nil {
		h.logr.Error("roi geometry unusable", zap.Error(err), zap.Int64("roi_id", roiID))
		writeError(w, http.StatusInternalServerError, "ROI geometry is unusable")
		return
	}

	writeJSON(w, http.StatusOK, feature)
}

// GetPlots handles GET /rois/{id}/plots: the TALHAO children of a property.
func (h *ROIHandler) GetPlots(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	roiID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ROI ID")
		return
	}

	plots, err := h.service.PlotsByProperty(r.Context(), roiID, userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Property %d not found or not owned by you", roiID))
			return
		}
		h.logr.Warn("failed to list plots", zap.Error(err), zap.Int64("roi_id", roiID))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    plots,
		"count":   len(plots),
	})
}
