package handlers

import (
	"errors"
	"net/http"

	"atr-bknd/internal/services"

	"go.uber.org/zap"
)

// ModelHandler exposes the ATR model registry.
type ModelHandler struct {
	service *services.ModelService
	logr    *zap.Logger
}

func NewModelHandler(svc *services.ModelService, logr *zap.Logger) *ModelHandler {
	return &ModelHandler{service: svc, logr: logr}
}

// ListModels handles GET /models
func (h *ModelHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListActive(r.Context())
	if err != nil {
		h.logr.Error("failed to list models", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list models")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    list,
		"count":   len(list),
	})
}

// SuggestModel handles GET /models/suggest?reference_date=YYYY-MM-DD&variety=X
func (h *ModelHandler) SuggestModel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	referenceDate := q.Get("reference_date")
	variety := q.Get("variety")
	if referenceDate == "" || variety == "" {
		writeError(w, http.StatusBadRequest, "reference_date and variety are required")
		return
	}

	m, err := h.service.Suggest(r.Context(), referenceDate, variety)
	if err != nil {
		if errors.Is(err, services.ErrModelNotFound) {
			writeError(w, http.StatusNotFound, "No active model matches the given date and variety")
			return
		}
		h.logr.Error("model suggestion failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to suggest a model")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    m,
	})
}
