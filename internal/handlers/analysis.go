package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"atr-bknd/internal/config"
	"atr-bknd/internal/models"
	"atr-bknd/internal/services"
	"atr-bknd/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnalysisHandler exposes the upload endpoints that spawn analysis jobs and
// the polling endpoints that report on them.
type AnalysisHandler struct {
	jobs *services.JobService
	rois *services.ROIService
	cfg  *config.Config
	logr *zap.Logger
}

func NewAnalysisHandler(jobs *services.JobService, rois *services.ROIService, cfg *config.Config, logr *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{jobs: jobs, rois: rois, cfg: cfg, logr: logr}
}

type jobAcceptedResponse struct {
	JobID   int64  `json:"job_id"`
	ROIID   *int64 `json:"roi_id,omitempty"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UploadAnalysis handles POST /analysis/upload — the single-ROI path.
// Multipart form: roi_id, model_id, file (.zip). The heavy work is deferred;
// the client only gets a job id back.
func (h *AnalysisHandler) UploadAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	roiID, modelID, zipPath, ok := h.acceptUpload(w, r, true)
	if !ok {
		return
	}

	// ROI ownership is checked while the request is still open so an
	// obviously bad request fails fast instead of as a FAILED job.
	if _, err := h.rois.GetByID(r.Context(), roiID, userID); err != nil {
		h.discardUpload(zipPath)
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("ROI %d not found or not owned by you", roiID))
			return
		}
		h.logr.Error("roi lookup failed", zap.Error(err), zap.Int64("roi_id", roiID))
		writeError(w, http.StatusInternalServerError, "Failed to start analysis job")
		return
	}

	job, err := h.jobs.CreateJob(r.Context(), userID, &roiID, nil)
	if err != nil {
		h.discardUpload(zipPath)
		h.logr.Error("failed to create analysis job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to start analysis job")
		return
	}

	go h.jobs.RunSingle(job.JobID, userID, roiID, modelID, zipPath)

	writeJSON(w, http.StatusAccepted, jobAcceptedResponse{
		JobID:   job.JobID,
		ROIID:   &roiID,
		Status:  models.JobPending,
		Message: "Analysis job created and queued for processing",
	})
}

// UploadBatchAnalysis handles POST /analysis/upload-batch — the multi-ROI
// path. The archive itself names the ROIs (sentinel2_{roi}_{date}_{band}.tif)
// so only model_id and file are required.
func (h *AnalysisHandler) UploadBatchAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	_, modelID, zipPath, ok := h.acceptUpload(w, r, false)
	if !ok {
		return
	}

	job, err := h.jobs.CreateJob(r.Context(), userID, nil, nil)
	if err != nil {
		h.discardUpload(zipPath)
		h.logr.Error("failed to create batch job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to start analysis job")
		return
	}

	go h.jobs.RunBatch(job.JobID, userID, modelID, zipPath)

	writeJSON(w, http.StatusAccepted, jobAcceptedResponse{
		JobID:   job.JobID,
		Status:  models.JobPending,
		Message: "Batch analysis job created and queued for processing",
	})
}

// acceptUpload parses the multipart form, validates the selectors and stages
// the zip in a fresh temp directory owned by the future background task.
func (h *AnalysisHandler) acceptUpload(w http.ResponseWriter, r *http.Request, wantROI bool) (roiID, modelID int64, zipPath string, ok bool) {
	if err := r.ParseMultipartForm(h.cfg.MaxUploadMB << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return 0, 0, "", false
	}

	if wantROI {
		var err error
		roiID, err = strconv.ParseInt(r.FormValue("roi_id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "roi_id is required and must be numeric")
			return 0, 0, "", false
		}
	}
	var err error
	modelID, err = strconv.ParseInt(r.FormValue("model_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "model_id is required and must be numeric")
		return 0, 0, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return 0, 0, "", false
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".zip") {
		writeError(w, http.StatusBadRequest, "file must be a .zip archive")
		return 0, 0, "", false
	}

	tempDir := filepath.Join(h.cfg.UploadDir, "atr_upload_"+uuid.New().String())
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		h.logr.Error("failed to create upload dir", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to stage upload")
		return 0, 0, "", false
	}

	zipPath = filepath.Join(tempDir, filepath.Base(header.Filename))
	dst, err := os.Create(zipPath)
	if err != nil {
		h.discardUpload(zipPath)
		h.logr.Error("failed to stage upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to stage upload")
		return 0, 0, "", false
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		h.discardUpload(zipPath)
		h.logr.Error("failed to stage upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to stage upload")
		return 0, 0, "", false
	}

	return roiID, modelID, zipPath, true
}

func (h *AnalysisHandler) discardUpload(zipPath string) {
	if zipPath == "" {
		return
	}
	_ = os.RemoveAll(filepath.Dir(zipPath))
}

// GetJob handles GET /analysis/jobs/{id}: the job, its children and all
// result rows, or 404 when the id is unknown or owned by someone else.
func (h *AnalysisHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	jobID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.jobs.GetJobWithResults(r.Context(), jobID, userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Job %d not found or not owned by you", jobID))
			return
		}
		h.logr.Error("failed to fetch job", zap.Error(err), zap.Int64("job_id", jobID))
		writeError(w, http.StatusInternalServerError, "Failed to fetch job")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /analysis/jobs: the user's root jobs, newest first.
func (h *AnalysisHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
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

	statuses := utils.ParseQueryList(q, "status")
	jobs, err := h.jobs.ListJobs(r.Context(), userID, statuses, limit, offset)
	if err != nil {
		h.logr.Error("failed to list jobs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    jobs,
		"count":   len(jobs),
		"limit":   limit,
		"offset":  offset,
	})
}

// DownloadResults handles GET /analysis/jobs/{id}/results.csv by serving the
// CSV written into the job's result directory.
func (h *AnalysisHandler) DownloadResults(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	jobID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.jobs.GetJobWithResults(r.Context(), jobID, userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Job %d not found or not owned by you", jobID))
			return
		}
		h.logr.Error("failed to fetch job", zap.Error(err), zap.Int64("job_id", jobID))
		writeError(w, http.StatusInternalServerError, "Failed to fetch job")
		return
	}
	if job.ResultPath == nil {
		writeError(w, http.StatusNotFound, "Job has no result file")
		return
	}

	csvPath := filepath.Join(*job.ResultPath, "results.csv")
	if _, err := os.Stat(csvPath); err != nil {
		writeError(w, http.StatusNotFound, "Result file no longer exists")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="job_%d_results.csv"`, jobID))
	http.ServeFile(w, r, csvPath)
}
