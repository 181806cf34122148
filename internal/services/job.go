package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"atr-bknd/internal/archive"
	"atr-bknd/internal/artifacts"
	"atr-bknd/internal/config"
	"atr-bknd/internal/logger"
	"atr-bknd/internal/models"
	"atr-bknd/internal/raster"

	"github.com/gammazero/workerpool"
	"github.com/gocarina/gocsv"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// JobService owns the analysis job state machine. Job rows are created
// synchronously while the upload request is still open; everything heavy
// runs later inside a background task that this service drives.
type JobService struct {
	db       *bun.DB
	cfg      *config.Config
	logr     *logger.Logger
	rois     *ROIService
	registry *ModelService
	pipeline *AnalysisService
}

func NewJobService(db *bun.DB, cfg *config.Config, logr *logger.Logger, rois *ROIService, registry *ModelService, pipeline *AnalysisService) *JobService {
	return &JobService{db: db, cfg: cfg, logr: logr, rois: rois, registry: registry, pipeline: pipeline}
}

// CreateJob inserts a PENDING job row and returns it. Cheap by contract:
// the caller returns the job id to the client before any processing starts.
func (s *JobService) CreateJob(ctx context.Context, userID int64, roiID, parentJobID *int64) (*models.AnalysisJob, error) {
	job := &models.AnalysisJob{
		UserID:      userID,
		ROIID:       roiID,
		ParentJobID: parentJobID,
		Status:      models.JobPending,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(job).Exec(ctx); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.logr.Info("created analysis job",
		zap.Int64("job_id", job.JobID),
		zap.Int64("user_id", userID))
	return job, nil
}

// RunBatch is the background task for a multi-ROI archive. It never returns
// an error: every failure ends up on a job row, and the temporary upload
// tree is removed on every exit path.
//
// The task deliberately builds its own context instead of borrowing the
// upload request's: the request is long gone by the time heavy work runs.
func (s *JobService) RunBatch(jobID, userID, modelID int64, zipPath string) {
	ctx := context.Background()
	tempRoot := filepath.Dir(zipPath)
	workDir := filepath.Join(tempRoot, fmt.Sprintf("analysis_%d", jobID))

	defer func() {
		if r := recover(); r != nil {
			s.failJob(ctx, jobID, fmt.Sprintf("background task panic: %v", r))
		}
		// Unconditional cleanup: the extracted tree and the uploaded
		// archive both live under tempRoot.
		if err := os.RemoveAll(tempRoot); err != nil {
			s.logr.Error("failed to remove temporary files", zap.Int64("job_id", jobID), zap.Error(err))
		}
	}()

	s.logr.Info("starting batch analysis", zap.Int64("job_id", jobID), zap.Int64("model_id", modelID))
	if !s.transition(ctx, jobID, models.JobProcessing, nil) {
		return
	}

	// No ROI can be scored without the model, so a load failure kills the
	// parent before any child exists.
	bundle, err := s.registry.LoadBundle(ctx, modelID)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("model %d unusable: %v", modelID, err))
		return
	}

	if err := archive.Extract(zipPath, workDir); err != nil {
		s.failJob(ctx, jobID, err.Error())
		return
	}
	groups, err := archive.GroupByROI(workDir)
	if err != nil {
		s.failJob(ctx, jobID, err.Error())
		return
	}

	roiIDs := make([]int64, 0, len(groups))
	for id := range groups {
		roiIDs = append(roiIDs, id)
	}
	sort.Slice(roiIDs, func(i, j int) bool { return roiIDs[i] < roiIDs[j] })

	rois, err := s.rois.GetByIDs(ctx, roiIDs, userID)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("resolving ROIs: %v", err))
		return
	}

	wp := workerpool.New(s.cfg.AnalysisWorkers)
	for _, roiID := range roiIDs {
		roiID := roiID
		wp.Submit(func() {
			s.processROI(ctx, jobID, userID, roiID, rois[roiID], groups[roiID], bundle)
		})
	}
	wp.StopWait()

	// The parent's COMPLETED means "the batch ran to completion", not
	// "every child succeeded"; clients inspect children individually.
	s.transition(ctx, jobID, models.JobCompleted, nil)
	s.logr.Info("batch analysis finished", zap.Int64("job_id", jobID), zap.Int("rois", len(roiIDs)))
}

// RunSingle is the background task for the single-ROI upload path: the same
// state machine collapsed to one job level.
func (s *JobService) RunSingle(jobID, userID, roiID, modelID int64, zipPath string) {
	ctx := context.Background()
	tempRoot := filepath.Dir(zipPath)
	workDir := filepath.Join(tempRoot, fmt.Sprintf("analysis_%d", jobID))

	defer func() {
		if r := recover(); r != nil {
			s.failJob(ctx, jobID, fmt.Sprintf("background task panic: %v", r))
		}
		if err := os.RemoveAll(tempRoot); err != nil {
			s.logr.Error("failed to remove temporary files", zap.Int64("job_id", jobID), zap.Error(err))
		}
	}()

	s.logr.Info("starting analysis", zap.Int64("job_id", jobID), zap.Int64("roi_id", roiID))
	if !s.transition(ctx, jobID, models.JobProcessing, nil) {
		return
	}

	bundle, err := s.registry.LoadBundle(ctx, modelID)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("model %d unusable: %v", modelID, err))
		return
	}

	if err := archive.Extract(zipPath, workDir); err != nil {
		s.failJob(ctx, jobID, err.Error())
		return
	}
	dates, err := archive.GroupByDate(workDir)
	if err != nil {
		s.failJob(ctx, jobID, err.Error())
		return
	}

	roi, err := s.rois.GetByID(ctx, roiID, userID)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("ROI %d not found for user", roiID))
		return
	}
	hectares, ok := roi.Hectares()
	if !ok {
		s.failJob(ctx, jobID, fmt.Sprintf("ROI %d metadata has no usable area ('area_ha' or 'area_total_ha')", roiID))
		return
	}

	s.runDates(ctx, jobID, hectares, dates, bundle)
}

// processROI drives one child job inside a batch. Failures stay inside this
// call: a bad ROI marks its own child FAILED and never aborts siblings.
func (s *JobService) processROI(ctx context.Context, parentJobID, userID, roiID int64, roi *models.ROI, dates archive.DateGroups, bundle *artifacts.Bundle) {
	child, err := s.CreateJob(ctx, userID, &roiID, &parentJobID)
	if err != nil {
		s.logr.Error("failed to create child job",
			zap.Int64("parent_job_id", parentJobID),
			zap.Int64("roi_id", roiID),
			zap.Error(err))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.failJob(ctx, child.JobID, fmt.Sprintf("ROI %d processing panic: %v", roiID, r))
		}
	}()

	if roi == nil {
		s.failJob(ctx, child.JobID, fmt.Sprintf("ROI %d not found for user or not owned by them", roiID))
		return
	}
	hectares, ok := roi.Hectares()
	if !ok {
		s.failJob(ctx, child.JobID, fmt.Sprintf("ROI %d metadata has no usable area ('area_ha' or 'area_total_ha')", roiID))
		return
	}

	if !s.transition(ctx, child.JobID, models.JobProcessing, nil) {
		return
	}
	s.runDates(ctx, child.JobID, hectares, dates, bundle)
}

// runDates executes the pipeline for every acquisition date of one job and
// settles the job's terminal state. Date-level failures are isolated: a bad
// date is recorded and skipped, the loop continues.
func (s *JobService) runDates(ctx context.Context, jobID int64, hectares float64, dates archive.DateGroups, bundle *artifacts.Bundle) {
	order := make([]string, 0, len(dates))
	for date := range dates {
		order = append(order, date)
	}
	sort.Strings(order)

	var results []*models.AnalysisResult
	var skipped []string
	quicklooks := map[string]*raster.Grid{}

	for _, date := range order {
		outcome, ndvi := s.pipeline.Run(dates[date], hectares, bundle)
		if outcome.Status != PipelineSuccess {
			s.logr.Warn("date skipped",
				zap.Int64("job_id", jobID),
				zap.String("date", date),
				zap.String("reason", outcome.Message))
			skipped = append(skipped, fmt.Sprintf("%s (%s)", date, outcome.Message))
			continue
		}
		results = append(results, &models.AnalysisResult{
			JobID:        jobID,
			DateAnalyzed: date,
			PredictedATR: outcome.PredictedATR,
		})
		quicklooks[date] = ndvi
		s.logr.Info("date analyzed",
			zap.Int64("job_id", jobID),
			zap.String("date", date),
			zap.Float64("predicted_atr", outcome.PredictedATR))
	}

	if len(results) == 0 {
		s.failJob(ctx, jobID, "no date produced a usable prediction: "+strings.Join(skipped, "; "))
		return
	}

	if err := s.saveResults(ctx, jobID, results); err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("persisting results: %v", err))
		return
	}
	if dir, err := s.writeResultArtifacts(jobID, results, quicklooks); err != nil {
		s.logr.Error("failed to write result artifacts", zap.Int64("job_id", jobID), zap.Error(err))
	} else {
		_, _ = s.db.NewUpdate().Model((*models.AnalysisJob)(nil)).
			Set("result_path = ?", dir).
			Where("job_id = ?", jobID).
			Exec(ctx)
	}

	// Partially failed dates do not fail the job, but they are surfaced on
	// the error message instead of vanishing silently.
	var note *string
	if len(skipped) > 0 {
		msg := fmt.Sprintf("%d of %d dates produced results; skipped: %s",
			len(results), len(results)+len(skipped), strings.Join(skipped, "; "))
		note = &msg
	}
	s.transition(ctx, jobID, models.JobCompleted, note)
}

// saveResults writes the job's result rows in one batch insert.
func (s *JobService) saveResults(ctx context.Context, jobID int64, results []*models.AnalysisResult) error {
	if _, err := s.db.NewInsert().Model(&results).Exec(ctx); err != nil {
		return err
	}
	s.logr.Info("saved analysis results", zap.Int64("job_id", jobID), zap.Int("count", len(results)))
	return nil
}

type resultCSVRow struct {
	DateAnalyzed string  `csv:"date_analyzed"`
	PredictedATR float64 `csv:"predicted_atr"`
}

// writeResultArtifacts materializes the durable per-job output directory:
// results.csv plus one NDVI quicklook PNG per analyzed date.
func (s *JobService) writeResultArtifacts(jobID int64, results []*models.AnalysisResult, quicklooks map[string]*raster.Grid) (string, error) {
	dir := filepath.Join(s.cfg.ResultsDir, fmt.Sprintf("job_%d", jobID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}

	rows := make([]*resultCSVRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, &resultCSVRow{DateAnalyzed: r.DateAnalyzed, PredictedATR: r.PredictedATR})
	}
	f, err := os.Create(filepath.Join(dir, "results.csv"))
	if err != nil {
		return "", fmt.Errorf("create results.csv: %w", err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return "", fmt.Errorf("write results.csv: %w", err)
	}

	for date, ndvi := range quicklooks {
		if ndvi == nil {
			continue
		}
		out := filepath.Join(dir, fmt.Sprintf("quicklook_%s.png", date))
		if err := raster.RenderNDVIQuicklook(*ndvi, out); err != nil {
			s.logr.Warn("quicklook render failed",
				zap.Int64("job_id", jobID),
				zap.String("date", date),
				zap.Error(err))
		}
	}
	return dir, nil
}

// transition moves a job forward in the state machine. Transitions are
// monotonic: a terminal job is never touched again, and completed_at is set
// exactly once, at the terminal transition. Returns false when the update
// could not be applied.
func (s *JobService) transition(ctx context.Context, jobID int64, status string, errorMessage *string) bool {
	q := s.db.NewUpdate().Model((*models.AnalysisJob)(nil)).
		Set("status = ?", status).
		Where("job_id = ?", jobID).
		Where("status IN (?)", bun.In([]string{models.JobPending, models.JobProcessing}))

	if status == models.JobCompleted || status == models.JobFailed {
		q = q.Set("completed_at = ?", time.Now().UTC())
	}
	if errorMessage != nil {
		q = q.Set("error_message = ?", *errorMessage)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		// The job row is unreachable; nothing further can be recorded.
		s.logr.Error("critical: failed to update job status",
			zap.Int64("job_id", jobID),
			zap.String("status", status),
			zap.Error(err))
		return false
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logr.Warn("ignored non-monotonic job transition",
			zap.Int64("job_id", jobID),
			zap.String("status", status))
		return false
	}
	s.logr.Info("job status updated", zap.Int64("job_id", jobID), zap.String("status", status))
	return true
}

func (s *JobService) failJob(ctx context.Context, jobID int64, message string) {
	s.logr.Error("job failed", zap.Int64("job_id", jobID), zap.String("reason", message))
	s.transition(ctx, jobID, models.JobFailed, &message)
}

// GetJobWithResults returns the job plus its nested children and result rows,
// scoped to the requesting user. Children inherit the ownership check through
// the parent's user filter.
func (s *JobService) GetJobWithResults(ctx context.Context, jobID, userID int64) (*models.AnalysisJob, error) {
	var job models.AnalysisJob
	err := s.db.NewSelect().Model(&job).
		Where("aj.job_id = ? AND aj.user_id = ?", jobID, userID).
		Relation("Results", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("date_analyzed ASC")
		}).
		Relation("Children", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("job_id ASC")
		}).
		Relation("Children.Results", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("date_analyzed ASC")
		}).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// ListJobs returns the user's root jobs, newest first, optionally filtered
// to a set of statuses.
func (s *JobService) ListJobs(ctx context.Context, userID int64, statuses []string, limit, offset int) ([]*models.AnalysisJob, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []*models.AnalysisJob
	q := s.db.NewSelect().Model(&jobs).
		Where("user_id = ? AND parent_job_id IS NULL", userID)
	if len(statuses) > 0 {
		q = q.Where("status IN (?)", bun.In(statuses))
	}
	err := q.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	return jobs, err
}
