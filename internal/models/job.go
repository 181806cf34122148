package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Job states. Transitions are monotonic:
// PENDING -> PROCESSING -> COMPLETED | FAILED.
const (
	JobPending    = "PENDING"
	JobProcessing = "PROCESSING"
	JobCompleted  = "COMPLETED"
	JobFailed     = "FAILED"
)

// AnalysisJob tracks one unit of asynchronous analysis work. A batch upload
// creates a root job with a nil ROIID; one child job per discovered ROI hangs
// off it. Children always carry both ParentJobID and ROIID.
type AnalysisJob struct {
	bun.BaseModel `bun:"table:analysis_jobs,alias:aj"`

	JobID        int64      `bun:"job_id,pk,autoincrement" json:"job_id"`
	UserID       int64      `bun:"user_id,notnull" json:"user_id"`
	ROIID        *int64     `bun:"roi_id" json:"roi_id,omitempty"`
	ParentJobID  *int64     `bun:"parent_job_id" json:"parent_job_id,omitempty"`
	Status       string     `bun:"status,notnull,default:'PENDING'" json:"status"`
	ErrorMessage *string    `bun:"error_message" json:"error_message,omitempty"`
	ResultPath   *string    `bun:"result_path" json:"result_path,omitempty"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	CompletedAt  *time.Time `bun:"completed_at" json:"completed_at,omitempty"`

	// Relations
	Children []*AnalysisJob    `bun:"rel:has-many,join:job_id=parent_job_id" json:"child_jobs,omitempty"`
	Results  []*AnalysisResult `bun:"rel:has-many,join:job_id=job_id" json:"results,omitempty"`
}

// Terminal reports whether the job reached COMPLETED or FAILED.
func (j *AnalysisJob) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// AnalysisResult is one predicted ATR value for one acquisition date,
// immutable once written.
type AnalysisResult struct {
	bun.BaseModel `bun:"table:analysis_results,alias:ar"`

	ID           int64   `bun:"id,pk,autoincrement" json:"-"`
	JobID        int64   `bun:"job_id,notnull" json:"job_id"`
	DateAnalyzed string  `bun:"date_analyzed,notnull" json:"date_analyzed"` // ISO date YYYY-MM-DD
	PredictedATR float64 `bun:"predicted_atr,notnull" json:"predicted_atr"`
}
