package models

import "time"

// ReportFormat enumerates export encodings.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportStatus enumerates job lifecycle states.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "queued"
	ReportStatusProcessing ReportStatus = "processing"
	ReportStatusFinished   ReportStatus = "finished"
	ReportStatusFailed     ReportStatus = "failed"
)

// ReportJob tracks one asynchronous survey export. MonthKey empty means
// the export covers all surveys.
type ReportJob struct {
	ID           string       `db:"id" json:"id"`
	MonthKey     string       `db:"month_key" json:"monthKey"`
	Format       ReportFormat `db:"format" json:"format"`
	Status       ReportStatus `db:"status" json:"status"`
	Progress     int          `db:"progress" json:"progress"`
	ErrorMessage string       `db:"error_message" json:"errorMessage,omitempty"`
	ResultURL    *string      `db:"result_url" json:"resultUrl,omitempty"`
	CreatedBy    string       `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`
	FinishedAt   *time.Time   `db:"finished_at" json:"finishedAt,omitempty"`
}

// DashboardSummary aggregates the landing-page counters.
type DashboardSummary struct {
	Students              int       `json:"students"`
	Instructors           int       `json:"instructors"`
	WeekKey               string    `json:"weekKey"`
	WeekCompletionPercent int       `json:"weekCompletionPercent"`
	MonthKey              string    `json:"monthKey"`
	PaidCount             int       `json:"paidCount"`
	SurveyCount           int       `json:"surveyCount"`
	GeneratedAt           time.Time `json:"generatedAt"`
}
