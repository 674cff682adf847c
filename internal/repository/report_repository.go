package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/class1/class1-admin-api/internal/models"
)

// ReportRepository tracks asynchronous export jobs.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs a ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, month_key, format, status, progress, error_message, result_url,
        created_by, created_at, updated_at, finished_at`

// Create inserts a queued job.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	const query = `INSERT INTO report_jobs (id, month_key, format, status, progress, error_message, result_url, created_by, created_at, updated_at, finished_at)
        VALUES (:id, :month_key, :format, :status, :progress, :error_message, :result_url, :created_by, :created_at, :updated_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindByID fetches one job. Returns nil when absent.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM report_jobs WHERE id = ?", reportColumns))
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find report job: %w", err)
	}
	return &job, nil
}

// List returns recent jobs, newest first.
func (r *ReportRepository) List(ctx context.Context, limit int) ([]models.ReportJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf("SELECT %s FROM report_jobs ORDER BY created_at DESC LIMIT %d", reportColumns, limit)
	jobs := []models.ReportJob{}
	if err := r.db.SelectContext(ctx, &jobs, query); err != nil {
		return nil, fmt.Errorf("list report jobs: %w", err)
	}
	return jobs, nil
}

// UpdateProgress moves a job to processing with the given percentage.
func (r *ReportRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	query := r.db.Rebind(`UPDATE report_jobs SET status = ?, progress = ?, updated_at = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, models.ReportStatusProcessing, progress, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update report progress: %w", err)
	}
	return nil
}

// MarkFinished records a successful job with its download URL.
func (r *ReportRepository) MarkFinished(ctx context.Context, id, resultURL string) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`UPDATE report_jobs SET status = ?, progress = 100, result_url = ?, updated_at = ?, finished_at = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, models.ReportStatusFinished, resultURL, now, now, id); err != nil {
		return fmt.Errorf("finish report job: %w", err)
	}
	return nil
}

// MarkFailed records a failed job with the error message.
func (r *ReportRepository) MarkFailed(ctx context.Context, id, message string) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`UPDATE report_jobs SET status = ?, error_message = ?, updated_at = ?, finished_at = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, models.ReportStatusFailed, message, now, now, id); err != nil {
		return fmt.Errorf("fail report job: %w", err)
	}
	return nil
}
