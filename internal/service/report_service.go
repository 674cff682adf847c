package service

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/class1/class1-admin-api/internal/models"
	appErrors "github.com/class1/class1-admin-api/pkg/errors"
	"github.com/class1/class1-admin-api/pkg/jobs"
	"github.com/class1/class1-admin-api/pkg/period"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	List(ctx context.Context, limit int) ([]models.ReportJob, error)
	UpdateProgress(ctx context.Context, id string, progress int) error
	MarkFinished(ctx context.Context, id, resultURL string) error
	MarkFailed(ctx context.Context, id, message string) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

// ReportRequest asks for a survey archive export. An empty month key means
// everything.
type ReportRequest struct {
	MonthKey string              `json:"monthKey"`
	Format   models.ReportFormat `json:"format"`
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ReportService manages the survey export job lifecycle: persist, enqueue,
// process in the background, and resolve signed downloads.
type ReportService struct {
	repo     reportJobStore
	queue    jobDispatcher
	exporter *ExportService
	logger   *zap.Logger

	resultTTL       time.Duration
	cleanupInterval time.Duration
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, queue jobDispatcher, exporter *ExportService, resultTTL, cleanupInterval time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resultTTL <= 0 {
		resultTTL = 24 * time.Hour
	}
	return &ReportService{
		repo:            repo,
		queue:           queue,
		exporter:        exporter,
		logger:          logger,
		resultTTL:       resultTTL,
		cleanupInterval: cleanupInterval,
	}
}

// CreateJob validates the request, persists the job, and enqueues it.
func (s *ReportService) CreateJob(ctx context.Context, req ReportRequest, actorID string) (*models.ReportJob, error) {
	if req.MonthKey != "" && !period.IsMonthKey(req.MonthKey) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid month key, expected YYYY-MM")
	}
	if req.Format != models.ReportFormatCSV && req.Format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}

	job := &models.ReportJob{
		MonthKey:  req.MonthKey,
		Format:    req.Format,
		Status:    models.ReportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "survey-export"}); err != nil {
		if markErr := s.repo.MarkFailed(ctx, job.ID, "failed to enqueue job"); markErr != nil {
			s.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", markErr)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// GetStatus exposes job metadata to clients.
func (s *ReportService) GetStatus(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	return job, nil
}

// List returns recent jobs.
func (s *ReportService) List(ctx context.Context, limit int) ([]models.ReportJob, error) {
	reportJobs, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report jobs")
	}
	return reportJobs, nil
}

// ResolveDownload validates the token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	parts := strings.Split(relPath, "/")
	return &ReportDownload{
		File:      file,
		Filename:  parts[len(parts)-1],
		Format:    job.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed, err := s.exporter.Cleanup(s.resultTTL); err != nil {
					s.logger.Sugar().Warnw("export cleanup failed", "error", err)
				} else if len(removed) > 0 {
					s.logger.Sugar().Infow("expired exports removed", "count", len(removed))
				}
			}
		}
	}()
}

// ReportWorker bridges queue jobs to the exporter.
type ReportWorker struct {
	repo     reportJobStore
	exporter exportGenerator
	logger   *zap.Logger
}

// NewReportWorker constructs a worker.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportWorker{repo: repo, exporter: exporter, logger: logger}
}

// Handle processes one queue job. Returning an error lets the queue retry;
// the final failure is recorded when retries are exhausted by the queue's
// retry budget.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.FindByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if record == nil {
		w.logger.Sugar().Warnw("queue job references missing report", "job_id", job.ID)
		return nil
	}
	if err := w.repo.UpdateProgress(ctx, job.ID, 10); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		if markErr := w.repo.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", markErr)
		}
		return err
	}

	if err := w.repo.MarkFinished(ctx, job.ID, result.URL); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	w.logger.Sugar().Infow("report generated", "job_id", job.ID, "path", result.RelPath)
	return nil
}
