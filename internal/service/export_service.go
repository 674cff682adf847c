package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/class1/class1-admin-api/internal/models"
	"github.com/class1/class1-admin-api/pkg/export"
	"github.com/class1/class1-admin-api/pkg/storage"
)

type surveyExportSource interface {
	ListAll(ctx context.Context, monthKey string) ([]models.Survey, error)
}

// ExportResult describes a rendered and stored export file.
type ExportResult struct {
	RelPath   string
	URL       string
	ExpiresAt time.Time
}

// ExportService renders survey archives to CSV or PDF, stores the file,
// and issues a signed download URL.
type ExportService struct {
	surveys      surveyExportSource
	csvExporter  *export.CSVExporter
	pdfExporter  *export.PDFExporter
	store        *storage.LocalStorage
	signer       *storage.SignedURLSigner
	downloadPath string
	logger       *zap.Logger
}

// NewExportService constructs an ExportService. downloadPath is the public
// route prefix the token is appended to.
func NewExportService(surveys surveyExportSource, store *storage.LocalStorage, signer *storage.SignedURLSigner, downloadPath string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if downloadPath == "" {
		downloadPath = "/api/v1/reports/download"
	}
	return &ExportService{
		surveys:      surveys,
		csvExporter:  export.NewCSVExporter(),
		pdfExporter:  export.NewPDFExporter(),
		store:        store,
		signer:       signer,
		downloadPath: downloadPath,
		logger:       logger,
	}
}

var surveyExportHeaders = []string{
	"Member Number", "Student Name", "Satisfaction", "NPS",
	"Instructor Feedback", "Lesson Feedback", "Learning Goals", "Other Feedback", "Submitted At",
}

// Generate renders the export for a job and stores it.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	surveys, err := s.surveys.ListAll(ctx, job.MonthKey)
	if err != nil {
		return nil, fmt.Errorf("load surveys: %w", err)
	}

	dataset := export.Dataset{Headers: surveyExportHeaders, Rows: make([]map[string]string, 0, len(surveys))}
	for _, survey := range surveys {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Member Number":       survey.MemberNumber,
			"Student Name":        survey.StudentName,
			"Satisfaction":        fmt.Sprintf("%d", survey.Satisfaction),
			"NPS":                 fmt.Sprintf("%d", survey.NPSScore),
			"Instructor Feedback": survey.InstructorFeedback,
			"Lesson Feedback":     survey.LessonFeedback,
			"Learning Goals":      survey.LearningGoals,
			"Other Feedback":      survey.OtherFeedback,
			"Submitted At":        survey.SubmittedAt.Format(time.RFC3339),
		})
	}

	scope := job.MonthKey
	if scope == "" {
		scope = "all"
	}
	title := fmt.Sprintf("Survey archive %s", scope)

	var payload []byte
	var ext string
	switch job.Format {
	case models.ReportFormatPDF:
		payload, err = s.pdfExporter.Render(dataset, title)
		ext = "pdf"
	default:
		payload, err = s.csvExporter.Render(dataset)
		ext = "csv"
	}
	if err != nil {
		return nil, fmt.Errorf("render export: %w", err)
	}

	relPath := fmt.Sprintf("surveys/%s/%s.%s", strings.ReplaceAll(scope, "-", ""), job.ID, ext)
	if _, err := s.store.Save(relPath, payload); err != nil {
		return nil, fmt.Errorf("store export: %w", err)
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, fmt.Errorf("sign download: %w", err)
	}
	return &ExportResult{
		RelPath:   relPath,
		URL:       s.downloadPath + "/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// ParseToken validates a download token.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle on a stored export file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.store.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.store.Delete(relPath)
}

// Cleanup removes export files older than ttl.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	return s.store.CleanupOlderThan(ttl)
}
