package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/class1/class1-admin-api/internal/models"
	appErrors "github.com/class1/class1-admin-api/pkg/errors"
)

type instructorRepository interface {
	List(ctx context.Context) ([]models.Instructor, error)
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
	Create(ctx context.Context, instructor *models.Instructor) error
	Update(ctx context.Context, id, name string) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
	Count(ctx context.Context) (int, error)
}

// InstructorRequest is the payload for creating or renaming an instructor.
type InstructorRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// InstructorService orchestrates instructor operations.
type InstructorService struct {
	repo      instructorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInstructorService constructs an InstructorService.
func NewInstructorService(repo instructorRepository, validate *validator.Validate, logger *zap.Logger) *InstructorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorService{repo: repo, validator: validate, logger: logger}
}

// List returns all instructors.
func (s *InstructorService) List(ctx context.Context) ([]models.Instructor, error) {
	instructors, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
	return instructors, nil
}

// Get returns one instructor.
func (s *InstructorService) Get(ctx context.Context, id string) (*models.Instructor, error) {
	instructor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if instructor == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
	}
	return instructor, nil
}

// Create registers a new instructor.
func (s *InstructorService) Create(ctx context.Context, req InstructorRequest) (*models.Instructor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name is required")
	}
	instructor := &models.Instructor{Name: req.Name}
	if err := s.repo.Create(ctx, instructor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create instructor")
	}
	s.logger.Sugar().Infow("instructor created", "instructor_id", instructor.ID)
	return instructor, nil
}

// Update renames an instructor.
func (s *InstructorService) Update(ctx context.Context, id string, req InstructorRequest) (*models.Instructor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name is required")
	}
	affected, err := s.repo.Update(ctx, id, req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update instructor")
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
	}
	return s.Get(ctx, id)
}

// Delete removes an instructor. Assigned students are kept and become
// unassigned.
func (s *InstructorService) Delete(ctx context.Context, id string) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete instructor")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
	}
	s.logger.Sugar().Infow("instructor deleted", "instructor_id", id)
	return nil
}
