package service

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/class1/class1-admin-api/internal/models"
	"github.com/class1/class1-admin-api/internal/repository"
	appErrors "github.com/class1/class1-admin-api/pkg/errors"
	"github.com/class1/class1-admin-api/pkg/membernumber"
)

type studentRepository interface {
	List(ctx context.Context, filter repository.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByMemberNumber(ctx context.Context, memberNumber string) (*models.Student, error)
	MaxMemberNumber(ctx context.Context) (string, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
	Count(ctx context.Context) (int, error)
}

type instructorChecker interface {
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
}

// CreateStudentRequest is the payload for registering a student. The member
// number is never part of the request; it is assigned by the service.
type CreateStudentRequest struct {
	Name             string  `json:"name" validate:"required,max=100"`
	InstructorID     *string `json:"instructorId" validate:"omitempty,uuid4"`
	Email            string  `json:"email" validate:"omitempty,email"`
	Note             string  `json:"note" validate:"max=2000"`
	RegistrationDate *string `json:"registrationDate" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateStudentRequest is the payload for editing a student. Member numbers
// are immutable, so the field does not exist here.
type UpdateStudentRequest struct {
	Name             string  `json:"name" validate:"required,max=100"`
	InstructorID     *string `json:"instructorId" validate:"omitempty,uuid4"`
	Email            string  `json:"email" validate:"omitempty,email"`
	Note             string  `json:"note" validate:"max=2000"`
	RegistrationDate *string `json:"registrationDate" validate:"omitempty,datetime=2006-01-02"`
}

// StudentService orchestrates student CRUD and owns member number
// allocation. Allocation serializes through allocMu so two concurrent
// creates cannot read the same maximum; the UNIQUE constraint plus a retry
// covers multi-process deployments where the mutex cannot.
type StudentService struct {
	repo        studentRepository
	instructors instructorChecker
	validator   *validator.Validate
	logger      *zap.Logger

	allocMu sync.Mutex
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, instructors instructorChecker, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, instructors: instructors, validator: validate, logger: logger}
}

// allocationAttempts bounds retries when another process grabs the same
// member number first.
const allocationAttempts = 5

// List returns students plus pagination data.
func (s *StudentService) List(ctx context.Context, filter repository.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one student with instructor name.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

// NextMemberNumber previews the number the next registration would receive.
// The preview is advisory; the actual assignment happens inside Create.
func (s *StudentService) NextMemberNumber(ctx context.Context) (string, error) {
	max, err := s.repo.MaxMemberNumber(ctx)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read member numbers")
	}
	if max == "" {
		return membernumber.First, nil
	}
	return membernumber.Next(max), nil
}

// Create registers a student and assigns the next free member number.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.checkInstructor(ctx, req.InstructorID); err != nil {
		return nil, err
	}

	s.allocMu.Lock()
	defer s.allocMu.Unlock()

	var student *models.Student
	for attempt := 0; attempt < allocationAttempts; attempt++ {
		number, err := s.nextNumberLocked(ctx)
		if err != nil {
			return nil, err
		}
		candidate := &models.Student{
			Name:             req.Name,
			InstructorID:     req.InstructorID,
			MemberNumber:     number,
			Email:            req.Email,
			Note:             req.Note,
			RegistrationDate: req.RegistrationDate,
		}
		err = s.repo.Create(ctx, candidate)
		if err == nil {
			student = candidate
			break
		}
		if repository.IsUniqueViolation(err) {
			s.logger.Sugar().Warnw("member number taken, retrying", "member_number", number, "attempt", attempt+1)
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "could not allocate a member number")
	}

	s.logger.Sugar().Infow("student created", "student_id", student.ID, "member_number", student.MemberNumber)
	return s.Get(ctx, student.ID)
}

// Update edits a student's mutable fields. Any member number present in the
// inbound JSON is ignored by the request shape.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.checkInstructor(ctx, req.InstructorID); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if existing == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	student := existing.Student
	student.Name = req.Name
	student.InstructorID = req.InstructorID
	student.Email = req.Email
	student.Note = req.Note
	student.RegistrationDate = req.RegistrationDate

	if _, err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.Get(ctx, id)
}

// Delete removes a student and their ledger rows. The member number is not
// recycled; the allocator only ever moves forward from the maximum.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	s.logger.Sugar().Infow("student deleted", "student_id", id)
	return nil
}

func (s *StudentService) nextNumberLocked(ctx context.Context) (string, error) {
	max, err := s.repo.MaxMemberNumber(ctx)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read member numbers")
	}
	if max == "" {
		return membernumber.First, nil
	}
	return membernumber.Next(max), nil
}

func (s *StudentService) checkInstructor(ctx context.Context, instructorID *string) error {
	if instructorID == nil || *instructorID == "" {
		return nil
	}
	instructor, err := s.instructors.FindByID(ctx, *instructorID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify instructor")
	}
	if instructor == nil {
		return appErrors.Clone(appErrors.ErrValidation, "instructor does not exist")
	}
	return nil
}
