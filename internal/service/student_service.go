package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/internal/repository"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByStudentNumber(ctx context.Context, number string) (*models.Student, error)
	ExistsByStudentNumber(ctx context.Context, number, excludeID string) (bool, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
	HasEnrollments(ctx context.Context, id string) (bool, error)
	Departments(ctx context.Context) ([]string, error)
	EnrollmentYears(ctx context.Context) ([]int, error)
}

// StudentService handles student registry use-cases.
type StudentService struct {
	repo      studentRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// GetByStudentNumber returns a student by external student number.
func (s *StudentService) GetByStudentNumber(ctx context.Context, number string) (*models.Student, error) {
	student, err := s.repo.FindByStudentNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error) {
	req = normalizeStudentRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.ensureUnique(ctx, req, ""); err != nil {
		return nil, err
	}
	student := &models.Student{}
	applyStudentRequest(student, req)
	if err := s.repo.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student number or email already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.cache.Invalidate(ctx, cacheKeyStudentDepartments, cacheKeyEnrollmentYears)
	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("student_number", student.StudentNumber))
	return student, nil
}

// Update replaces the mutable fields of an existing student.
func (s *StudentService) Update(ctx context.Context, id string, req models.UpdateStudentRequest) (*models.Student, error) {
	req = normalizeStudentRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, req, id); err != nil {
		return nil, err
	}
	applyStudentRequest(student, req)
	if err := s.repo.Update(ctx, student); err != nil {
		switch {
		case err == sql.ErrNoRows:
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "student number or email already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.cache.Invalidate(ctx, cacheKeyStudentDepartments, cacheKeyEnrollmentYears)
	return student, nil
}

// Delete removes a student that no enrollment references.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	referenced, err := s.repo.HasEnrollments(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollments")
	}
	if referenced {
		return appErrors.Clone(appErrors.ErrConflict, "student has enrollments")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case err == sql.ErrNoRows:
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		case repository.IsForeignKeyViolation(err):
			return appErrors.Clone(appErrors.ErrConflict, "student has enrollments")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.cache.Invalidate(ctx, cacheKeyStudentDepartments, cacheKeyEnrollmentYears)
	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}

// Departments lists distinct student departments.
func (s *StudentService) Departments(ctx context.Context) ([]string, error) {
	departments, err := rememberStrings(ctx, s.cache, cacheKeyStudentDepartments, s.repo.Departments)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	return departments, nil
}

// EnrollmentYears lists distinct enrollment years.
func (s *StudentService) EnrollmentYears(ctx context.Context) ([]int, error) {
	var years []int
	if s.cache.Get(ctx, cacheKeyEnrollmentYears, &years) {
		return years, nil
	}
	years, err := s.repo.EnrollmentYears(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollment years")
	}
	if years == nil {
		years = []int{}
	}
	s.cache.Set(ctx, cacheKeyEnrollmentYears, years, 0)
	return years, nil
}

func (s *StudentService) ensureUnique(ctx context.Context, req models.CreateStudentRequest, excludeID string) error {
	exists, err := s.repo.ExistsByStudentNumber(ctx, req.StudentNumber, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student number")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "student number already used")
	}
	exists, err = s.repo.ExistsByEmail(ctx, req.Email, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	return nil
}

func normalizeStudentRequest(req models.CreateStudentRequest) models.CreateStudentRequest {
	req.StudentNumber = strings.TrimSpace(req.StudentNumber)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Department = strings.TrimSpace(req.Department)
	return req
}

func applyStudentRequest(student *models.Student, req models.CreateStudentRequest) {
	student.StudentNumber = req.StudentNumber
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.Email = req.Email
	student.Phone = req.Phone
	student.DateOfBirth = req.DateOfBirth
	student.Department = req.Department
	student.EnrollmentYear = req.EnrollmentYear
}
