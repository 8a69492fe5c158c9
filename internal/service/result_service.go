package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-records-api/internal/grading"
	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/internal/repository"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

type resultRepository interface {
	FindByID(ctx context.Context, id string) (*models.Result, error)
	FindDetailByID(ctx context.Context, id string) (*models.ResultDetail, error)
	FindByEnrollmentID(ctx context.Context, enrollmentID string) (*models.ResultDetail, error)
	ExistsByEnrollmentID(ctx context.Context, enrollmentID string) (bool, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.ResultDetail, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.ResultDetail, error)
	ListInRange(ctx context.Context, min, max float64) ([]models.ResultDetail, error)
	Create(ctx context.Context, result *models.Result) error
	Update(ctx context.Context, result *models.Result) error
	Delete(ctx context.Context, id string) error
}

type enrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

// ResultService is the result ledger. Grade and GPA points are only ever
// produced by Result.SetMarks inside the write that changes marks.
type ResultService struct {
	repo        resultRepository
	enrollments enrollmentReader
	students    studentReader
	courses     courseReader
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewResultService constructs ResultService.
func NewResultService(repo resultRepository, enrollments enrollmentReader, students studentReader, courses courseReader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{
		repo:        repo,
		enrollments: enrollments,
		students:    students,
		courses:     courses,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Record grades an enrollment that has no result yet.
func (s *ResultService) Record(ctx context.Context, req models.RecordResultRequest) (*models.Result, error) {
	if err := validateMarks(req.Marks); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}
	if _, err := s.enrollments.FindByID(ctx, req.EnrollmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	exists, err := s.repo.ExistsByEnrollmentID(ctx, req.EnrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing result")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "result already recorded for this enrollment")
	}

	result := &models.Result{EnrollmentID: req.EnrollmentID, Feedback: req.Feedback}
	result.SetMarks(req.Marks)
	if err := s.repo.Create(ctx, result); err != nil {
		switch {
		case err == sql.ErrNoRows:
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "result already recorded for this enrollment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record result")
	}
	s.metrics.RecordResult(result.Grade)
	s.logger.Info("result recorded", zap.String("result_id", result.ID), zap.String("enrollment_id", result.EnrollmentID))
	return result, nil
}

// Amend replaces marks and feedback and re-derives grade and GPA points.
func (s *ResultService) Amend(ctx context.Context, id string, req models.AmendResultRequest) (*models.Result, error) {
	if err := validateMarks(req.Marks); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}
	result, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	result.SetMarks(req.Marks)
	result.Feedback = req.Feedback
	if err := s.repo.Update(ctx, result); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to amend result")
	}
	s.metrics.RecordResult(result.Grade)
	s.logger.Info("result amended", zap.String("result_id", result.ID))
	return result, nil
}

// Remove deletes a result.
func (s *ResultService) Remove(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete result")
	}
	return nil
}

// Get returns the joined view of a result.
func (s *ResultService) Get(ctx context.Context, id string) (*models.ResultDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	return detail, nil
}

// ByEnrollment returns the result of an enrollment.
func (s *ResultService) ByEnrollment(ctx context.Context, enrollmentID string) (*models.ResultDetail, error) {
	detail, err := s.repo.FindByEnrollmentID(ctx, enrollmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	return detail, nil
}

// ByStudent returns every result of a student.
func (s *ResultService) ByStudent(ctx context.Context, studentID string) ([]models.ResultDetail, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	items, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	return items, nil
}

// ByCourse returns every result of a course.
func (s *ResultService) ByCourse(ctx context.Context, courseID string) ([]models.ResultDetail, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	items, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	return items, nil
}

// validateMarks rejects marks outside [0,100] before any derivation happens.
func validateMarks(marks *float64) error {
	if marks != nil && !grading.Valid(*marks) {
		return appErrors.Clone(appErrors.ErrValidation, "marks must be between 0 and 100")
	}
	return nil
}
