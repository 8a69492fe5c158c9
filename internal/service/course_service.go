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

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.CourseDetail, error)
	FindByCode(ctx context.Context, code string) (*models.CourseDetail, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	HasEnrollments(ctx context.Context, id string) (bool, error)
	Departments(ctx context.Context) ([]string, error)
	ListAvailableFor(ctx context.Context, studentID string) ([]models.CourseDetail, error)
	ListEnrolledFor(ctx context.Context, studentID string) ([]models.CourseDetail, error)
}

// CourseService manages the course catalog.
type CourseService struct {
	repo      courseRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns courses with live occupancy and pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	if filter.MinCredits > 0 && filter.MaxCredits > 0 && filter.MinCredits > filter.MaxCredits {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "min_credits must not exceed max_credits")
	}
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a course by id.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// GetByCode returns a course by its catalog code.
func (s *CourseService) GetByCode(ctx context.Context, code string) (*models.CourseDetail, error) {
	course, err := s.repo.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a course to the catalog.
func (s *CourseService) Create(ctx context.Context, req models.CreateCourseRequest) (*models.CourseDetail, error) {
	req = normalizeCourseRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}
	course := &models.Course{}
	applyCourseRequest(course, req)
	if err := s.repo.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.cache.Invalidate(ctx, cacheKeyCourseDepartments)
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return &models.CourseDetail{Course: *course}, nil
}

// Update replaces the mutable fields of a course. The capacity may not drop
// below the number of currently ENROLLED students.
func (s *CourseService) Update(ctx context.Context, id string, req models.UpdateCourseRequest) (*models.CourseDetail, error) {
	req = normalizeCourseRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}
	course := detail.Course
	applyCourseRequest(&course, req)
	if err := s.repo.Update(ctx, &course); err != nil {
		switch {
		case err == sql.ErrNoRows:
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		case errors.Is(err, repository.ErrCapacityReached):
			return nil, appErrors.Clone(appErrors.ErrConflict, "max enrollment is below the current enrollment")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.cache.Invalidate(ctx, cacheKeyCourseDepartments)
	return s.Get(ctx, id)
}

// Delete removes a course that has no enrollments.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	referenced, err := s.repo.HasEnrollments(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollments")
	}
	if referenced {
		return appErrors.Clone(appErrors.ErrConflict, "course has enrollments")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case err == sql.ErrNoRows:
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		case repository.IsForeignKeyViolation(err):
			return appErrors.Clone(appErrors.ErrConflict, "course has enrollments")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.cache.Invalidate(ctx, cacheKeyCourseDepartments)
	s.logger.Info("course deleted", zap.String("course_id", id))
	return nil
}

// Departments lists distinct course departments.
func (s *CourseService) Departments(ctx context.Context) ([]string, error) {
	departments, err := rememberStrings(ctx, s.cache, cacheKeyCourseDepartments, s.repo.Departments)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	return departments, nil
}

func normalizeCourseRequest(req models.CreateCourseRequest) models.CreateCourseRequest {
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Title = strings.TrimSpace(req.Title)
	req.Department = strings.TrimSpace(req.Department)
	return req
}

func applyCourseRequest(course *models.Course, req models.CreateCourseRequest) {
	course.Code = req.Code
	course.Title = req.Title
	course.Description = req.Description
	course.Department = req.Department
	course.Credits = req.Credits
	course.MaxEnrollment = req.MaxEnrollment
}
