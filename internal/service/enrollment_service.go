package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/internal/repository"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
	CountEnrolled(ctx context.Context, courseID string) (int, error)
	Admit(ctx context.Context, enrollment *models.Enrollment) error
	Update(ctx context.Context, id string, status *models.EnrollmentStatus, remarks *string) (*models.Enrollment, error)
	Delete(ctx context.Context, id string) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseDetail, error)
}

// EnrollmentService is the enrollment ledger. Capacity and pair uniqueness are
// enforced atomically by the repository; the checks here only produce precise
// errors for the common case.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	courses   courseReader
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, courses courseReader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		students:  students,
		courses:   courses,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid enrollment status")
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns the joined view of one enrollment.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// FindByPair returns the enrollment of a student in a course.
func (s *EnrollmentService) FindByPair(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// ListByStudent returns every enrollment of a student, in any status.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return items, nil
}

// ListByCourse returns every enrollment of a course, in any status.
func (s *EnrollmentService) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	if _, err := s.loadCourse(ctx, courseID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return items, nil
}

// Admit creates an ENROLLED row for the pair.
func (s *EnrollmentService) Admit(ctx context.Context, req models.AdmitRequest) (*models.Enrollment, error) {
	enrollment, err := s.admit(ctx, req)
	s.metrics.RecordAdmission(admissionOutcome(err))
	if err != nil {
		s.logger.Debug("admission rejected",
			zap.String("student_id", req.StudentID),
			zap.String("course_id", req.CourseID),
			zap.Error(err),
		)
		return nil, err
	}
	s.logger.Info("student admitted",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", enrollment.StudentID),
		zap.String("course_id", enrollment.CourseID),
	)
	return enrollment, nil
}

func (s *EnrollmentService) admit(ctx context.Context, req models.AdmitRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if err := s.ensureStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}
	if _, err := s.loadCourse(ctx, req.CourseID); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByStudentAndCourse(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an enrollment for this course")
	}

	enrollment := &models.Enrollment{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		Remarks:   req.Remarks,
	}
	if err := s.repo.Admit(ctx, enrollment); err != nil {
		switch {
		case err == sql.ErrNoRows:
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an enrollment for this course")
		case errors.Is(err, repository.ErrCapacityReached):
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
		case repository.IsForeignKeyViolation(err):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student or course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to admit student")
	}
	return enrollment, nil
}

// ChangeStatus moves an enrollment to status. Any transition is allowed;
// moving into ENROLLED claims a seat and may fail with CapacityExceeded.
func (s *EnrollmentService) ChangeStatus(ctx context.Context, id string, status models.EnrollmentStatus) (*models.Enrollment, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid enrollment status")
	}
	return s.apply(ctx, id, &status, nil)
}

// Update applies a combined status and remarks change.
func (s *EnrollmentService) Update(ctx context.Context, id string, req models.UpdateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if req.Status == nil && req.Remarks == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status or remarks is required")
	}
	return s.apply(ctx, id, req.Status, req.Remarks)
}

// SetRemarks replaces the remarks of an enrollment.
func (s *EnrollmentService) SetRemarks(ctx context.Context, id string, remarks string) (*models.Enrollment, error) {
	return s.Update(ctx, id, models.UpdateEnrollmentRequest{Remarks: &remarks})
}

// Withdraw drops an enrollment. The row stays, so the pair cannot be admitted again.
func (s *EnrollmentService) Withdraw(ctx context.Context, id string) (*models.Enrollment, error) {
	return s.ChangeStatus(ctx, id, models.EnrollmentStatusDropped)
}

func (s *EnrollmentService) apply(ctx context.Context, id string, status *models.EnrollmentStatus, remarks *string) (*models.Enrollment, error) {
	updated, err := s.repo.Update(ctx, id, status, remarks)
	if err != nil {
		switch {
		case err == sql.ErrNoRows:
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		case errors.Is(err, repository.ErrCapacityReached):
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}
	fields := []zap.Field{zap.String("enrollment_id", id)}
	if status != nil {
		fields = append(fields, zap.String("status", string(*status)))
	}
	s.logger.Info("enrollment updated", fields...)
	return updated, nil
}

// CountEnrolled returns the number of ENROLLED rows for a course.
func (s *EnrollmentService) CountEnrolled(ctx context.Context, courseID string) (int, error) {
	if _, err := s.loadCourse(ctx, courseID); err != nil {
		return 0, err
	}
	count, err := s.repo.CountEnrolled(ctx, courseID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	return count, nil
}

// Remove deletes an enrollment and its result without business checks.
func (s *EnrollmentService) Remove(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	s.logger.Info("enrollment removed", zap.String("enrollment_id", id))
	return nil
}

func (s *EnrollmentService) ensureStudent(ctx context.Context, id string) error {
	if _, err := s.students.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return nil
}

func (s *EnrollmentService) loadCourse(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func admissionOutcome(err error) string {
	switch {
	case err == nil:
		return AdmissionAdmitted
	case appErrors.Is(err, appErrors.ErrCapacityExceeded):
		return AdmissionCapacity
	case appErrors.Is(err, appErrors.ErrConflict):
		return AdmissionConflict
	case appErrors.Is(err, appErrors.ErrNotFound):
		return AdmissionNotFound
	}
	return AdmissionFailed
}
