package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-records-api/internal/dto"
	"github.com/noah-isme/uni-records-api/internal/models"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

const selfEnrollRemarks = "Self-enrolled through student portal"

type portalCourseLister interface {
	ListAvailableFor(ctx context.Context, studentID string) ([]models.CourseDetail, error)
	ListEnrolledFor(ctx context.Context, studentID string) ([]models.CourseDetail, error)
}

// PortalService serves a student's own view. The student id always comes
// from the caller, resolved from the access token by the HTTP layer.
type PortalService struct {
	students    studentReader
	courses     portalCourseLister
	enrollments *EnrollmentService
	results     *ResultService
	reports     *ReportService
	logger      *zap.Logger
}

// NewPortalService constructs the portal service.
func NewPortalService(students studentReader, courses portalCourseLister, enrollments *EnrollmentService, results *ResultService, reports *ReportService, logger *zap.Logger) *PortalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortalService{
		students:    students,
		courses:     courses,
		enrollments: enrollments,
		results:     results,
		reports:     reports,
		logger:      logger,
	}
}

// Profile returns the student record.
func (s *PortalService) Profile(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Overview bundles profile, enrolled courses, enrollments and GPA.
func (s *PortalService) Overview(ctx context.Context, studentID string) (*dto.PortalOverview, error) {
	student, err := s.Profile(ctx, studentID)
	if err != nil {
		return nil, err
	}
	enrolled, err := s.EnrolledCourses(ctx, studentID)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	gpa, err := s.reports.AverageGPA(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if enrollments == nil {
		enrollments = []models.EnrollmentDetail{}
	}
	return &dto.PortalOverview{
		Student:         *student,
		EnrolledCourses: enrolled,
		Enrollments:     enrollments,
		AverageGPA:      gpa,
	}, nil
}

// AvailableCourses lists courses the student holds no enrollment row for.
// Dropped courses are excluded because the pair cannot be admitted again.
func (s *PortalService) AvailableCourses(ctx context.Context, studentID string) ([]models.CourseDetail, error) {
	courses, err := s.courses.ListAvailableFor(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list available courses")
	}
	if courses == nil {
		courses = []models.CourseDetail{}
	}
	return courses, nil
}

// EnrolledCourses lists courses the student is currently ENROLLED in.
func (s *PortalService) EnrolledCourses(ctx context.Context, studentID string) ([]models.CourseDetail, error) {
	courses, err := s.courses.ListEnrolledFor(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolled courses")
	}
	if courses == nil {
		courses = []models.CourseDetail{}
	}
	return courses, nil
}

// Enrollments lists the student's enrollments in every status.
func (s *PortalService) Enrollments(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return s.enrollments.ListByStudent(ctx, studentID)
}

// Results lists the student's results.
func (s *PortalService) Results(ctx context.Context, studentID string) ([]models.ResultDetail, error) {
	return s.results.ByStudent(ctx, studentID)
}

// GPA returns the student's average GPA.
func (s *PortalService) GPA(ctx context.Context, studentID string) (float64, error) {
	return s.reports.AverageGPA(ctx, studentID)
}

// Transcript returns the student's transcript.
func (s *PortalService) Transcript(ctx context.Context, studentID string) (*dto.Transcript, error) {
	return s.reports.Transcript(ctx, studentID)
}

// Enroll admits the student into a course.
func (s *PortalService) Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	remarks := selfEnrollRemarks
	return s.enrollments.Admit(ctx, models.AdmitRequest{StudentID: studentID, CourseID: courseID, Remarks: &remarks})
}

// Drop withdraws the student from a course.
func (s *PortalService) Drop(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByPair(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status == models.EnrollmentStatusDropped {
		return enrollment, nil
	}
	dropped, err := s.enrollments.Withdraw(ctx, enrollment.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("student dropped course", zap.String("student_id", studentID), zap.String("course_id", courseID))
	return dropped, nil
}
