package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-records-api/internal/dto"
	"github.com/noah-isme/uni-records-api/internal/grading"
	"github.com/noah-isme/uni-records-api/internal/models"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

type reportRepository interface {
	AverageGPAByStudent(ctx context.Context, studentID string) (float64, error)
	AverageMarksByCourse(ctx context.Context, courseID string) (float64, error)
	GradeDistribution(ctx context.Context, courseID string) ([]models.GradeCount, error)
	EarnedCredits(ctx context.Context, studentID string) (int, error)
}

type resultLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.ResultDetail, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.ResultDetail, error)
	ListInRange(ctx context.Context, min, max float64) ([]models.ResultDetail, error)
}

type courseEnrollmentLister interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

// ReportService computes aggregates over derived results. Every call reads
// current state; nothing is cached.
type ReportService struct {
	reports     reportRepository
	results     resultLister
	enrollments courseEnrollmentLister
	students    studentReader
	courses     courseReader
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewReportService constructs the aggregate reporter.
func NewReportService(reports reportRepository, results resultLister, enrollments courseEnrollmentLister, students studentReader, courses courseReader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		reports:     reports,
		results:     results,
		enrollments: enrollments,
		students:    students,
		courses:     courses,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// AverageGPA returns the mean GPA points of a student's results, 0 when none.
func (s *ReportService) AverageGPA(ctx context.Context, studentID string) (float64, error) {
	start := time.Now()
	avg, err := s.reports.AverageGPAByStudent(ctx, studentID)
	s.metrics.ObserveDBQuery("report_average_gpa", time.Since(start))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute average gpa")
	}
	return avg, nil
}

// AverageMarks returns the mean marks of a course's results, 0 when none.
func (s *ReportService) AverageMarks(ctx context.Context, courseID string) (float64, error) {
	start := time.Now()
	avg, err := s.reports.AverageMarksByCourse(ctx, courseID)
	s.metrics.ObserveDBQuery("report_average_marks", time.Since(start))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute average marks")
	}
	return avg, nil
}

// ResultsInRange returns results with marks in [min, max], highest marks first.
func (s *ReportService) ResultsInRange(ctx context.Context, rng models.MarksRange) ([]models.ResultDetail, error) {
	if !grading.Valid(rng.Min) || !grading.Valid(rng.Max) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "marks range must lie within 0 and 100")
	}
	if err := s.validator.Struct(rng); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "min must not exceed max")
	}
	start := time.Now()
	items, err := s.results.ListInRange(ctx, rng.Min, rng.Max)
	s.metrics.ObserveDBQuery("report_results_in_range", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	return items, nil
}

// Transcript assembles a student's results with average GPA and earned credits.
func (s *ReportService) Transcript(ctx context.Context, studentID string) (*dto.Transcript, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	results, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	avg, err := s.AverageGPA(ctx, studentID)
	if err != nil {
		return nil, err
	}
	credits, err := s.reports.EarnedCredits(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute earned credits")
	}
	if results == nil {
		results = []models.ResultDetail{}
	}
	return &dto.Transcript{
		Student:       *student,
		Results:       results,
		AverageGPA:    avg,
		EarnedCredits: credits,
		GeneratedAt:   s.now().UTC(),
	}, nil
}

// CourseSummary reports occupancy, average marks and grade distribution.
func (s *ReportService) CourseSummary(ctx context.Context, courseID string) (*dto.CourseSummary, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	avg, err := s.AverageMarks(ctx, courseID)
	if err != nil {
		return nil, err
	}
	counts, err := s.reports.GradeDistribution(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute grade distribution")
	}
	distribution, graded, points := orderDistribution(counts)
	averageGPA := 0.0
	if graded > 0 {
		averageGPA = points / float64(graded)
	}
	return &dto.CourseSummary{
		Course:            course.Course,
		CurrentEnrollment: course.CurrentEnrollment,
		RemainingSeats:    course.RemainingSeats(),
		GradedResults:     graded,
		AverageMarks:      avg,
		AverageGPA:        averageGPA,
		GradeDistribution: distribution,
		GeneratedAt:       s.now().UTC(),
	}, nil
}

// CourseRoster lists every enrollment of a course with its result, if any.
func (s *ReportService) CourseRoster(ctx context.Context, courseID string) (*dto.CourseRoster, error) {
	summary, err := s.CourseSummary(ctx, courseID)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	results, err := s.results.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	byEnrollment := make(map[string]models.ResultDetail, len(results))
	for _, r := range results {
		byEnrollment[r.EnrollmentID] = r
	}
	entries := make([]dto.RosterEntry, 0, len(enrollments))
	for _, e := range enrollments {
		entry := dto.RosterEntry{
			EnrollmentID:  e.ID,
			StudentID:     e.StudentID,
			StudentNumber: e.StudentNumber,
			StudentName:   e.StudentName,
			Status:        e.Status,
		}
		if r, ok := byEnrollment[e.ID]; ok {
			entry.Marks, entry.Grade, entry.GPAPoints = r.Marks, r.Grade, r.GPAPoints
		}
		entries = append(entries, entry)
	}
	return &dto.CourseRoster{Summary: *summary, Entries: entries}, nil
}

// orderDistribution lists every letter from A+ down to F, zero-filled, with
// the number of graded results and their summed grade points.
func orderDistribution(counts []models.GradeCount) ([]models.GradeCount, int, float64) {
	byGrade := make(map[string]int, len(counts))
	for _, c := range counts {
		byGrade[c.Grade] += c.Count
	}
	letters := grading.Letters()
	ordered := make([]models.GradeCount, 0, len(letters))
	total := 0
	points := 0.0
	for _, letter := range letters {
		n := byGrade[string(letter)]
		total += n
		if p, ok := grading.PointsFor(letter); ok {
			points += p * float64(n)
		}
		ordered = append(ordered, models.GradeCount{Grade: string(letter), Count: n})
	}
	return ordered, total, points
}
