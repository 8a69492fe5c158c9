package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-records-api/internal/models"
)

// ReportRepository computes aggregates over results. Every aggregate is
// recomputed from the current rows; none is cached or materialized.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// AverageGPAByStudent averages gpa_points across the student's results, 0 when none.
func (r *ReportRepository) AverageGPAByStudent(ctx context.Context, studentID string) (float64, error) {
	const query = `SELECT COALESCE(AVG(r.gpa_points), 0) FROM results r
        JOIN enrollments e ON e.id = r.enrollment_id
        WHERE e.student_id = $1`
	var avg float64
	if err := r.db.GetContext(ctx, &avg, query, studentID); err != nil {
		return 0, fmt.Errorf("average gpa: %w", err)
	}
	return avg, nil
}

// AverageMarksByCourse averages marks across the course's results, 0 when none.
func (r *ReportRepository) AverageMarksByCourse(ctx context.Context, courseID string) (float64, error) {
	const query = `SELECT COALESCE(AVG(r.marks), 0) FROM results r
        JOIN enrollments e ON e.id = r.enrollment_id
        WHERE e.course_id = $1`
	var avg float64
	if err := r.db.GetContext(ctx, &avg, query, courseID); err != nil {
		return 0, fmt.Errorf("average marks: %w", err)
	}
	return avg, nil
}

// GradeDistribution counts graded results of a course per letter grade.
func (r *ReportRepository) GradeDistribution(ctx context.Context, courseID string) ([]models.GradeCount, error) {
	const query = `SELECT r.grade, COUNT(*) AS count FROM results r
        JOIN enrollments e ON e.id = r.enrollment_id
        WHERE e.course_id = $1 AND r.grade IS NOT NULL
        GROUP BY r.grade`
	var counts []models.GradeCount
	if err := r.db.SelectContext(ctx, &counts, query, courseID); err != nil {
		return nil, fmt.Errorf("grade distribution: %w", err)
	}
	return counts, nil
}

// EarnedCredits sums credits of COMPLETED enrollments holding a passing grade.
func (r *ReportRepository) EarnedCredits(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COALESCE(SUM(c.credits), 0) FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        JOIN results r ON r.enrollment_id = e.id
        WHERE e.student_id = $1 AND e.status = $2 AND r.grade IS NOT NULL AND r.grade <> 'F'`
	var credits int
	if err := r.db.GetContext(ctx, &credits, query, studentID, models.EnrollmentStatusCompleted); err != nil {
		return 0, fmt.Errorf("earned credits: %w", err)
	}
	return credits, nil
}
