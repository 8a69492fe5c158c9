package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-records-api/internal/models"
)

const (
	resultColumns = `id, enrollment_id, marks, grade, gpa_points, feedback, result_date, created_at, updated_at`
	resultDetail  = `SELECT r.id, r.enrollment_id, r.marks, r.grade, r.gpa_points, r.feedback, r.result_date, r.created_at, r.updated_at,
        e.student_id, s.student_number, (s.first_name || ' ' || s.last_name) AS student_name,
        e.course_id, c.code AS course_code, c.title AS course_title, c.credits, e.status AS enrollment_status
        FROM results r
        JOIN enrollments e ON e.id = r.enrollment_id
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id`
)

// ResultRepository persists graded outcomes, one per enrollment.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs a ResultRepository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// FindByID returns a bare result row.
func (r *ResultRepository) FindByID(ctx context.Context, id string) (*models.Result, error) {
	var result models.Result
	if err := r.db.GetContext(ctx, &result, `SELECT `+resultColumns+` FROM results WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// FindDetailByID returns the joined view of a result.
func (r *ResultRepository) FindDetailByID(ctx context.Context, id string) (*models.ResultDetail, error) {
	var detail models.ResultDetail
	if err := r.db.GetContext(ctx, &detail, resultDetail+" WHERE r.id = $1", id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByEnrollmentID returns the joined view of an enrollment's result.
func (r *ResultRepository) FindByEnrollmentID(ctx context.Context, enrollmentID string) (*models.ResultDetail, error) {
	var detail models.ResultDetail
	if err := r.db.GetContext(ctx, &detail, resultDetail+" WHERE r.enrollment_id = $1", enrollmentID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByEnrollmentID reports whether the enrollment already has a result.
func (r *ResultRepository) ExistsByEnrollmentID(ctx context.Context, enrollmentID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM results WHERE enrollment_id = $1)`, enrollmentID); err != nil {
		return false, fmt.Errorf("check result: %w", err)
	}
	return exists, nil
}

// ListByStudent returns every result of a student ordered by course code.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ResultDetail, error) {
	var results []models.ResultDetail
	if err := r.db.SelectContext(ctx, &results, resultDetail+" WHERE e.student_id = $1 ORDER BY c.code ASC", studentID); err != nil {
		return nil, fmt.Errorf("list student results: %w", err)
	}
	return results, nil
}

// ListByCourse returns every result of a course ordered by student number.
func (r *ResultRepository) ListByCourse(ctx context.Context, courseID string) ([]models.ResultDetail, error) {
	var results []models.ResultDetail
	if err := r.db.SelectContext(ctx, &results, resultDetail+" WHERE e.course_id = $1 ORDER BY s.student_number ASC", courseID); err != nil {
		return nil, fmt.Errorf("list course results: %w", err)
	}
	return results, nil
}

// ListInRange returns results whose marks fall in [min, max], highest first.
func (r *ResultRepository) ListInRange(ctx context.Context, min, max float64) ([]models.ResultDetail, error) {
	var results []models.ResultDetail
	query := resultDetail + " WHERE r.marks BETWEEN $1 AND $2 ORDER BY r.marks DESC, s.student_number ASC"
	if err := r.db.SelectContext(ctx, &results, query, min, max); err != nil {
		return nil, fmt.Errorf("list results in range: %w", err)
	}
	return results, nil
}

// Create inserts a result. A second result for the same enrollment yields
// ErrDuplicate; a vanished enrollment yields sql.ErrNoRows.
func (r *ResultRepository) Create(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if result.ResultDate.IsZero() {
		result.ResultDate = now
	}
	result.CreatedAt = now
	result.UpdatedAt = now
	const query = `INSERT INTO results (id, enrollment_id, marks, grade, gpa_points, feedback, result_date, created_at, updated_at)
        VALUES (:id, :enrollment_id, :marks, :grade, :gpa_points, :feedback, :result_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		if IsForeignKeyViolation(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("create result: %w", translate(err))
	}
	return nil
}

// Update writes marks, derived fields and feedback back to the row.
func (r *ResultRepository) Update(ctx context.Context, result *models.Result) error {
	result.UpdatedAt = time.Now().UTC()
	const query = `UPDATE results SET marks = :marks, grade = :grade, gpa_points = :gpa_points, feedback = :feedback,
        result_date = :result_date, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, result)
	if err != nil {
		return fmt.Errorf("update result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a result.
func (r *ResultRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM results WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
