package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-records-api/internal/models"
)

const (
	enrollmentColumns  = `id, student_id, course_id, status, registered_at, remarks, updated_at`
	countEnrolledQuery = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = $2`
	lockCourseQuery    = `SELECT max_enrollment FROM courses WHERE id = $1 FOR UPDATE`
	enrollmentDetail   = `SELECT e.id, e.student_id, e.course_id, e.status, e.registered_at, e.remarks, e.updated_at,
        s.student_number, (s.first_name || ' ' || s.last_name) AS student_name,
        c.code AS course_code, c.title AS course_title, c.credits
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id`
)

// EnrollmentRepository is the persistence side of the enrollment ledger.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"registered_at":  "e.registered_at",
		"student_number": "s.student_number",
		"course_code":    "c.code",
		"status":         "e.status",
	}
	orderBy, ok := allowedSorts[filter.SortBy]
	if !ok {
		orderBy = "e.registered_at"
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY %s %s LIMIT %d OFFSET %d", enrollmentDetail, clause, orderBy, sortOrder(filter.SortOrder), limit, offset)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments e"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment joined with student and course info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, enrollmentDetail+" WHERE e.id = $1", id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByStudentAndCourse returns the single enrollment for the pair, if any.
func (r *EnrollmentRepository) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 AND course_id = $2`
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsByStudentAndCourse reports whether the pair holds a row in any status.
func (r *EnrollmentRepository) ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		return false, fmt.Errorf("check enrollment pair: %w", err)
	}
	return exists, nil
}

// ListByStudent returns every enrollment of a student, newest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, enrollmentDetail+" WHERE e.student_id = $1 ORDER BY e.registered_at DESC", studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ListByCourse returns every enrollment of a course ordered by student number.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, enrollmentDetail+" WHERE e.course_id = $1 ORDER BY s.student_number ASC", courseID); err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}
	return enrollments, nil
}

// CountEnrolled counts ENROLLED rows for a course.
func (r *EnrollmentRepository) CountEnrolled(ctx context.Context, courseID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, countEnrolledQuery, courseID, models.EnrollmentStatusEnrolled); err != nil {
		return 0, fmt.Errorf("count enrolled: %w", err)
	}
	return count, nil
}

// lockSeat takes the course row lock and verifies a seat is free. It returns
// sql.ErrNoRows when the course does not exist.
func lockSeat(ctx context.Context, tx *sqlx.Tx, courseID string) error {
	var capacity sql.NullInt64
	if err := tx.GetContext(ctx, &capacity, lockCourseQuery, courseID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock course: %w", err)
	}
	if !capacity.Valid {
		return nil
	}
	var enrolled int64
	if err := tx.GetContext(ctx, &enrolled, countEnrolledQuery, courseID, models.EnrollmentStatusEnrolled); err != nil {
		return fmt.Errorf("count enrolled: %w", err)
	}
	if enrolled >= capacity.Int64 {
		return ErrCapacityReached
	}
	return nil
}

// Admit inserts a new ENROLLED row. The course row lock serializes admissions
// per course so the count and the insert form one unit; the unique index on
// (student_id, course_id) rejects racing duplicates with ErrDuplicate.
func (r *EnrollmentRepository) Admit(ctx context.Context, enrollment *models.Enrollment) (err error) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	enrollment.Status = models.EnrollmentStatusEnrolled
	enrollment.RegisteredAt = now
	enrollment.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin admission: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = lockSeat(ctx, tx, enrollment.CourseID); err != nil {
		return err
	}

	const insert = `INSERT INTO enrollments (id, student_id, course_id, status, registered_at, remarks, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err = tx.ExecContext(ctx, insert, enrollment.ID, enrollment.StudentID, enrollment.CourseID, enrollment.Status, enrollment.RegisteredAt, enrollment.Remarks, enrollment.UpdatedAt); err != nil {
		if err = translate(err); err == ErrDuplicate {
			return err
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit admission: %w", err)
	}
	return nil
}

// Update applies a status and/or remarks change. Moving a row into ENROLLED
// claims a seat and goes through the same course lock as Admit.
func (r *EnrollmentRepository) Update(ctx context.Context, id string, status *models.EnrollmentStatus, remarks *string) (updated *models.Enrollment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.Enrollment
	if err = tx.GetContext(ctx, &current, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock enrollment: %w", err)
	}

	if status != nil {
		if *status == models.EnrollmentStatusEnrolled && current.Status != models.EnrollmentStatusEnrolled {
			if err = lockSeat(ctx, tx, current.CourseID); err != nil {
				return nil, err
			}
		}
		current.Status = *status
	}
	if remarks != nil {
		current.Remarks = remarks
	}
	current.UpdatedAt = time.Now().UTC()

	const update = `UPDATE enrollments SET status = $2, remarks = $3, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, update, current.ID, current.Status, current.Remarks, current.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enrollment update: %w", err)
	}
	return &current, nil
}

// Delete removes an enrollment; its result goes with it through ON DELETE CASCADE.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
