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

const courseDetailSelect = `SELECT c.id, c.code, c.title, c.description, c.department, c.credits, c.max_enrollment, c.created_at, c.updated_at,
        (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id AND e.status = 'ENROLLED') AS current_enrollment
        FROM courses c`

// CourseRepository manages the course catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses with their live enrollment counts.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("c.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.MinCredits > 0 {
		conditions = append(conditions, fmt.Sprintf("c.credits >= $%d", len(args)+1))
		args = append(args, filter.MinCredits)
	}
	if filter.MaxCredits > 0 {
		conditions = append(conditions, fmt.Sprintf("c.credits <= $%d", len(args)+1))
		args = append(args, filter.MaxCredits)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.code) LIKE $%d OR LOWER(c.title) LIKE $%d)", idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"code":       "c.code",
		"title":      "c.title",
		"credits":    "c.credits",
		"created_at": "c.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "c.code"
	}
	order := "ASC"
	if filter.SortOrder != "" {
		order = sortOrder(filter.SortOrder)
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY %s %s LIMIT %d OFFSET %d", courseDetailSelect, clause, column, order, limit, offset)
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses c"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns a course with its live enrollment count.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	var course models.CourseDetail
	if err := r.db.GetContext(ctx, &course, courseDetailSelect+" WHERE c.id = $1", id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindByCode returns a course by its catalog code.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.CourseDetail, error) {
	var course models.CourseDetail
	if err := r.db.GetContext(ctx, &course, courseDetailSelect+" WHERE c.code = $1", code); err != nil {
		return nil, err
	}
	return &course, nil
}

// ExistsByCode checks if a code is taken, optionally excluding an ID.
func (r *CourseRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM courses WHERE code = $1"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, code, title, description, department, credits, max_enrollment, created_at, updated_at)
        VALUES (:id, :code, :title, :description, :department, :credits, :max_enrollment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", translate(err))
	}
	return nil
}

// Update rewrites a course inside a transaction that holds the course row
// lock, so a capacity change cannot race an admission. Lowering the capacity
// below the current ENROLLED count fails with ErrCapacityReached.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin course update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT id FROM courses WHERE id = $1 FOR UPDATE`, course.ID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock course: %w", err)
	}

	if course.MaxEnrollment != nil {
		var enrolled int
		if err = tx.GetContext(ctx, &enrolled, countEnrolledQuery, course.ID, models.EnrollmentStatusEnrolled); err != nil {
			return fmt.Errorf("count enrolled: %w", err)
		}
		if enrolled > *course.MaxEnrollment {
			err = ErrCapacityReached
			return err
		}
	}

	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = $2, title = $3, description = $4, department = $5, credits = $6, max_enrollment = $7, updated_at = $8 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, query, course.ID, course.Code, course.Title, course.Description, course.Department, course.Credits, course.MaxEnrollment, course.UpdatedAt); err != nil {
		err = translate(err)
		return fmt.Errorf("update course: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit course update: %w", err)
	}
	return nil
}

// Delete removes a course.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasEnrollments reports whether any enrollment references the course.
func (r *CourseRepository) HasEnrollments(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM enrollments WHERE course_id = $1)`, id); err != nil {
		return false, fmt.Errorf("check course enrollments: %w", err)
	}
	return exists, nil
}

// Departments lists distinct course departments in alphabetical order.
func (r *CourseRepository) Departments(ctx context.Context) ([]string, error) {
	var departments []string
	if err := r.db.SelectContext(ctx, &departments, `SELECT DISTINCT department FROM courses ORDER BY department`); err != nil {
		return nil, fmt.Errorf("list course departments: %w", err)
	}
	return departments, nil
}

// ListAvailableFor returns courses the student has never enrolled in. A
// dropped or completed pair cannot be admitted again, so those are excluded too.
func (r *CourseRepository) ListAvailableFor(ctx context.Context, studentID string) ([]models.CourseDetail, error) {
	query := courseDetailSelect + ` WHERE NOT EXISTS (
        SELECT 1 FROM enrollments x WHERE x.course_id = c.id AND x.student_id = $1)
        ORDER BY c.code ASC`
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list available courses: %w", err)
	}
	return courses, nil
}

// ListEnrolledFor returns courses the student currently holds an ENROLLED row in.
func (r *CourseRepository) ListEnrolledFor(ctx context.Context, studentID string) ([]models.CourseDetail, error) {
	query := courseDetailSelect + ` WHERE EXISTS (
        SELECT 1 FROM enrollments x WHERE x.course_id = c.id AND x.student_id = $1 AND x.status = $2)
        ORDER BY c.code ASC`
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, studentID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list enrolled courses: %w", err)
	}
	return courses, nil
}
