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

const studentColumns = `id, student_number, first_name, last_name, email, phone, date_of_birth, department, enrollment_year, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.EnrollmentYear > 0 {
		conditions = append(conditions, fmt.Sprintf("enrollment_year = $%d", len(args)+1))
		args = append(args, filter.EnrollmentYear)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name || ' ' || last_name) LIKE $%d OR LOWER(student_number) LIKE $%d OR LOWER(email) LIKE $%d)", idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"student_number":  "student_number",
		"last_name":       "last_name",
		"enrollment_year": "enrollment_year",
		"created_at":      "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s FROM students%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		studentColumns, clause, column, sortOrder(filter.SortOrder), limit, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByStudentNumber fetches a student by external student number.
func (r *StudentRepository) FindByStudentNumber(ctx context.Context, number string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, `SELECT `+studentColumns+` FROM students WHERE student_number = $1`, number); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByStudentNumber checks if the student number is taken, optionally excluding an ID.
func (r *StudentRepository) ExistsByStudentNumber(ctx context.Context, number, excludeID string) (bool, error) {
	return r.exists(ctx, "student_number", number, excludeID)
}

// ExistsByEmail checks if the email is taken, optionally excluding an ID.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return r.exists(ctx, "LOWER(email)", strings.ToLower(email), excludeID)
}

func (r *StudentRepository) exists(ctx context.Context, column, value, excludeID string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM students WHERE %s = $1", column)
	args := []interface{}{value}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student %s: %w", column, err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, student_number, first_name, last_name, email, phone, date_of_birth, department, enrollment_year, created_at, updated_at)
        VALUES (:id, :student_number, :first_name, :last_name, :email, :phone, :date_of_birth, :department, :enrollment_year, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", translate(err))
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET student_number = :student_number, first_name = :first_name, last_name = :last_name, email = :email,
        phone = :phone, date_of_birth = :date_of_birth, department = :department, enrollment_year = :enrollment_year, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", translate(err))
	}
	return nil
}

// Delete removes a student. Enrollments referencing the student block deletion
// through the foreign key.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasEnrollments reports whether any enrollment references the student.
func (r *StudentRepository) HasEnrollments(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1)`, id); err != nil {
		return false, fmt.Errorf("check student enrollments: %w", err)
	}
	return exists, nil
}

// Departments lists distinct student departments in alphabetical order.
func (r *StudentRepository) Departments(ctx context.Context) ([]string, error) {
	var departments []string
	if err := r.db.SelectContext(ctx, &departments, `SELECT DISTINCT department FROM students ORDER BY department`); err != nil {
		return nil, fmt.Errorf("list student departments: %w", err)
	}
	return departments, nil
}

// EnrollmentYears lists distinct intake years, newest first.
func (r *StudentRepository) EnrollmentYears(ctx context.Context) ([]int, error) {
	var years []int
	if err := r.db.SelectContext(ctx, &years, `SELECT DISTINCT enrollment_year FROM students ORDER BY enrollment_year DESC`); err != nil {
		return nil, fmt.Errorf("list enrollment years: %w", err)
	}
	return years, nil
}
