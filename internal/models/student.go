package models

import "time"

// Student represents a person registered with the university.
type Student struct {
	ID             string     `db:"id" json:"id"`
	StudentNumber  string     `db:"student_number" json:"student_number"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	Email          string     `db:"email" json:"email"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	DateOfBirth    *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Department     string     `db:"department" json:"department"`
	EnrollmentYear int        `db:"enrollment_year" json:"enrollment_year"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search         string
	Department     string
	EnrollmentYear int
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// CreateStudentRequest is the payload for registering a student.
type CreateStudentRequest struct {
	StudentNumber  string     `json:"student_number" validate:"required,max=32"`
	FirstName      string     `json:"first_name" validate:"required,max=100"`
	LastName       string     `json:"last_name" validate:"required,max=100"`
	Email          string     `json:"email" validate:"required,email"`
	Phone          *string    `json:"phone" validate:"omitempty,max=32"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	Department     string     `json:"department" validate:"required,max=100"`
	EnrollmentYear int        `json:"enrollment_year" validate:"required,gte=1900,lte=2100"`
}

// UpdateStudentRequest replaces the mutable student fields.
type UpdateStudentRequest = CreateStudentRequest
