package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusEnrolled  EnrollmentStatus = "ENROLLED"
	EnrollmentStatusDropped   EnrollmentStatus = "DROPPED"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
)

// Valid reports whether s is a known status literal.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusEnrolled, EnrollmentStatusDropped, EnrollmentStatusCompleted:
		return true
	}
	return false
}

// Enrollment binds one student to one course. The (student, course) pair is
// unique across every status.
type Enrollment struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	CourseID     string           `db:"course_id" json:"course_id"`
	Status       EnrollmentStatus `db:"status" json:"status"`
	RegisteredAt time.Time        `db:"registered_at" json:"registered_at"`
	Remarks      *string          `db:"remarks" json:"remarks,omitempty"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentNumber string `db:"student_number" json:"student_number"`
	StudentName   string `db:"student_name" json:"student_name"`
	CourseCode    string `db:"course_code" json:"course_code"`
	CourseTitle   string `db:"course_title" json:"course_title"`
	Credits       int    `db:"credits" json:"credits"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// AdmitRequest asks for a seat in a course.
type AdmitRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	CourseID  string  `json:"course_id" validate:"required"`
	Remarks   *string `json:"remarks" validate:"omitempty,max=500"`
}

// UpdateEnrollmentRequest changes status and/or remarks. At least one must be set.
type UpdateEnrollmentRequest struct {
	Status  *EnrollmentStatus `json:"status" validate:"omitempty,oneof=ENROLLED DROPPED COMPLETED"`
	Remarks *string           `json:"remarks" validate:"omitempty,max=500"`
}
