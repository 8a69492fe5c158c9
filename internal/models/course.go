package models

import "time"

// Course is a catalog entry students can enroll in. A nil MaxEnrollment means
// the course has no capacity limit.
type Course struct {
	ID            string    `db:"id" json:"id"`
	Code          string    `db:"code" json:"code"`
	Title         string    `db:"title" json:"title"`
	Description   *string   `db:"description" json:"description,omitempty"`
	Department    string    `db:"department" json:"department"`
	Credits       int       `db:"credits" json:"credits"`
	MaxEnrollment *int      `db:"max_enrollment" json:"max_enrollment,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail adds live occupancy to a course.
type CourseDetail struct {
	Course
	CurrentEnrollment int `db:"current_enrollment" json:"current_enrollment"`
}

// RemainingSeats reports free seats, or nil for unlimited courses.
func (c CourseDetail) RemainingSeats() *int {
	if c.MaxEnrollment == nil {
		return nil
	}
	remaining := *c.MaxEnrollment - c.CurrentEnrollment
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// CourseFilter narrows course listings.
type CourseFilter struct {
	Search     string
	Department string
	MinCredits int
	MaxCredits int
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// CreateCourseRequest is the payload for adding a course to the catalog.
type CreateCourseRequest struct {
	Code          string  `json:"code" validate:"required,max=20"`
	Title         string  `json:"title" validate:"required,max=200"`
	Description   *string `json:"description" validate:"omitempty,max=2000"`
	Department    string  `json:"department" validate:"required,max=100"`
	Credits       int     `json:"credits" validate:"required,gt=0"`
	MaxEnrollment *int    `json:"max_enrollment" validate:"omitempty,gt=0"`
}

// UpdateCourseRequest replaces the mutable course fields.
type UpdateCourseRequest = CreateCourseRequest
