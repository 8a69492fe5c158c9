package dto

import (
	"time"

	"github.com/noah-isme/uni-records-api/internal/models"
)

// StudentGPAResponse carries a student's average GPA. Zero when no result exists.
type StudentGPAResponse struct {
	StudentID  string  `json:"student_id"`
	AverageGPA float64 `json:"average_gpa"`
}

// CourseAverageResponse carries a course's average marks. Zero when no result exists.
type CourseAverageResponse struct {
	CourseID     string  `json:"course_id"`
	AverageMarks float64 `json:"average_marks"`
}

// EnrollmentCountResponse reports ENROLLED occupancy of a course.
type EnrollmentCountResponse struct {
	CourseID string `json:"course_id"`
	Enrolled int    `json:"enrolled"`
}

// Transcript is the full academic record of a student.
type Transcript struct {
	Student       models.Student        `json:"student"`
	Results       []models.ResultDetail `json:"results"`
	AverageGPA    float64               `json:"average_gpa"`
	EarnedCredits int                   `json:"earned_credits"`
	GeneratedAt   time.Time             `json:"generated_at"`
}

// CourseSummary aggregates occupancy and grading for a course.
type CourseSummary struct {
	Course            models.Course       `json:"course"`
	CurrentEnrollment int                 `json:"current_enrollment"`
	RemainingSeats    *int                `json:"remaining_seats,omitempty"`
	GradedResults     int                 `json:"graded_results"`
	AverageMarks      float64             `json:"average_marks"`
	AverageGPA        float64             `json:"average_gpa"`
	GradeDistribution []models.GradeCount `json:"grade_distribution"`
	GeneratedAt       time.Time           `json:"generated_at"`
}

// RosterEntry is one enrollment of a course roster with its optional result.
type RosterEntry struct {
	EnrollmentID  string                  `json:"enrollment_id"`
	StudentID     string                  `json:"student_id"`
	StudentNumber string                  `json:"student_number"`
	StudentName   string                  `json:"student_name"`
	Status        models.EnrollmentStatus `json:"status"`
	Marks         *float64                `json:"marks,omitempty"`
	Grade         *string                 `json:"grade,omitempty"`
	GPAPoints     *float64                `json:"gpa_points,omitempty"`
}

// CourseRoster lists every enrollment of a course next to its summary.
type CourseRoster struct {
	Summary CourseSummary `json:"summary"`
	Entries []RosterEntry `json:"entries"`
}
