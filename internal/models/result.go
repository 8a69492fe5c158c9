package models

import (
	"time"

	"github.com/noah-isme/uni-records-api/internal/grading"
)

// Result is the graded outcome of an enrollment. Grade and GPAPoints are
// derived from Marks and only change through SetMarks.
type Result struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	Marks        *float64  `db:"marks" json:"marks,omitempty"`
	Grade        *string   `db:"grade" json:"grade,omitempty"`
	GPAPoints    *float64  `db:"gpa_points" json:"gpa_points,omitempty"`
	Feedback     *string   `db:"feedback" json:"feedback,omitempty"`
	ResultDate   time.Time `db:"result_date" json:"result_date"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SetMarks stores marks rounded to two decimals and re-derives grade and GPA
// points. Nil marks clear both derived fields. Callers validate the range.
func (r *Result) SetMarks(marks *float64) {
	if marks == nil {
		r.Marks, r.Grade, r.GPAPoints = nil, nil, nil
		return
	}
	m := grading.Round(*marks)
	g := grading.Derive(m)
	letter, points := string(g.Letter), g.Points
	r.Marks, r.Grade, r.GPAPoints = &m, &letter, &points
}

// ResultDetail is the joined view returned by lookups.
type ResultDetail struct {
	Result
	StudentID     string           `db:"student_id" json:"student_id"`
	StudentNumber string           `db:"student_number" json:"student_number"`
	StudentName   string           `db:"student_name" json:"student_name"`
	CourseID      string           `db:"course_id" json:"course_id"`
	CourseCode    string           `db:"course_code" json:"course_code"`
	CourseTitle   string           `db:"course_title" json:"course_title"`
	Credits       int              `db:"credits" json:"credits"`
	Status        EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
}

// RecordResultRequest grades an enrollment.
type RecordResultRequest struct {
	EnrollmentID string   `json:"enrollment_id" validate:"required"`
	Marks        *float64 `json:"marks" validate:"omitempty,gte=0,lte=100"`
	Feedback     *string  `json:"feedback" validate:"omitempty,max=2000"`
}

// AmendResultRequest replaces marks and feedback of an existing result.
type AmendResultRequest struct {
	Marks    *float64 `json:"marks" validate:"omitempty,gte=0,lte=100"`
	Feedback *string  `json:"feedback" validate:"omitempty,max=2000"`
}

// MarksRange bounds a range scan over results, inclusive on both ends.
type MarksRange struct {
	Min float64 `form:"min" validate:"gte=0,lte=100"`
	Max float64 `form:"max" validate:"gte=0,lte=100,gtefield=Min"`
}

// GradeCount is one bucket of a course grade distribution.
type GradeCount struct {
	Grade string `db:"grade" json:"grade"`
	Count int    `db:"count" json:"count"`
}
