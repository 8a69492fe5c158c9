package dto

import "github.com/noah-isme/uni-records-api/internal/models"

// PortalOverview is the landing view of the student portal.
type PortalOverview struct {
	Student         models.Student            `json:"student"`
	EnrolledCourses []models.CourseDetail     `json:"enrolled_courses"`
	Enrollments     []models.EnrollmentDetail `json:"enrollments"`
	AverageGPA      float64                   `json:"average_gpa"`
}
