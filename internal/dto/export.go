package dto

import "github.com/noah-isme/uni-records-api/internal/models"

// ExportRequest captures POST /exports payload. TargetID is a course ID for
// rosters and a student ID for transcripts.
type ExportRequest struct {
	Kind     models.ExportKind   `json:"kind" validate:"required,oneof=course_roster transcript"`
	TargetID string              `json:"target_id" validate:"required"`
	Format   models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Kind      models.ExportKind   `json:"kind"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
