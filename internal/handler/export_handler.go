package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-records-api/internal/dto"
	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/internal/service"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
	"github.com/noah-isme/uni-records-api/pkg/response"
)

type exportJobService interface {
	CreateJob(ctx context.Context, req dto.ExportRequest, actorID string) (*dto.ExportJobResponse, error)
	GetStatus(ctx context.Context, id string) (*dto.ExportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

type exportRenderer interface {
	Render(ctx context.Context, kind models.ExportKind, targetID string, format models.ExportFormat) (*service.RenderedExport, error)
}

// ExportHandler serves roster and transcript exports.
type ExportHandler struct {
	jobs     exportJobService
	renderer exportRenderer
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(jobs exportJobService, renderer exportRenderer) *ExportHandler {
	return &ExportHandler{jobs: jobs, renderer: renderer}
}

// Create godoc
// @Summary Queue an export
// @Tags Exports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ExportRequest true "Export payload"
// @Success 202 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid export payload"))
		return
	}
	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}
	job, err := h.jobs.CreateJob(c.Request.Context(), req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	status, err := h.jobs.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// Download godoc
// @Summary Download a finished export via signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	download, err := h.jobs.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentTypeFor(download.Format), download.File, nil)
}

// Render godoc
// @Summary Render an export synchronously
// @Tags Exports
// @Produce octet-stream
// @Security BearerAuth
// @Param kind path string true "course_roster or transcript"
// @Param id path string true "Course or student ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Router /exports/render/{kind}/{id} [get]
func (h *ExportHandler) Render(c *gin.Context) {
	kind := models.ExportKind(c.Param("kind"))
	if kind != models.ExportKindCourseRoster && kind != models.ExportKindTranscript {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown export kind"))
		return
	}
	format := models.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(models.ExportFormatCSV))))
	if format != models.ExportFormatCSV && format != models.ExportFormatPDF {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	doc, err := h.renderer.Render(c.Request.Context(), kind, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Body)
}

func contentTypeFor(format models.ExportFormat) string {
	if format == models.ExportFormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}
