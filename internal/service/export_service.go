package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-records-api/internal/dto"
	"github.com/noah-isme/uni-records-api/internal/models"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
	"github.com/noah-isme/uni-records-api/pkg/export"
	"github.com/noah-isme/uni-records-api/pkg/storage"
)

// errExportTargetMissing marks exports whose course or student no longer
// exists; retrying them cannot succeed.
var errExportTargetMissing = errors.New("export target not found")

type exportSource interface {
	Transcript(ctx context.Context, studentID string) (*dto.Transcript, error)
	CourseRoster(ctx context.Context, courseID string) (*dto.CourseRoster, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type tableRenderer interface {
	Render(t export.Table) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// RenderedExport is a document rendered in memory for direct download.
type RenderedExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders course rosters and transcripts and persists the files.
type ExportService struct {
	source  exportSource
	storage fileStorage
	csv     tableRenderer
	pdf     tableRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(source exportSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf tableRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		source:  source,
		storage: files,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Render builds the requested document in memory.
func (s *ExportService) Render(ctx context.Context, kind models.ExportKind, targetID string, format models.ExportFormat) (*RenderedExport, error) {
	table, name, err := s.buildTable(ctx, kind, targetID)
	if err != nil {
		return nil, err
	}
	body, contentType, err := s.render(table, format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &RenderedExport{
		Filename:    fmt.Sprintf("%s.%s", name, format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

// Generate renders the job's document, stores it and signs a download URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	table, name, err := s.buildTable(ctx, job.Kind, job.Params.TargetID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", errExportTargetMissing, job.Params.TargetID)
		}
		return nil, err
	}
	payload, _, err := s.render(table, job.Params.Format)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s_%s.%s", name, s.now().UTC().Format("20060102_150405"), job.Params.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("export generated", zap.String("job_id", job.ID), zap.String("path", relPath))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	decoded, err := s.signer.Verify(token, allowExpired)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return decoded.JobID, decoded.Path, decoded.ExpiresAt, nil
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, or the configured ResultTTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) render(table export.Table, format models.ExportFormat) ([]byte, string, error) {
	switch format {
	case models.ExportFormatCSV:
		body, err := s.csv.Render(table)
		return body, "text/csv", err
	case models.ExportFormatPDF:
		body, err := s.pdf.Render(table)
		return body, "application/pdf", err
	}
	return nil, "", fmt.Errorf("unsupported format %s", format)
}

func (s *ExportService) buildTable(ctx context.Context, kind models.ExportKind, targetID string) (export.Table, string, error) {
	switch kind {
	case models.ExportKindCourseRoster:
		roster, err := s.source.CourseRoster(ctx, targetID)
		if err != nil {
			return export.Table{}, "", err
		}
		return rosterTable(roster), "roster_" + sanitizeFilename(roster.Summary.Course.Code), nil
	case models.ExportKindTranscript:
		transcript, err := s.source.Transcript(ctx, targetID)
		if err != nil {
			return export.Table{}, "", err
		}
		return transcriptTable(transcript), "transcript_" + sanitizeFilename(transcript.Student.StudentNumber), nil
	}
	return export.Table{}, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export kind")
}

func rosterTable(roster *dto.CourseRoster) export.Table {
	course := roster.Summary.Course
	table := export.Table{
		Title:   fmt.Sprintf("%s %s", course.Code, course.Title),
		Columns: []string{"Student Number", "Student", "Status", "Marks", "Grade", "GPA Points"},
		Rows:    make([][]string, 0, len(roster.Entries)),
	}
	for _, e := range roster.Entries {
		table.Rows = append(table.Rows, []string{
			e.StudentNumber,
			e.StudentName,
			string(e.Status),
			formatDecimal(e.Marks),
			deref(e.Grade),
			formatDecimal(e.GPAPoints),
		})
	}
	capacity := "unlimited"
	if course.MaxEnrollment != nil {
		capacity = strconv.Itoa(*course.MaxEnrollment)
	}
	table.Summary = [][2]string{
		{"Enrolled", strconv.Itoa(roster.Summary.CurrentEnrollment)},
		{"Capacity", capacity},
		{"Average marks", strconv.FormatFloat(roster.Summary.AverageMarks, 'f', 2, 64)},
	}
	return table
}

func transcriptTable(t *dto.Transcript) export.Table {
	table := export.Table{
		Title:   fmt.Sprintf("Transcript %s %s", t.Student.StudentNumber, t.Student.FullName()),
		Columns: []string{"Course", "Title", "Credits", "Status", "Marks", "Grade", "GPA Points"},
		Rows:    make([][]string, 0, len(t.Results)),
	}
	for _, r := range t.Results {
		table.Rows = append(table.Rows, []string{
			r.CourseCode,
			r.CourseTitle,
			strconv.Itoa(r.Credits),
			string(r.Status),
			formatDecimal(r.Marks),
			deref(r.Grade),
			formatDecimal(r.GPAPoints),
		})
	}
	table.Summary = [][2]string{
		{"Average GPA", strconv.FormatFloat(t.AverageGPA, 'f', 2, 64)},
		{"Earned credits", strconv.Itoa(t.EarnedCredits)},
	}
	return table
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func formatDecimal(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
