package service

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/pkg/export"
)

var rosterHeaders = []string{"Name", "Email", "Progress (%)", "Enrolled At"}

type documentRenderer interface {
	Render(format export.Format, base string, data export.Dataset) (*export.Document, error)
}

// ExportService turns course rosters into downloadable documents.
type ExportService struct {
	renderer documentRenderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(renderer documentRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewRenderer()
	}
	return &ExportService{renderer: renderer, logger: logger}
}

// Roster renders the enrolled students of a course in the requested format.
func (s *ExportService) Roster(course *models.Course, entries []models.RosterEntry, format export.Format) (*export.Document, error) {
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, map[string]string{
			"Name":         entry.Name,
			"Email":        entry.Email,
			"Progress (%)": strconv.Itoa(entry.Progress),
			"Enrolled At":  entry.EnrolledAt.UTC().Format(time.RFC3339),
		})
	}
	dataset := export.Dataset{
		Title:   fmt.Sprintf("Roster %s", course.Title),
		Headers: rosterHeaders,
		Rows:    rows,
	}
	doc, err := s.renderer.Render(format, fmt.Sprintf("roster_%s_%s", course.Title, time.Now().UTC().Format("20060102")), dataset)
	if err != nil {
		s.logger.Error("failed to render roster", zap.String("course_id", course.ID), zap.String("format", string(format)), zap.Error(err))
		return nil, err
	}
	return doc, nil
}
