package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/drive-admin-api/internal/models"
	appErrors "github.com/noah-isme/drive-admin-api/pkg/errors"
	"github.com/noah-isme/drive-admin-api/pkg/export"
)

type registryViewSource interface {
	FullRegistry(ctx context.Context, filter models.RegistryFilter) ([]models.StudentView, error)
}

type exportArchive interface {
	Save(name string, data []byte) (string, error)
}

// ExportResult is a rendered registry export.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

var registryExportHeaders = []string{
	"Application No", "Name", "Email", "Phone", "Category", "Status",
	"Ground", "Simulation", "Road", "Total Sessions", "Completion (%)",
	"Paid", "Balance", "LL Test", "DL Test", "Licence Valid Until",
}

// ExportService renders the reconciled registry into downloadable files.
type ExportService struct {
	source    registryViewSource
	renderers map[export.Format]export.Renderer
	archive   exportArchive
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. archive may be nil.
func NewExportService(source registryViewSource, archive exportArchive, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		source: source,
		renderers: map[export.Format]export.Renderer{
			export.FormatCSV:  export.NewCSVExporter(),
			export.FormatXLSX: export.NewXLSXExporter(),
			export.FormatPDF:  export.NewPDFExporter(),
		},
		archive: archive,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Export renders the registry in format. A copy is archived when an archive is configured.
func (s *ExportService) Export(ctx context.Context, format export.Format, filter models.RegistryFilter) (*ExportResult, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	views, err := s.source.FullRegistry(ctx, filter)
	if err != nil {
		return nil, err
	}

	payload, err := renderer.Render(buildRegistryDataset(views))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("registry_%s.%s", s.now().Format("20060102_150405"), format)
	if s.archive != nil {
		if _, err := s.archive.Save(filename, payload); err != nil {
			s.logger.Warn("failed to archive registry export", zap.String("file", filename), zap.Error(err))
		}
	}
	return &ExportResult{Filename: filename, ContentType: format.ContentType(), Payload: payload}, nil
}

func buildRegistryDataset(views []models.StudentView) export.Dataset {
	rows := make([]map[string]string, 0, len(views))
	for _, view := range views {
		rows = append(rows, map[string]string{
			"Application No":      view.ApplicationNumber,
			"Name":                view.FullName,
			"Email":               view.Email,
			"Phone":               view.Phone,
			"Category":            string(view.VehicleCategory),
			"Status":              string(view.Status),
			"Ground":              strconv.Itoa(view.Stats.TotalGroundSessions),
			"Simulation":          strconv.Itoa(view.Stats.TotalSimulationSessions),
			"Road":                strconv.Itoa(view.Stats.TotalRoadSessions),
			"Total Sessions":      strconv.Itoa(view.Stats.TotalSessions),
			"Completion (%)":      strconv.Itoa(view.CompletionPercentage),
			"Paid":                fmt.Sprintf("%.2f", view.PaidAmount),
			"Balance":             fmt.Sprintf("%.2f", view.RemainingAmount),
			"LL Test":             formatDate(view.LLTestDate),
			"DL Test":             formatDate(view.DLTestDate),
			"Licence Valid Until": formatDate(view.LicenseValidity),
		})
	}
	return export.Dataset{Title: "Student Registry", Headers: registryExportHeaders, Rows: rows}
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
