package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/staff-appraisal-api/internal/dto"
	"github.com/noah-isme/staff-appraisal-api/internal/models"
	appErrors "github.com/noah-isme/staff-appraisal-api/pkg/errors"
	"github.com/noah-isme/staff-appraisal-api/pkg/export"
)

type appraisalResolver interface {
	GetFull(ctx context.Context, appraisalID string, actor *models.JWTClaims) (*dto.AppraisalDetail, error)
}

// ExportResult carries rendered bytes plus transport metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders appraisal score sheets as CSV or PDF. Access control
// is delegated to the resolver, which enforces the view policy.
type ExportService struct {
	resolver appraisalResolver
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(resolver appraisalResolver, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		resolver: resolver,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// Render produces the score sheet in the requested format.
func (s *ExportService) Render(ctx context.Context, appraisalID, format string, actor *models.JWTClaims) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	detail, err := s.resolver.GetFull(ctx, appraisalID, actor)
	if err != nil {
		return nil, err
	}

	data := buildDataset(detail)
	switch format {
	case "pdf":
		content, err := s.pdf.Render(data, fmt.Sprintf("Appraisal %s", detail.Appraisal.CycleID))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("appraisal-%s.pdf", appraisalID),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("appraisal-%s.csv", appraisalID),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	}
}

func buildDataset(detail *dto.AppraisalDetail) export.Dataset {
	data := export.Dataset{Headers: []string{"Part", "Field", "Value", "Score", "Max"}}
	for _, part := range detail.Parts {
		for _, field := range part.Fields {
			value := ""
			if field.Value != nil {
				value = formatNumber(*field.Value)
			}
			data.Rows = append(data.Rows, map[string]string{
				"Part":  string(part.Key),
				"Field": field.Name,
				"Value": value,
				"Score": "",
				"Max":   formatNumber(field.Max),
			})
		}
		data.Rows = append(data.Rows, map[string]string{
			"Part":  string(part.Key),
			"Field": "subtotal",
			"Value": "",
			"Score": formatNumber(part.Score.Score),
			"Max":   formatNumber(part.Score.Max),
		})
	}
	overall := detail.Appraisal.Totals.Overall
	data.Rows = append(data.Rows, map[string]string{
		"Part":  "TOTAL",
		"Field": "",
		"Value": "",
		"Score": formatNumber(overall.Score),
		"Max":   formatNumber(overall.Max),
	})
	return data
}

func formatNumber(value float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", value), "0"), ".")
}
