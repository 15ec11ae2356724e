package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/staff-appraisal-api/internal/dto"
	"github.com/noah-isme/staff-appraisal-api/internal/models"
	appErrors "github.com/noah-isme/staff-appraisal-api/pkg/errors"
)

type resolverStub struct {
	detail *dto.AppraisalDetail
	err    error
}

func (s *resolverStub) GetFull(_ context.Context, _ string, _ *models.JWTClaims) (*dto.AppraisalDetail, error) {
	return s.detail, s.err
}

func exportDetail() *dto.AppraisalDetail {
	value := 4.0
	return &dto.AppraisalDetail{
		Appraisal: &models.Appraisal{
			ID:      "apr-1",
			CycleID: "cycle-2026",
			Status:  models.StatusApproved,
			Totals: models.Totals{
				Overall: models.PartScore{Score: 20, Max: 145},
			},
		},
		Parts: []dto.PartView{
			{
				Key:   models.PartD,
				Saved: true,
				Fields: []dto.FieldView{
					{Name: "attendance", Max: 5, Value: &value},
				},
				Score: models.PartScore{Score: 20, Max: 25},
			},
		},
	}
}

func TestRenderCSV(t *testing.T) {
	svc := NewExportService(&resolverStub{detail: exportDetail()}, nil)

	result, err := svc.Render(context.Background(), "apr-1", "csv", claimsFor(ownerUser))
	require.NoError(t, err)
	require.Equal(t, "appraisal-apr-1.csv", result.FileName)
	require.Equal(t, "text/csv", result.ContentType)

	body := string(result.Content)
	require.True(t, strings.HasPrefix(body, "Part,Field,Value,Score,Max"))
	require.Contains(t, body, "D,attendance,4,,5")
	require.Contains(t, body, "D,subtotal,,20,25")
	require.Contains(t, body, "TOTAL,,,20,145")
}

func TestRenderCSVIsDefaultFormat(t *testing.T) {
	svc := NewExportService(&resolverStub{detail: exportDetail()}, nil)

	result, err := svc.Render(context.Background(), "apr-1", "", claimsFor(ownerUser))
	require.NoError(t, err)
	require.Equal(t, "text/csv", result.ContentType)
}

func TestRenderPDF(t *testing.T) {
	svc := NewExportService(&resolverStub{detail: exportDetail()}, nil)

	result, err := svc.Render(context.Background(), "apr-1", "pdf", claimsFor(ownerUser))
	require.NoError(t, err)
	require.Equal(t, "appraisal-apr-1.pdf", result.FileName)
	require.Equal(t, "application/pdf", result.ContentType)
	require.True(t, strings.HasPrefix(string(result.Content), "%PDF"))
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&resolverStub{detail: exportDetail()}, nil)

	_, err := svc.Render(context.Background(), "apr-1", "xlsx", claimsFor(ownerUser))
	requireCode(t, err, appErrors.ErrValidation)
}

func TestRenderPropagatesAccessDenial(t *testing.T) {
	svc := NewExportService(&resolverStub{err: appErrors.ErrForbidden}, nil)

	_, err := svc.Render(context.Background(), "apr-1", "csv", claimsFor(otherTeacher))
	requireCode(t, err, appErrors.ErrForbidden)
}
