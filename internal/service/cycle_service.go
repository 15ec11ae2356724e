package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/staff-appraisal-api/internal/models"
	appErrors "github.com/noah-isme/staff-appraisal-api/pkg/errors"
)

type cycleStore interface {
	List(ctx context.Context) ([]models.AppraisalCycle, error)
	GetByID(ctx context.Context, id string) (*models.AppraisalCycle, error)
}

// CycleService exposes appraisal cycle lookups for form navigation.
type CycleService struct {
	store  cycleStore
	logger *zap.Logger
}

// NewCycleService constructs the service.
func NewCycleService(store cycleStore, logger *zap.Logger) *CycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CycleService{store: store, logger: logger}
}

// List returns every cycle, newest first.
func (s *CycleService) List(ctx context.Context) ([]models.AppraisalCycle, error) {
	cycles, err := s.store.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cycles")
	}
	return cycles, nil
}

// Get fetches one cycle.
func (s *CycleService) Get(ctx context.Context, id string) (*models.AppraisalCycle, error) {
	cycle, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cycle not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cycle")
	}
	return cycle, nil
}
