package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/staff-appraisal-api/internal/models"
)

// CycleRepository reads appraisal cycle records.
type CycleRepository struct {
	db *sqlx.DB
}

// NewCycleRepository constructs the repository.
func NewCycleRepository(db *sqlx.DB) *CycleRepository {
	return &CycleRepository{db: db}
}

const cycleColumns = `id, label, start_date, end_date, created_at`

// List returns every cycle, newest first.
func (r *CycleRepository) List(ctx context.Context) ([]models.AppraisalCycle, error) {
	query := fmt.Sprintf(`SELECT %s FROM appraisal_cycles ORDER BY start_date DESC`, cycleColumns)
	var cycles []models.AppraisalCycle
	if err := r.db.SelectContext(ctx, &cycles, query); err != nil {
		return nil, fmt.Errorf("list appraisal cycles: %w", err)
	}
	return cycles, nil
}

// GetByID fetches a cycle by identifier.
func (r *CycleRepository) GetByID(ctx context.Context, id string) (*models.AppraisalCycle, error) {
	query := fmt.Sprintf(`SELECT %s FROM appraisal_cycles WHERE id = $1`, cycleColumns)
	var cycle models.AppraisalCycle
	if err := r.db.GetContext(ctx, &cycle, query, id); err != nil {
		return nil, err
	}
	return &cycle, nil
}
