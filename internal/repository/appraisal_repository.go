package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/staff-appraisal-api/internal/models"
)

// AppraisalRepository persists appraisal records and their audit history.
type AppraisalRepository struct {
	db *sqlx.DB
}

// NewAppraisalRepository constructs the repository.
func NewAppraisalRepository(db *sqlx.DB) *AppraisalRepository {
	return &AppraisalRepository{db: db}
}

type appraisalRow struct {
	ID         string                 `db:"id"`
	TeacherID  string                 `db:"teacher_id"`
	CycleID    string                 `db:"cycle_id"`
	Department string                 `db:"department"`
	Status     models.AppraisalStatus `db:"status"`
	Parts      []byte                 `db:"parts"`
	Totals     []byte                 `db:"totals"`
	Version    int64                  `db:"version"`
	CreatedAt  time.Time              `db:"created_at"`
	UpdatedAt  time.Time              `db:"updated_at"`
}

const appraisalColumns = `id, teacher_id, cycle_id, department, status, parts, totals, version, created_at, updated_at`

// Create inserts a fresh DRAFT record at version 1.
func (r *AppraisalRepository) Create(ctx context.Context, appraisal *models.Appraisal) error {
	if appraisal.ID == "" {
		appraisal.ID = uuid.NewString()
	}
	if appraisal.Status == "" {
		appraisal.Status = models.StatusDraft
	}
	appraisal.Version = 1
	now := time.Now().UTC()
	appraisal.CreatedAt = now
	appraisal.UpdatedAt = now

	row, err := toRow(appraisal)
	if err != nil {
		return err
	}
	const query = `INSERT INTO appraisals
	(id, teacher_id, cycle_id, department, status, parts, totals, version, created_at, updated_at)
	VALUES (:id, :teacher_id, :cycle_id, :department, :status, :parts, :totals, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create appraisal: %w", err)
	}
	return nil
}

// GetByID fetches an appraisal with its full ordered history.
func (r *AppraisalRepository) GetByID(ctx context.Context, id string) (*models.Appraisal, error) {
	query := fmt.Sprintf(`SELECT %s FROM appraisals WHERE id = $1`, appraisalColumns)
	var row appraisalRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	appraisal, err := fromRow(&row)
	if err != nil {
		return nil, err
	}
	history, err := r.History(ctx, id)
	if err != nil {
		return nil, err
	}
	appraisal.History = history
	return appraisal, nil
}

// FindByTeacherAndCycle fetches the appraisal for a (teacher, cycle) pair.
func (r *AppraisalRepository) FindByTeacherAndCycle(ctx context.Context, teacherID, cycleID string) (*models.Appraisal, error) {
	query := fmt.Sprintf(`SELECT %s FROM appraisals WHERE teacher_id = $1 AND cycle_id = $2`, appraisalColumns)
	var row appraisalRow
	if err := r.db.GetContext(ctx, &row, query, teacherID, cycleID); err != nil {
		return nil, err
	}
	appraisal, err := fromRow(&row)
	if err != nil {
		return nil, err
	}
	history, err := r.History(ctx, appraisal.ID)
	if err != nil {
		return nil, err
	}
	appraisal.History = history
	return appraisal, nil
}

// Save persists content, totals, and status guarded by the stored version, and
// appends any new history entries in the same transaction. A zero-row update
// means the expected version no longer matches: sql.ErrNoRows is returned and
// the caller surfaces it as a conflict.
func (r *AppraisalRepository) Save(ctx context.Context, appraisal *models.Appraisal, expectedVersion int64, entries []models.HistoryEntry) error {
	row, err := toRow(appraisal)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin appraisal save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const update = `UPDATE appraisals
	SET status = $1, parts = $2, totals = $3, version = $4, updated_at = $5
	WHERE id = $6 AND version = $7`
	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, update, row.Status, row.Parts, row.Totals, expectedVersion+1, now, row.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update appraisal: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check appraisal update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	const insert = `INSERT INTO appraisal_history
	(id, appraisal_id, seq, from_status, to_status, actor_id, actor_role, comment, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.AppraisalID = appraisal.ID
		if _, err := tx.ExecContext(ctx, insert,
			entry.ID, entry.AppraisalID, entry.Seq, entry.FromStatus, entry.ToStatus,
			entry.ActorID, entry.ActorRole, entry.Comment, entry.CreatedAt); err != nil {
			return fmt.Errorf("append appraisal history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit appraisal save: %w", err)
	}
	appraisal.Version = expectedVersion + 1
	appraisal.UpdatedAt = now
	return nil
}

// History returns the append-only transition trail in insertion order.
func (r *AppraisalRepository) History(ctx context.Context, appraisalID string) ([]models.HistoryEntry, error) {
	const query = `SELECT id, appraisal_id, seq, from_status, to_status, actor_id, actor_role, comment, created_at
	FROM appraisal_history WHERE appraisal_id = $1 ORDER BY seq ASC`
	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, appraisalID); err != nil {
		return nil, fmt.Errorf("list appraisal history: %w", err)
	}
	return entries, nil
}

func toRow(appraisal *models.Appraisal) (*appraisalRow, error) {
	parts, err := json.Marshal(appraisal.Parts)
	if err != nil {
		return nil, fmt.Errorf("marshal appraisal parts: %w", err)
	}
	totals, err := json.Marshal(appraisal.Totals)
	if err != nil {
		return nil, fmt.Errorf("marshal appraisal totals: %w", err)
	}
	return &appraisalRow{
		ID:         appraisal.ID,
		TeacherID:  appraisal.TeacherID,
		CycleID:    appraisal.CycleID,
		Department: appraisal.Department,
		Status:     appraisal.Status,
		Parts:      parts,
		Totals:     totals,
		Version:    appraisal.Version,
		CreatedAt:  appraisal.CreatedAt,
		UpdatedAt:  appraisal.UpdatedAt,
	}, nil
}

func fromRow(row *appraisalRow) (*models.Appraisal, error) {
	appraisal := &models.Appraisal{
		ID:         row.ID,
		TeacherID:  row.TeacherID,
		CycleID:    row.CycleID,
		Department: row.Department,
		Status:     row.Status,
		Parts:      make(map[models.PartKey]models.PartValues),
		Version:    row.Version,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if len(row.Parts) > 0 {
		if err := json.Unmarshal(row.Parts, &appraisal.Parts); err != nil {
			return nil, fmt.Errorf("unmarshal appraisal parts: %w", err)
		}
	}
	if len(row.Totals) > 0 {
		if err := json.Unmarshal(row.Totals, &appraisal.Totals); err != nil {
			return nil, fmt.Errorf("unmarshal appraisal totals: %w", err)
		}
	}
	if appraisal.Totals.Parts == nil {
		appraisal.Totals.Parts = make(map[models.PartKey]models.PartScore)
	}
	return appraisal, nil
}
