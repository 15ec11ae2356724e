package models

import "time"

// PartKey identifies one scored section of an appraisal form.
type PartKey string

const (
	PartA PartKey = "A"
	PartB PartKey = "B"
	PartC PartKey = "C"
	PartD PartKey = "D"
	PartE PartKey = "E"
)

// PartKeys lists every section in form order.
var PartKeys = []PartKey{PartA, PartB, PartC, PartD, PartE}

// ValidPartKey reports whether the key names a known section.
func ValidPartKey(key PartKey) bool {
	for _, k := range PartKeys {
		if k == key {
			return true
		}
	}
	return false
}

// AppraisalStatus captures workflow states for appraisal records.
type AppraisalStatus string

const (
	StatusDraft        AppraisalStatus = "DRAFT"
	StatusSubmitted    AppraisalStatus = "SUBMITTED"
	StatusHODReviewed  AppraisalStatus = "HOD_REVIEWED"
	StatusIQACReviewed AppraisalStatus = "IQAC_REVIEWED"
	StatusApproved     AppraisalStatus = "APPROVED"
	StatusRejected     AppraisalStatus = "REJECTED"
	StatusLocked       AppraisalStatus = "LOCKED"
)

// ValidStatus reports whether the value is one of the enumerated statuses.
func ValidStatus(status AppraisalStatus) bool {
	switch status {
	case StatusDraft, StatusSubmitted, StatusHODReviewed, StatusIQACReviewed,
		StatusApproved, StatusRejected, StatusLocked:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further content mutation.
func (s AppraisalStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusLocked
}

// WorkflowAction enumerates the operations that move an appraisal between statuses.
type WorkflowAction string

const (
	ActionSubmit   WorkflowAction = "SUBMIT"
	ActionReview   WorkflowAction = "REVIEW"
	ActionApprove  WorkflowAction = "APPROVE"
	ActionReject   WorkflowAction = "REJECT"
	ActionReopen   WorkflowAction = "REOPEN"
	ActionLock     WorkflowAction = "LOCK"
	ActionOverride WorkflowAction = "OVERRIDE"
)

// PartValues holds the raw field values of one saved section.
type PartValues map[string]float64

// PartScore pairs an achieved score with the section maximum.
type PartScore struct {
	Score float64 `json:"score"`
	Max   float64 `json:"max"`
}

// Totals aggregates committed section scores plus the overall sum.
type Totals struct {
	Parts   map[PartKey]PartScore `json:"parts"`
	Overall PartScore             `json:"overall"`
}

// HistoryEntry records a single workflow transition. The sequence is
// append-only; Seq preserves insertion order within an appraisal.
type HistoryEntry struct {
	ID          string          `db:"id" json:"id"`
	AppraisalID string          `db:"appraisal_id" json:"appraisal_id"`
	Seq         int             `db:"seq" json:"seq"`
	FromStatus  AppraisalStatus `db:"from_status" json:"from_status"`
	ToStatus    AppraisalStatus `db:"to_status" json:"to_status"`
	ActorID     string          `db:"actor_id" json:"actor_id"`
	ActorRole   UserRole        `db:"actor_role" json:"actor_role"`
	Comment     *string         `db:"comment" json:"comment,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Appraisal is the central workflow entity. Only the workflow engine mutates
// Status, Parts, Totals, and History; Version increases on every persisted write.
type Appraisal struct {
	ID         string                 `json:"id"`
	TeacherID  string                 `json:"teacher_id"`
	CycleID    string                 `json:"cycle_id"`
	Department string                 `json:"department"`
	Status     AppraisalStatus        `json:"status"`
	Parts      map[PartKey]PartValues `json:"parts"`
	Totals     Totals                 `json:"totals"`
	History    []HistoryEntry         `json:"history,omitempty"`
	Version    int64                  `json:"version"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate safely.
func (a *Appraisal) Clone() *Appraisal {
	if a == nil {
		return nil
	}
	copied := *a
	copied.Parts = make(map[PartKey]PartValues, len(a.Parts))
	for key, values := range a.Parts {
		cv := make(PartValues, len(values))
		for field, value := range values {
			cv[field] = value
		}
		copied.Parts[key] = cv
	}
	copied.Totals.Parts = make(map[PartKey]PartScore, len(a.Totals.Parts))
	for key, score := range a.Totals.Parts {
		copied.Totals.Parts[key] = score
	}
	copied.History = append([]HistoryEntry(nil), a.History...)
	return &copied
}
