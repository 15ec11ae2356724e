package dto

import "github.com/noah-isme/staff-appraisal-api/internal/models"

// CreateAppraisalRequest provisions a DRAFT record for a teacher and cycle.
type CreateAppraisalRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	CycleID   string `json:"cycle_id" validate:"required"`
}

// SavePartRequest carries the raw field values of one section.
type SavePartRequest struct {
	Values          map[string]float64 `json:"values" validate:"required"`
	ExpectedVersion *int64             `json:"expected_version,omitempty"`
}

// TransitionRequest moves an appraisal through the workflow.
type TransitionRequest struct {
	Action          string `json:"action" validate:"required"`
	Comment         string `json:"comment,omitempty"`
	TargetStatus    string `json:"target_status,omitempty"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

// FieldView resolves one declared field against its saved value.
type FieldView struct {
	Name  string   `json:"name"`
	Max   float64  `json:"max"`
	Value *float64 `json:"value,omitempty"`
}

// PartView resolves one section of the form for display.
type PartView struct {
	Key    models.PartKey   `json:"key"`
	Saved  bool             `json:"saved"`
	Fields []FieldView      `json:"fields"`
	Score  models.PartScore `json:"score"`
}

// AppraisalDetail is the full appraisal record with resolved part views.
type AppraisalDetail struct {
	Appraisal *models.Appraisal `json:"appraisal"`
	Parts     []PartView        `json:"parts"`
}
