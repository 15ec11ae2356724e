// Package policy contains the pure authorization predicates and the workflow
// transition table gating every appraisal mutation.
package policy

import (
	"github.com/noah-isme/staff-appraisal-api/internal/models"
	appErrors "github.com/noah-isme/staff-appraisal-api/pkg/errors"
)

type transitionRule struct {
	from      models.AppraisalStatus
	action    models.WorkflowAction
	to        models.AppraisalStatus
	roles     []models.UserRole
	ownerOnly bool
	sameDept  bool
}

// transitionTable fixes every legal (status, action, role) combination.
// REJECT from any review stage always lands on REJECTED; the owner must
// REOPEN explicitly before editing again.
var transitionTable = []transitionRule{
	{from: models.StatusDraft, action: models.ActionSubmit, to: models.StatusSubmitted, roles: []models.UserRole{models.RoleTeacher}, ownerOnly: true},
	{from: models.StatusSubmitted, action: models.ActionReview, to: models.StatusHODReviewed, roles: []models.UserRole{models.RoleHOD}, sameDept: true},
	{from: models.StatusSubmitted, action: models.ActionReject, to: models.StatusRejected, roles: []models.UserRole{models.RoleHOD}, sameDept: true},
	{from: models.StatusHODReviewed, action: models.ActionReview, to: models.StatusIQACReviewed, roles: []models.UserRole{models.RoleIQAC}},
	{from: models.StatusHODReviewed, action: models.ActionReject, to: models.StatusRejected, roles: []models.UserRole{models.RoleIQAC}},
	{from: models.StatusIQACReviewed, action: models.ActionApprove, to: models.StatusApproved, roles: []models.UserRole{models.RolePrincipal}},
	{from: models.StatusIQACReviewed, action: models.ActionReject, to: models.StatusRejected, roles: []models.UserRole{models.RolePrincipal}},
	{from: models.StatusRejected, action: models.ActionReopen, to: models.StatusDraft, roles: []models.UserRole{models.RoleTeacher, models.RoleAdmin}, ownerOnly: true},
	{from: models.StatusApproved, action: models.ActionLock, to: models.StatusLocked, roles: []models.UserRole{models.RoleAdmin}},
}

// CanView reports whether the actor may read the appraisal: the owning
// teacher, any IQAC/PRINCIPAL/ADMIN user, or the HOD of the same department.
func CanView(actor *models.User, appraisal *models.Appraisal) bool {
	if actor == nil || appraisal == nil {
		return false
	}
	if actor.ID == appraisal.TeacherID {
		return true
	}
	switch actor.Role {
	case models.RoleIQAC, models.RolePrincipal, models.RoleAdmin:
		return true
	case models.RoleHOD:
		return actor.Department == appraisal.Department
	}
	return false
}

// CanEdit reports whether the actor may mutate part content: only the owning
// teacher while the record is still in DRAFT.
func CanEdit(actor *models.User, appraisal *models.Appraisal) bool {
	if !CanView(actor, appraisal) {
		return false
	}
	return appraisal.Status == models.StatusDraft && actor.ID == appraisal.TeacherID
}

// CanOverride reports whether the actor may apply an administrative override.
func CanOverride(actor *models.User) bool {
	return actor != nil && actor.Role == models.RoleAdmin
}

// Resolve consults the transition table for the target status of an action.
// An action unknown from the current status yields ErrInvalidTransition; an
// action that exists but fails role, ownership, or department checks yields
// ErrForbidden. OVERRIDE is not table-driven and is resolved by the caller.
func Resolve(actor *models.User, appraisal *models.Appraisal, action models.WorkflowAction) (models.AppraisalStatus, error) {
	if actor == nil || appraisal == nil {
		return "", appErrors.ErrForbidden
	}

	matched := false
	for _, rule := range transitionTable {
		if rule.from != appraisal.Status || rule.action != action {
			continue
		}
		matched = true
		if !roleAllowed(rule.roles, actor.Role) {
			continue
		}
		if rule.ownerOnly && actor.Role == models.RoleTeacher && actor.ID != appraisal.TeacherID {
			continue
		}
		if rule.sameDept && actor.Department != appraisal.Department {
			continue
		}
		return rule.to, nil
	}

	if matched {
		return "", appErrors.ErrForbidden
	}
	return "", appErrors.ErrInvalidTransition
}

func roleAllowed(roles []models.UserRole, role models.UserRole) bool {
	for _, allowed := range roles {
		if allowed == role {
			return true
		}
	}
	return false
}
