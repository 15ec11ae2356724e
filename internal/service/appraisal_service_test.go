package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/staff-appraisal-api/internal/dto"
	"github.com/noah-isme/staff-appraisal-api/internal/models"
	"github.com/noah-isme/staff-appraisal-api/internal/scoring"
	appErrors "github.com/noah-isme/staff-appraisal-api/pkg/errors"
)

type appraisalStoreStub struct {
	mu        sync.Mutex
	appraisal *models.Appraisal
	saves     int
}

func (s *appraisalStoreStub) Create(_ context.Context, appraisal *models.Appraisal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	appraisal.ID = uuid.NewString()
	appraisal.Version = 1
	s.appraisal = appraisal.Clone()
	return nil
}

func (s *appraisalStoreStub) GetByID(_ context.Context, id string) (*models.Appraisal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appraisal == nil || s.appraisal.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.appraisal.Clone(), nil
}

func (s *appraisalStoreStub) FindByTeacherAndCycle(_ context.Context, teacherID, cycleID string) (*models.Appraisal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appraisal == nil || s.appraisal.TeacherID != teacherID || s.appraisal.CycleID != cycleID {
		return nil, sql.ErrNoRows
	}
	return s.appraisal.Clone(), nil
}

// Save applies the same version guard as the database layer: a stale expected
// version is reported as sql.ErrNoRows.
func (s *appraisalStoreStub) Save(_ context.Context, appraisal *models.Appraisal, expectedVersion int64, entries []models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appraisal == nil || s.appraisal.ID != appraisal.ID || s.appraisal.Version != expectedVersion {
		return sql.ErrNoRows
	}
	s.saves++
	stored := appraisal.Clone()
	stored.Version = expectedVersion + 1
	stored.History = append(append([]models.HistoryEntry(nil), s.appraisal.History...), entries...)
	s.appraisal = stored
	appraisal.Version = stored.Version
	return nil
}

func (s *appraisalStoreStub) History(_ context.Context, appraisalID string) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appraisal == nil || s.appraisal.ID != appraisalID {
		return nil, sql.ErrNoRows
	}
	return append([]models.HistoryEntry(nil), s.appraisal.History...), nil
}

type identityReaderStub struct {
	users map[string]*models.User
}

func (s *identityReaderStub) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type auditLoggerStub struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (s *auditLoggerStub) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return nil
}

type recorderStub struct {
	actions []models.WorkflowAction
	targets []models.AppraisalStatus
}

func (s *recorderStub) ObserveTransition(action models.WorkflowAction, to models.AppraisalStatus) {
	s.actions = append(s.actions, action)
	s.targets = append(s.targets, to)
}

func claimsFor(user *models.User) *models.JWTClaims {
	return &models.JWTClaims{
		UserID:     user.ID,
		Role:       user.Role,
		Department: user.Department,
		Email:      user.Email,
	}
}

var (
	ownerUser     = &models.User{ID: "teacher-1", Role: models.RoleTeacher, Department: "Science", Email: "owner@school.test"}
	otherTeacher  = &models.User{ID: "teacher-2", Role: models.RoleTeacher, Department: "Science", Email: "other@school.test"}
	scienceHOD    = &models.User{ID: "hod-1", Role: models.RoleHOD, Department: "Science"}
	artsHOD       = &models.User{ID: "hod-2", Role: models.RoleHOD, Department: "Arts"}
	iqacUser      = &models.User{ID: "iqac-1", Role: models.RoleIQAC}
	principalUser = &models.User{ID: "prin-1", Role: models.RolePrincipal}
	adminUser     = &models.User{ID: "admin-1", Role: models.RoleAdmin}
)

func seedAppraisal(store *appraisalStoreStub, status models.AppraisalStatus) *models.Appraisal {
	appraisal := &models.Appraisal{
		ID:         "apr-1",
		TeacherID:  ownerUser.ID,
		CycleID:    "cycle-2026",
		Department: ownerUser.Department,
		Status:     status,
		Parts:      make(map[models.PartKey]models.PartValues),
		Totals: models.Totals{
			Parts:   make(map[models.PartKey]models.PartScore),
			Overall: models.PartScore{Max: scoring.OverallMax()},
		},
		Version: 1,
	}
	store.appraisal = appraisal.Clone()
	return appraisal
}

func partDValues() map[string]float64 {
	return map[string]float64{
		"attendance":     4,
		"responsibility": 3,
		"honesty":        4,
		"teamwork":       2,
		"inclusiveness":  4,
		"conduct":        3,
	}
}

func requireCode(t *testing.T, err error, want *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want.Code, appErrors.FromError(err).Code)
}

func TestCreateRequiresAdmin(t *testing.T) {
	store := &appraisalStoreStub{}
	users := &identityReaderStub{users: map[string]*models.User{ownerUser.ID: ownerUser}}
	svc := NewAppraisalService(store, users, nil, nil, nil)

	req := dto.CreateAppraisalRequest{TeacherID: ownerUser.ID, CycleID: "cycle-2026"}

	_, err := svc.Create(context.Background(), req, claimsFor(scienceHOD))
	requireCode(t, err, appErrors.ErrForbidden)

	appraisal, err := svc.Create(context.Background(), req, claimsFor(adminUser))
	require.NoError(t, err)
	require.Equal(t, models.StatusDraft, appraisal.Status)
	require.Equal(t, ownerUser.Department, appraisal.Department)
	require.Equal(t, int64(1), appraisal.Version)
	require.Equal(t, scoring.OverallMax(), appraisal.Totals.Overall.Max)
}

func TestCreateRejectsDuplicateAndNonTeacher(t *testing.T) {
	store := &appraisalStoreStub{}
	users := &identityReaderStub{users: map[string]*models.User{
		ownerUser.ID:  ownerUser,
		scienceHOD.ID: scienceHOD,
	}}
	svc := NewAppraisalService(store, users, nil, nil, nil)
	seedAppraisal(store, models.StatusDraft)

	_, err := svc.Create(context.Background(), dto.CreateAppraisalRequest{TeacherID: ownerUser.ID, CycleID: "cycle-2026"}, claimsFor(adminUser))
	requireCode(t, err, appErrors.ErrConflict)

	_, err = svc.Create(context.Background(), dto.CreateAppraisalRequest{TeacherID: scienceHOD.ID, CycleID: "cycle-2026"}, claimsFor(adminUser))
	requireCode(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), dto.CreateAppraisalRequest{TeacherID: "missing", CycleID: "cycle-2026"}, claimsFor(adminUser))
	requireCode(t, err, appErrors.ErrNotFound)
}

func TestSavePartRecomputesTotals(t *testing.T) {
	store := &appraisalStoreStub{}
	audit := &auditLoggerStub{}
	svc := NewAppraisalService(store, nil, audit, nil, nil)
	seedAppraisal(store, models.StatusDraft)

	appraisal, err := svc.SavePart(context.Background(), "apr-1", models.PartD, dto.SavePartRequest{Values: partDValues()}, claimsFor(ownerUser))
	require.NoError(t, err)
	require.Equal(t, models.PartScore{Score: 20, Max: 25}, appraisal.Totals.Parts[models.PartD])
	require.Equal(t, float64(20), appraisal.Totals.Overall.Score)
	require.Equal(t, int64(2), appraisal.Version)
	require.Equal(t, models.StatusDraft, appraisal.Status)

	// overall stays the sum of committed parts
	appraisal, err = svc.SavePart(context.Background(), "apr-1", models.PartC, dto.SavePartRequest{Values: map[string]float64{
		"committee_work":     4,
		"event_organization": 3,
		"mentoring":          5,
		"admin_duties":       2,
	}}, claimsFor(ownerUser))
	require.NoError(t, err)

	var sum float64
	for _, score := range appraisal.Totals.Parts {
		sum += score.Score
	}
	require.Equal(t, sum, appraisal.Totals.Overall.Score)
	require.Equal(t, int64(3), appraisal.Version)
	require.Len(t, audit.logs, 2)
	require.Equal(t, models.AuditActionAppraisalSavePart, audit.logs[0].Action)
}

func TestSavePartOnlyInDraft(t *testing.T) {
	store := &appraisalStoreStub{}
	svc := NewAppraisalService(store, nil, nil, nil, nil)
	seedAppraisal(store, models.StatusSubmitted)

	_, err := svc.SavePart(context.Background(), "apr-1", models.PartD, dto.SavePartRequest{Values: partDValues()}, claimsFor(ownerUser))
	requireCode(t, err, appErrors.ErrInvalidState)
	require.Zero(t, store.saves)
}

func TestSavePartForbiddenForNonOwner(t *testing.T) {
	store := &appraisalStoreStub{}
	svc := NewAppraisalService(store, nil, nil, nil, nil)
	seedAppraisal(store, models.StatusDraft)

	_, err := svc.SavePart(context.Background(), "apr-1", models.PartD, dto.SavePartRequest{Values: partDValues()}, claimsFor(otherTeacher))
	requireCode(t, err, appErrors.ErrForbidden)

	// viewers who are not the owner cannot edit either
	_, err = svc.SavePart(context.Background(), "apr-1", models.PartD, dto.SavePartRequest{Values: partDValues()}, claimsFor(scienceHOD))
	requireCode(t, err, appErrors.ErrForbidden)
	require.Zero(t, store.saves)
}

func TestSavePartShapeValidation(t *testing.T) {
	store := &appraisalStoreStub{}
	svc := NewAppraisalService(store, nil, nil, nil, nil)
	seedAppraisal(store, models.StatusDraft)

	values := partDValues()
	delete(values, "conduct")
	_, err := svc.SavePart(context.Background(), "apr-1", models.PartD, dto.SavePartRequest{Values: values}, claimsFor(ownerUser))
	requireCode(t, err, appErrors.ErrValidation)

	values = partDValues()
	values["charisma"] = 3
	_, err = svc.SavePart(context.Background(), "apr-1", models.PartD, dto.SavePartRequest{Values: values}, claimsFor(ownerUser))
	requireCode(t, err, appErrors.ErrValidation)
	require.Zero(t, store.saves)
}

func TestSavePartVersionConflict(t *testing.T) {
	store := &appraisalStoreStub{}
	svc := NewAppraisalService(store, nil, nil, nil, nil)
	seedAppraisal(store, models.StatusDraft)

	stale := int64(0)
	_, err := svc.SavePart(context.Background(), "apr-1", models.PartD, dto.SavePartRequest{Values: partDValues(), ExpectedVersion: &stale}, claimsFor(ownerUser))
	requireCode(t, err, appErrors.ErrConflict)

	current := int64(1)
	_, err = svc.SavePart(context.Background(), "apr-1", models.PartD, dto.SavePartRequest{Values: partDValues(), ExpectedVersion: &current}, claimsFor(ownerUser))
	require.NoError(t, err)
}

func TestTransitionSubmitAppendsHistory(t *testing.T) {
	store := &appraisalStoreStub{}
	audit := &auditLoggerStub{}
	recorder := &recorderStub{}
	var events []TransitionEvent
	notifier := NotifierFunc(func(_ context.Context, event TransitionEvent) error {
		events = append(events, event)
		return nil
	})
	svc := NewAppraisalService(store, nil, audit, nil, nil,
		WithNotifier(notifier),
		WithTransitionMetrics(recorder),
	)
	seedAppraisal(store, models.StatusDraft)

	appraisal, err := svc.Transition(context.Background(), "apr-1", dto.TransitionRequest{Action: "submit"}, claimsFor(ownerUser))
	require.NoError(t, err)
	require.Equal(t, models.StatusSubmitted, appraisal.Status)
	require.Equal(t, int64(2), appraisal.Version)

	require.Len(t, appraisal.History, 1)
	entry := appraisal.History[0]
	require.Equal(t, 1, entry.Seq)
	require.Equal(t, models.StatusDraft, entry.FromStatus)
	require.Equal(t, models.StatusSubmitted, entry.ToStatus)
	require.Equal(t, ownerUser.ID, entry.ActorID)
	require.Nil(t, entry.Comment)

	require.Equal(t, []models.WorkflowAction{models.ActionSubmit}, recorder.actions)
	require.Len(t, events, 1)
	require.Equal(t, models.StatusSubmitted, events[0].NewStatus)
	require.Len(t, audit.logs, 1)
}

func TestTransitionDepartmentScoping(t *testing.T) {
	store := &appraisalStoreStub{}
	svc := NewAppraisalService(store, nil, nil, nil, nil)
	seedAppraisal(store, models.StatusSubmitted)

	_, err := svc.Transition(context.Background(), "apr-1", dto.TransitionRequest{Action: "REVIEW"}, claimsFor(artsHOD))
	requireCode(t, err, appErrors.ErrForbidden)

	appraisal, err := svc.Transition(context.Background(), "apr-1", dto.TransitionRequest{Action: "REVIEW", Comment: "good portfolio"}, claimsFor(scienceHOD))
	require.NoError(t, err)
	require.Equal(t, models.StatusHODReviewed, appraisal.Status)
	require.NotNil(t, appraisal.History[0].Comment)
	require.Equal(t, "good portfolio", *appraisal.History[0].Comment)
}

func TestTransitionFullLifecycle(t *testing.T) {
	store := &appraisalStoreStub{}
	svc := NewAppraisalService(store, nil, nil, nil, nil)
	seedAppraisal(store, models.StatusDraft)

	steps := []struct {
		actor  *models.User
		action string
		status models.AppraisalStatus
	}{
		{ownerUser, "SUBMIT", models.StatusSubmitted},
		{scienceHOD, "REVIEW", models.StatusHODReviewed},
		{iqacUser, "REVIEW", models.StatusIQACReviewed},
		{principalUser, "APPROVE", models.StatusApproved},
		{adminUser, "LOCK", models.StatusLocked},
	}
	for _, step := range steps {
		appraisal, err := svc.Transition(context.Background(), "apr-1", dto.TransitionRequest{Action: step.action}, claimsFor(step.actor))
		require.NoError(t, err, step.action)
		require.Equal(t, step.status, appraisal.Status)
	}

	history, err := svc.History(context.Background(), "apr-1", claimsFor(adminUser))
	require.NoError(t, err)
	require.Len(t, history, len(steps))
	for i, entry := range history {
		require.Equal(t, i+1, entry.Seq)
		require.Equal(t, steps[i].status, entry.ToStatus)
	}

	_, err = svc.Transition(context.Background(), "apr-1", dto.TransitionRequest{Action: "SUBMIT"}, claimsFor(ownerUser))
	requireCode(t, err, appErrors.ErrInvalidTransition)
}

func TestTransitionOverride(t *testing.T) {
	store := &appraisalStoreStub{}
	svc := NewAppraisalService(store, nil, nil, nil, nil)
	seedAppraisal(store, models.StatusLocked)

	_, err := svc.Transition(context.Background(), "apr-1", dto.TransitionRequest{Action: "OVERRIDE", TargetStatus: "DRAFT", Comment: "unlock"}, claimsFor(principalUser))
	requireCode(t, err, appErrors.ErrForbidden)

	_, err = svc.Transition(context.Background(), "apr-1", dto.TransitionRequest{Action: "OVERRIDE", TargetStatus: "DRAFT"}, claimsFor(adminUser))
	requireCode(t, err, appErrors.ErrValidation)

	_, err = svc.Transition(context.Background(), "apr-1", dto.TransitionRequest{Action: "OVERRIDE", TargetStatus: "PENDING", Comment: "unlock"}, claimsFor(adminUser))
	requireCode(t, err, appErrors.ErrValidation)

	appraisal, err := svc.Transition(context.Background(), "apr-1", dto.TransitionRequest{Action: "OVERRIDE", TargetStatus: "draft", Comment: "unlock for correction"}, claimsFor(adminUser))
	require.NoError(t, err)
	require.Equal(t, models.StatusDraft, appraisal.Status)
	require.Equal(t, models.RoleAdmin, appraisal.History[0].ActorRole)
	require.Equal(t, "unlock for correction", *appraisal.History[0].Comment)
}

func TestReopenKeepsPartsAndHistory(t *testing.T) {
	store := &appraisalStoreStub{}
	svc := NewAppraisalService(store, nil, nil, nil, nil)
	seedAppraisal(store, models.StatusDraft)

	_, err := svc.SavePart(context.Background(), "apr-1", models.PartD, dto.SavePartRequest{Values: partDValues()}, claimsFor(ownerUser))
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), "apr-1", dto.TransitionRequest{Action: "SUBMIT"}, claimsFor(ownerUser))
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), "apr-1", dto.TransitionRequest{Action: "REJECT", Comment: "incomplete evidence"}, claimsFor(scienceHOD))
	require.NoError(t, err)

	appraisal, err := svc.Transition(context.Background(), "apr-1", dto.TransitionRequest{Action: "REOPEN"}, claimsFor(ownerUser))
	require.NoError(t, err)
	require.Equal(t, models.StatusDraft, appraisal.Status)
	require.Equal(t, models.PartScore{Score: 20, Max: 25}, appraisal.Totals.Parts[models.PartD])
	require.Len(t, appraisal.History, 3)
	require.Equal(t, models.StatusRejected, appraisal.History[1].ToStatus)
	require.Equal(t, models.StatusDraft, appraisal.History[2].ToStatus)
}

func TestRecalculateTotalsIdempotent(t *testing.T) {
	store := &appraisalStoreStub{}
	svc := NewAppraisalService(store, nil, nil, nil, nil)
	seedAppraisal(store, models.StatusDraft)

	_, err := svc.SavePart(context.Background(), "apr-1", models.PartD, dto.SavePartRequest{Values: partDValues()}, claimsFor(ownerUser))
	require.NoError(t, err)
	savesBefore := store.saves

	totals, err := svc.RecalculateTotals(context.Background(), "apr-1", claimsFor(ownerUser))
	require.NoError(t, err)
	require.Equal(t, float64(20), totals.Overall.Score)
	require.Equal(t, savesBefore, store.saves)
}

func TestRecalculateTotalsRepairsDrift(t *testing.T) {
	store := &appraisalStoreStub{}
	svc := NewAppraisalService(store, nil, nil, nil, nil)
	seedAppraisal(store, models.StatusDraft)

	_, err := svc.SavePart(context.Background(), "apr-1", models.PartD, dto.SavePartRequest{Values: partDValues()}, claimsFor(ownerUser))
	require.NoError(t, err)

	// corrupt the stored totals, leaving raw values intact
	store.mu.Lock()
	store.appraisal.Totals.Parts[models.PartD] = models.PartScore{Score: 99, Max: 25}
	store.appraisal.Totals.Overall.Score = 99
	store.mu.Unlock()

	totals, err := svc.RecalculateTotals(context.Background(), "apr-1", claimsFor(ownerUser))
	require.NoError(t, err)
	require.Equal(t, models.PartScore{Score: 20, Max: 25}, totals.Parts[models.PartD])
	require.Equal(t, float64(20), totals.Overall.Score)
}

func TestRecalculateTotalsNeverWritesTerminalRecords(t *testing.T) {
	store := &appraisalStoreStub{}
	svc := NewAppraisalService(store, nil, nil, nil, nil)
	appraisal := seedAppraisal(store, models.StatusApproved)
	appraisal.Parts[models.PartD] = partDValues()
	appraisal.Totals.Parts[models.PartD] = models.PartScore{Score: 99, Max: 25}
	store.appraisal = appraisal.Clone()

	totals, err := svc.RecalculateTotals(context.Background(), "apr-1", claimsFor(adminUser))
	require.NoError(t, err)
	require.Zero(t, store.saves)
	// stored totals are reported as-is; terminal records stay untouched
	require.Equal(t, float64(99), totals.Parts[models.PartD].Score)
}

func TestGetCurrentReturnsNilWhenUnprovisioned(t *testing.T) {
	store := &appraisalStoreStub{}
	svc := NewAppraisalService(store, nil, nil, nil, nil)

	appraisal, err := svc.GetCurrent(context.Background(), claimsFor(ownerUser), "cycle-2026")
	require.NoError(t, err)
	require.Nil(t, appraisal)

	_, err = svc.GetCurrent(context.Background(), claimsFor(ownerUser), "  ")
	requireCode(t, err, appErrors.ErrValidation)
}

func TestGetFullResolvesEveryPart(t *testing.T) {
	store := &appraisalStoreStub{}
	svc := NewAppraisalService(store, nil, nil, nil, nil)
	seedAppraisal(store, models.StatusDraft)

	_, err := svc.SavePart(context.Background(), "apr-1", models.PartD, dto.SavePartRequest{Values: partDValues()}, claimsFor(ownerUser))
	require.NoError(t, err)

	detail, err := svc.GetFull(context.Background(), "apr-1", claimsFor(ownerUser))
	require.NoError(t, err)
	require.Len(t, detail.Parts, len(models.PartKeys))
	for _, part := range detail.Parts {
		if part.Key == models.PartD {
			require.True(t, part.Saved)
			require.Equal(t, models.PartScore{Score: 20, Max: 25}, part.Score)
			continue
		}
		require.False(t, part.Saved)
		require.Equal(t, scoring.PartMax(part.Key), part.Score.Max)
	}

	_, err = svc.GetFull(context.Background(), "apr-1", claimsFor(otherTeacher))
	requireCode(t, err, appErrors.ErrForbidden)
}

func TestHistoryRequiresViewer(t *testing.T) {
	store := &appraisalStoreStub{}
	svc := NewAppraisalService(store, nil, nil, nil, nil)
	seedAppraisal(store, models.StatusDraft)

	_, err := svc.History(context.Background(), "apr-1", claimsFor(otherTeacher))
	requireCode(t, err, appErrors.ErrForbidden)

	_, err = svc.History(context.Background(), "missing", claimsFor(adminUser))
	requireCode(t, err, appErrors.ErrNotFound)
}
