package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/staff-appraisal-api/internal/dto"
	"github.com/noah-isme/staff-appraisal-api/internal/models"
	"github.com/noah-isme/staff-appraisal-api/internal/policy"
	"github.com/noah-isme/staff-appraisal-api/internal/scoring"
	appErrors "github.com/noah-isme/staff-appraisal-api/pkg/errors"
)

type appraisalStore interface {
	Create(ctx context.Context, appraisal *models.Appraisal) error
	GetByID(ctx context.Context, id string) (*models.Appraisal, error)
	FindByTeacherAndCycle(ctx context.Context, teacherID, cycleID string) (*models.Appraisal, error)
	Save(ctx context.Context, appraisal *models.Appraisal, expectedVersion int64, entries []models.HistoryEntry) error
	History(ctx context.Context, appraisalID string) ([]models.HistoryEntry, error)
}

type identityReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type appraisalCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// AppraisalService is the workflow engine: it owns every mutation of an
// appraisal's status, parts, totals, and history, and recomputes totals on
// each save so parts and totals never disagree in the store.
type AppraisalService struct {
	store     appraisalStore
	users     identityReader
	audit     auditLogger
	cache     appraisalCache
	cacheTTL  time.Duration
	notifier  Notifier
	metrics   transitionRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

type transitionRecorder interface {
	ObserveTransition(action models.WorkflowAction, to models.AppraisalStatus)
}

// AppraisalServiceOption configures the service.
type AppraisalServiceOption func(*AppraisalService)

// WithNotifier sets the transition notification emitter.
func WithNotifier(notifier Notifier) AppraisalServiceOption {
	return func(s *AppraisalService) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// WithAppraisalCache enables read caching of resolved appraisal views.
func WithAppraisalCache(cache appraisalCache, ttl time.Duration) AppraisalServiceOption {
	return func(s *AppraisalService) {
		if cache != nil && ttl > 0 {
			s.cache = cache
			s.cacheTTL = ttl
		}
	}
}

// WithTransitionMetrics records workflow transitions on the metrics service.
func WithTransitionMetrics(recorder transitionRecorder) AppraisalServiceOption {
	return func(s *AppraisalService) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// NewAppraisalService constructs the workflow engine.
func NewAppraisalService(store appraisalStore, users identityReader, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...AppraisalServiceOption) *AppraisalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AppraisalService{
		store:     store,
		users:     users,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create provisions a DRAFT appraisal for a teacher's cycle participation.
func (s *AppraisalService) Create(ctx context.Context, req dto.CreateAppraisalRequest, actor *models.JWTClaims) (*models.Appraisal, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appraisal payload")
	}

	teacher, err := s.users.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrValidation, "appraisals can only be provisioned for teachers")
	}

	if existing, err := s.store.FindByTeacherAndCycle(ctx, req.TeacherID, req.CycleID); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "appraisal already exists for this cycle")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing appraisal")
	}

	appraisal := &models.Appraisal{
		TeacherID:  req.TeacherID,
		CycleID:    req.CycleID,
		Department: teacher.Department,
		Status:     models.StatusDraft,
		Parts:      make(map[models.PartKey]models.PartValues),
		Totals: models.Totals{
			Parts:   make(map[models.PartKey]models.PartScore),
			Overall: models.PartScore{Max: scoring.OverallMax()},
		},
	}
	if err := s.store.Create(ctx, appraisal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appraisal")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionAppraisalCreate, appraisal.ID, map[string]interface{}{
		"teacher_id": appraisal.TeacherID,
		"cycle_id":   appraisal.CycleID,
	})
	return appraisal, nil
}

// GetCurrent returns the acting teacher's appraisal for a cycle, or nil when
// their participation has not been provisioned yet.
func (s *AppraisalService) GetCurrent(ctx context.Context, actor *models.JWTClaims, cycleID string) (*models.Appraisal, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if strings.TrimSpace(cycleID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cycle_id is required")
	}
	appraisal, err := s.store.FindByTeacherAndCycle(ctx, actor.UserID, cycleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appraisal")
	}
	return appraisal, nil
}

// GetFull returns the appraisal with every part resolved against its declared
// field set, for form rendering.
func (s *AppraisalService) GetFull(ctx context.Context, appraisalID string, actor *models.JWTClaims) (*dto.AppraisalDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	if s.cache != nil {
		var cached dto.AppraisalDetail
		if err := s.cache.Get(ctx, cacheKey(appraisalID), &cached); err == nil && cached.Appraisal != nil {
			if !policy.CanView(actorUser(actor), cached.Appraisal) {
				return nil, appErrors.ErrForbidden
			}
			return &cached, nil
		}
	}

	appraisal, err := s.load(ctx, appraisalID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actorUser(actor), appraisal) {
		return nil, appErrors.ErrForbidden
	}

	detail := &dto.AppraisalDetail{Appraisal: appraisal, Parts: resolveParts(appraisal)}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(appraisalID), detail, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache appraisal detail", zap.Error(err))
		}
	}
	return detail, nil
}

// SavePart writes one section's raw values, recomputes that part's score and
// the overall total, and persists both atomically. It never changes status.
func (s *AppraisalService) SavePart(ctx context.Context, appraisalID string, key models.PartKey, req dto.SavePartRequest, actor *models.JWTClaims) (*models.Appraisal, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !models.ValidPartKey(key) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown part key")
	}
	if req.Values == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "values are required")
	}

	appraisal, err := s.load(ctx, appraisalID)
	if err != nil {
		return nil, err
	}
	user := actorUser(actor)
	if !policy.CanView(user, appraisal) {
		return nil, appErrors.ErrForbidden
	}
	if appraisal.Status != models.StatusDraft {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "parts can only be saved while the appraisal is in draft")
	}
	if !policy.CanEdit(user, appraisal) {
		return nil, appErrors.ErrForbidden
	}
	if err := scoring.ValidateShape(key, req.Values); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	expected := appraisal.Version
	if req.ExpectedVersion != nil {
		expected = *req.ExpectedVersion
	}

	values := make(models.PartValues, len(req.Values))
	for field, value := range req.Values {
		values[field] = value
	}
	appraisal.Parts[key] = values
	appraisal.Totals.Parts[key] = scoring.Calculate(key, values)
	recomputeOverall(appraisal)

	if err := s.store.Save(ctx, appraisal, expected, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "appraisal was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save part")
	}
	s.invalidate(ctx, appraisal.ID)
	s.emitAudit(ctx, actor.UserID, models.AuditActionAppraisalSavePart, appraisal.ID, map[string]interface{}{
		"part":  key,
		"score": appraisal.Totals.Parts[key].Score,
	})
	return appraisal, nil
}

// RecalculateTotals recomputes every saved part's score from its raw values.
// It is an idempotent repair operation: an already-consistent record is
// returned without a write, and terminal records are never written.
func (s *AppraisalService) RecalculateTotals(ctx context.Context, appraisalID string, actor *models.JWTClaims) (*models.Totals, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	appraisal, err := s.load(ctx, appraisalID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actorUser(actor), appraisal) {
		return nil, appErrors.ErrForbidden
	}

	recomputed := models.Totals{
		Parts:   make(map[models.PartKey]models.PartScore, len(appraisal.Parts)),
		Overall: models.PartScore{Max: scoring.OverallMax()},
	}
	for key, values := range appraisal.Parts {
		score := scoring.Calculate(key, values)
		recomputed.Parts[key] = score
		recomputed.Overall.Score += score.Score
	}

	if totalsEqual(appraisal.Totals, recomputed) || appraisal.Status.Terminal() {
		return &appraisal.Totals, nil
	}

	appraisal.Totals = recomputed
	if err := s.store.Save(ctx, appraisal, appraisal.Version, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "appraisal was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist totals")
	}
	s.invalidate(ctx, appraisal.ID)
	return &appraisal.Totals, nil
}

// Transition applies a workflow action, appends exactly one history entry, and
// notifies the emitter after the state change is committed.
func (s *AppraisalService) Transition(ctx context.Context, appraisalID string, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Appraisal, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	action := models.WorkflowAction(strings.ToUpper(strings.TrimSpace(req.Action)))
	if action == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "action is required")
	}

	appraisal, err := s.load(ctx, appraisalID)
	if err != nil {
		return nil, err
	}
	user := actorUser(actor)
	if !policy.CanView(user, appraisal) {
		return nil, appErrors.ErrForbidden
	}

	var target models.AppraisalStatus
	if action == models.ActionOverride {
		target, err = s.resolveOverride(user, req)
		if err != nil {
			return nil, err
		}
	} else {
		target, err = policy.Resolve(user, appraisal, action)
		if err != nil {
			return nil, err
		}
	}

	expected := appraisal.Version
	if req.ExpectedVersion != nil {
		expected = *req.ExpectedVersion
	}

	entry := models.HistoryEntry{
		AppraisalID: appraisal.ID,
		Seq:         len(appraisal.History) + 1,
		FromStatus:  appraisal.Status,
		ToStatus:    target,
		ActorID:     actor.UserID,
		ActorRole:   actor.Role,
	}
	if comment := strings.TrimSpace(req.Comment); comment != "" {
		entry.Comment = &comment
	}

	appraisal.Status = target
	if err := s.store.Save(ctx, appraisal, expected, []models.HistoryEntry{entry}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "appraisal was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
	}
	appraisal.History = append(appraisal.History, entry)

	s.invalidate(ctx, appraisal.ID)
	if s.metrics != nil {
		s.metrics.ObserveTransition(action, target)
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionAppraisalTransition, appraisal.ID, map[string]interface{}{
		"action": action,
		"from":   entry.FromStatus,
		"to":     entry.ToStatus,
	})
	s.notify(ctx, TransitionEvent{
		AppraisalID: appraisal.ID,
		NewStatus:   target,
		ActorRole:   actor.Role,
	})
	return appraisal, nil
}

// History returns the append-only transition trail.
func (s *AppraisalService) History(ctx context.Context, appraisalID string, actor *models.JWTClaims) ([]models.HistoryEntry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	appraisal, err := s.load(ctx, appraisalID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actorUser(actor), appraisal) {
		return nil, appErrors.ErrForbidden
	}
	return appraisal.History, nil
}

func (s *AppraisalService) resolveOverride(actor *models.User, req dto.TransitionRequest) (models.AppraisalStatus, error) {
	if !policy.CanOverride(actor) {
		return "", appErrors.ErrForbidden
	}
	if strings.TrimSpace(req.Comment) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "override requires a comment")
	}
	target := models.AppraisalStatus(strings.ToUpper(strings.TrimSpace(req.TargetStatus)))
	if !models.ValidStatus(target) {
		return "", appErrors.Clone(appErrors.ErrValidation, "override requires a valid target_status")
	}
	return target, nil
}

func (s *AppraisalService) load(ctx context.Context, appraisalID string) (*models.Appraisal, error) {
	appraisal, err := s.store.GetByID(ctx, appraisalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appraisal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appraisal")
	}
	return appraisal, nil
}

// notify dispatches the transition event without coupling the state change to
// delivery: failures are logged, never propagated.
func (s *AppraisalService) notify(ctx context.Context, event TransitionEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("failed to dispatch transition notification",
			zap.String("appraisal_id", event.AppraisalID),
			zap.Error(err))
	}
}

func (s *AppraisalService) invalidate(ctx context.Context, appraisalID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(appraisalID)); err != nil {
		s.logger.Warn("failed to invalidate appraisal cache", zap.Error(err))
	}
}

func (s *AppraisalService) emitAudit(ctx context.Context, actorID, action, appraisalID string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(details)
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "appraisal",
		ResourceID: &appraisalID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "appraisal-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func actorUser(claims *models.JWTClaims) *models.User {
	if claims == nil {
		return nil
	}
	return &models.User{
		ID:         claims.UserID,
		Role:       claims.Role,
		Department: claims.Department,
		Email:      claims.Email,
		FullName:   claims.FullName,
	}
}

func recomputeOverall(appraisal *models.Appraisal) {
	overall := models.PartScore{Max: scoring.OverallMax()}
	for _, score := range appraisal.Totals.Parts {
		overall.Score += score.Score
	}
	appraisal.Totals.Overall = overall
}

func totalsEqual(a, b models.Totals) bool {
	if a.Overall != b.Overall || len(a.Parts) != len(b.Parts) {
		return false
	}
	for key, score := range a.Parts {
		if b.Parts[key] != score {
			return false
		}
	}
	return true
}

func cacheKey(appraisalID string) string {
	return "appraisal:detail:" + appraisalID
}

func resolveParts(appraisal *models.Appraisal) []dto.PartView {
	views := make([]dto.PartView, 0, len(models.PartKeys))
	for _, key := range models.PartKeys {
		values, saved := appraisal.Parts[key]
		view := dto.PartView{
			Key:   key,
			Saved: saved,
			Score: models.PartScore{Max: scoring.PartMax(key)},
		}
		for _, field := range scoring.Fields(key) {
			fv := dto.FieldView{Name: field.Name, Max: field.Max}
			if saved {
				if value, ok := values[field.Name]; ok {
					v := value
					fv.Value = &v
				}
			}
			view.Fields = append(view.Fields, fv)
		}
		if saved {
			if score, ok := appraisal.Totals.Parts[key]; ok {
				view.Score = score
			}
		}
		views = append(views, view)
	}
	return views
}
