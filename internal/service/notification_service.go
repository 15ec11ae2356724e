package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/staff-appraisal-api/internal/models"
	"github.com/noah-isme/staff-appraisal-api/pkg/jobs"
)

// TransitionEvent is the payload handed to the notification emitter after a
// successful workflow transition.
type TransitionEvent struct {
	AppraisalID string                 `json:"appraisal_id"`
	NewStatus   models.AppraisalStatus `json:"new_status"`
	ActorRole   models.UserRole        `json:"actor_role"`
}

// Notifier is informed of state transitions. The engine treats delivery as
// fire-and-forget and never depends on the result.
type Notifier interface {
	Notify(ctx context.Context, event TransitionEvent) error
}

// NotifierFunc allows using plain functions as notifiers.
type NotifierFunc func(ctx context.Context, event TransitionEvent) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, event TransitionEvent) error {
	return f(ctx, event)
}

// LogNotifier is the default emitter: it records the event in the structured
// log, standing in for a mail or chat gateway.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a log-backed emitter.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, event TransitionEvent) error {
	n.logger.Info("appraisal transition",
		zap.String("appraisal_id", event.AppraisalID),
		zap.String("new_status", string(event.NewStatus)),
		zap.String("actor_role", string(event.ActorRole)),
	)
	return nil
}

// QueueNotifier decouples emission from delivery by dispatching events onto
// the background job queue.
type QueueNotifier struct {
	queue *jobs.Queue
}

// NewNotificationQueue builds the queue that drives the given emitter and the
// notifier that feeds it. The queue must be started by the caller.
func NewNotificationQueue(emitter Notifier, cfg jobs.QueueConfig) (*jobs.Queue, *QueueNotifier) {
	queue := jobs.NewQueue("notifications", func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(TransitionEvent)
		if !ok {
			return fmt.Errorf("unexpected notification payload %T", job.Payload)
		}
		return emitter.Notify(ctx, event)
	}, cfg)
	return queue, &QueueNotifier{queue: queue}
}

// Notify implements Notifier by enqueueing the event.
func (n *QueueNotifier) Notify(_ context.Context, event TransitionEvent) error {
	return n.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "appraisal.transition",
		Payload: event,
	})
}
