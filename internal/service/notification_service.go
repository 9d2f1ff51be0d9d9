package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-console/internal/domain"
	"github.com/spec-kit/ops-console/internal/events"
	"github.com/spec-kit/ops-console/internal/repository"
	apperrors "github.com/spec-kit/ops-console/pkg/util"
)

// NotificationService materializes notifications from task events. Overdue
// notifications are deduplicated twice: a short-lived redis guard absorbs the
// hot path when the overdue sweep fires repeatedly, and a store existence
// check is the durable backstop. Assignment notifications are not deduped;
// every distinct (re)assignment notifies.
type NotificationService struct {
	notifications repository.NotificationRepository
	redisClient   *redis.Client
	guardTTL      time.Duration
	logger        *zap.Logger
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	// RedisClient is optional; nil disables the fast-path guard.
	RedisClient *redis.Client
	GuardTTL    time.Duration
	Logger      *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	ttl := deps.GuardTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &NotificationService{
		notifications: deps.NotificationRepo,
		redisClient:   deps.RedisClient,
		guardTTL:      ttl,
		logger:        deps.Logger,
	}
}

// RegisterHandlers subscribes the service to the events it consumes.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTaskAssigned, s.handleTaskAssigned)
	dispatcher.Subscribe(events.EventTaskOverdue, s.handleTaskOverdue)
}

func (s *NotificationService) handleTaskAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	notification := &domain.Notification{
		UserEmail: payload.AssignedTo,
		Type:      domain.NotificationTaskAssigned,
		EntityID:  payload.TaskID,
		Message:   fmt.Sprintf("You have been assigned task %q", payload.Title),
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Error("failed to persist assignment notification",
			zap.String("task_id", payload.TaskID),
			zap.String("user_email", payload.AssignedTo),
			zap.Error(err))
		return err
	}
	return nil
}

func (s *NotificationService) handleTaskOverdue(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskOverduePayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}

	if s.redisClient != nil {
		key := fmt.Sprintf("overdue_guard:%s:%s", payload.AssignedTo, payload.TaskID)
		armed, err := s.redisClient.SetNX(ctx, key, 1, s.guardTTL).Result()
		if err != nil {
			// Guard unavailability falls through to the store check.
			s.logger.Warn("overdue guard unavailable", zap.Error(err))
		} else if !armed {
			return nil
		}
	}

	exists, err := s.notifications.Exists(ctx, payload.AssignedTo, domain.NotificationTaskOverdue, payload.TaskID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	notification := &domain.Notification{
		UserEmail: payload.AssignedTo,
		Type:      domain.NotificationTaskOverdue,
		EntityID:  payload.TaskID,
		Message:   fmt.Sprintf("Task %q is overdue (due %s)", payload.Title, payload.DueAt.Format(time.RFC3339)),
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Error("failed to persist overdue notification",
			zap.String("task_id", payload.TaskID),
			zap.String("user_email", payload.AssignedTo),
			zap.Error(err))
		return err
	}
	return nil
}

// ListForUser returns the user's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userEmail string, limit, offset int) ([]domain.Notification, error) {
	notifications, err := s.notifications.ListForUser(ctx, userEmail, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return notifications, nil
}

// MarkRead marks a notification as read. Re-marking is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	if err := s.notifications.MarkRead(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", map[string]any{"notification_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}
