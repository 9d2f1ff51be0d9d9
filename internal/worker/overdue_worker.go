package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ops-console/internal/events"
	"github.com/spec-kit/ops-console/internal/service"
)

// StartNotificationWorker subscribes the notification service to the event
// stream.
func StartNotificationWorker(notificationService *service.NotificationService, dispatcher events.Dispatcher) {
	if notificationService == nil || dispatcher == nil {
		return
	}
	notificationService.RegisterHandlers(dispatcher)
}

// StartOverdueSweep runs the overdue task check on a fixed interval until the
// context is cancelled. One sweep runs immediately on start.
func StartOverdueSweep(ctx context.Context, taskService *service.TaskService, interval time.Duration, logger *zap.Logger) {
	if taskService == nil || interval <= 0 {
		return
	}
	go func() {
		sweep := func() {
			if _, err := taskService.CheckForOverdueTasks(ctx); err != nil {
				logger.Error("overdue sweep failed", zap.Error(err))
			}
		}
		sweep()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweep()
			}
		}
	}()
}
