package domain

import "time"

// NotificationType enumerates supported notification kinds.
type NotificationType string

const (
	NotificationTaskAssigned NotificationType = "task_assigned"
	NotificationTaskOverdue  NotificationType = "task_overdue"
)

// Notification is an inbox entry for a user. The core only writes
// notifications; reading the inbox belongs to the UI layer.
type Notification struct {
	ID        string
	UserEmail string
	Type      NotificationType
	EntityID  string
	Message   string
	ReadAt    *time.Time
	CreatedAt time.Time
}
