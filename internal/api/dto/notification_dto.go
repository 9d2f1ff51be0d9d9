package dto

import (
	"time"

	"github.com/spec-kit/ops-console/internal/domain"
)

// NotificationResponse response.
type NotificationResponse struct {
	ID        string                  `json:"id"`
	Type      domain.NotificationType `json:"type"`
	EntityID  string                  `json:"entity_id"`
	Message   string                  `json:"message"`
	ReadAt    *time.Time              `json:"read_at"`
	CreatedAt time.Time               `json:"created_at"`
}
