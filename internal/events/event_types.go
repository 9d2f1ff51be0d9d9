package events

import (
	"time"

	"github.com/spec-kit/ops-console/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIncidentCreated   EventType = "incident_created"
	EventTaskAssigned      EventType = "task_assigned"
	EventTaskStatusChanged EventType = "task_status_changed"
	EventTaskOverdue       EventType = "task_overdue"
	EventPlaybookForked    EventType = "playbook_forked"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	ActorEmail string      `json:"actor_email,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// IncidentCreatedPayload payload.
type IncidentCreatedPayload struct {
	IncidentID   string  `json:"incident_id"`
	IncidentType string  `json:"incident_type"`
	PlaybookID   *string `json:"playbook_id,omitempty"`
	Title        string  `json:"title"`
}

// TaskAssignedPayload payload.
type TaskAssignedPayload struct {
	TaskID     string `json:"task_id"`
	IncidentID string `json:"incident_id"`
	Title      string `json:"title"`
	AssignedTo string `json:"assigned_to"`
}

// TaskStatusChangedPayload payload.
type TaskStatusChangedPayload struct {
	TaskID     string            `json:"task_id"`
	IncidentID string            `json:"incident_id"`
	OldStatus  domain.TaskStatus `json:"old_status"`
	NewStatus  domain.TaskStatus `json:"new_status"`
}

// TaskOverduePayload payload.
type TaskOverduePayload struct {
	TaskID     string    `json:"task_id"`
	IncidentID string    `json:"incident_id"`
	Title      string    `json:"title"`
	AssignedTo string    `json:"assigned_to"`
	DueAt      time.Time `json:"due_at"`
}

// PlaybookForkedPayload payload.
type PlaybookForkedPayload struct {
	OldPlaybookID string `json:"old_playbook_id"`
	NewPlaybookID string `json:"new_playbook_id"`
	NewVersion    int    `json:"new_version"`
}
