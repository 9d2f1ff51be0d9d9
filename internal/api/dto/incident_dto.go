package dto

import (
	"time"

	"github.com/spec-kit/ops-console/internal/domain"
)

// IncidentCreateRequest payload.
type IncidentCreateRequest struct {
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	IncidentType string                `json:"incident_type"`
	PlaybookID   *string               `json:"playbook_id"`
	Context      map[string]any        `json:"context"`
	Impact       domain.IncidentImpact `json:"impact"`
}

// IncidentStatusRequest payload.
type IncidentStatusRequest struct {
	Status domain.IncidentStatus `json:"status"`
}

// IncidentResponse response.
type IncidentResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Status       domain.IncidentStatus `json:"status"`
	IncidentType string                `json:"incident_type"`
	PlaybookID   *string               `json:"playbook_id"`
	Context      map[string]any        `json:"context,omitempty"`
	Impact       domain.IncidentImpact `json:"impact"`
	CreatedBy    string                `json:"created_by"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	ClosedAt     *time.Time            `json:"closed_at"`
}

// IncidentDetailResponse includes the task list.
type IncidentDetailResponse struct {
	IncidentResponse
	Tasks []TaskResponse `json:"tasks"`
}

// TaskCreateRequest payload for ad hoc tasks.
type TaskCreateRequest struct {
	Title        string         `json:"title"`
	DepartmentID string         `json:"department_id"`
	SLAValue     int            `json:"sla_value"`
	SLAUnit      domain.SLAUnit `json:"sla_unit"`
	AssignedTo   *string        `json:"assigned_to"`
}

// TaskReassignRequest payload.
type TaskReassignRequest struct {
	AssignedTo string `json:"assigned_to"`
}

// TaskEvidenceRequest payload.
type TaskEvidenceRequest struct {
	Evidence string `json:"evidence"`
}

// TaskResponse response.
type TaskResponse struct {
	ID                 string            `json:"id"`
	IncidentID         string            `json:"incident_id"`
	Order              int               `json:"order"`
	Title              string            `json:"title"`
	DepartmentID       string            `json:"department_id"`
	SLAValue           int               `json:"sla_value"`
	SLAUnit            domain.SLAUnit    `json:"sla_unit"`
	DueAt              time.Time         `json:"due_at"`
	Status             domain.TaskStatus `json:"status"`
	AssignedTo         *string           `json:"assigned_to"`
	Evidence           *string           `json:"evidence"`
	CreatedAt          time.Time         `json:"created_at"`
	StartedAt          *time.Time        `json:"started_at"`
	CompletedAt        *time.Time        `json:"completed_at"`
	LastStatusChangeAt *time.Time        `json:"last_status_change_at"`
}
