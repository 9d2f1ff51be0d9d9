package dto

import (
	"time"

	"github.com/spec-kit/ops-console/internal/domain"
)

// PlaybookCreateRequest payload.
type PlaybookCreateRequest struct {
	Name         string `json:"name"`
	IncidentType string `json:"incident_type"`
	Description  string `json:"description"`
	Active       *bool  `json:"active"`
}

// PlaybookUpdateRequest payload for detail edits.
type PlaybookUpdateRequest struct {
	Name         *string `json:"name"`
	IncidentType *string `json:"incident_type"`
	Description  *string `json:"description"`
	Active       *bool   `json:"active"`
}

// PlaybookResponse response. Forked and previous_playbook_id are set on
// mutation responses when the edit landed on a freshly forked version.
type PlaybookResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	IncidentType string    `json:"incident_type"`
	Description  string    `json:"description"`
	Active       bool      `json:"active"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Forked             bool   `json:"forked,omitempty"`
	PreviousPlaybookID string `json:"previous_playbook_id,omitempty"`
}

// StepCreateRequest payload for adding a step.
type StepCreateRequest struct {
	Order                int             `json:"order"`
	TaskTemplateID       string          `json:"task_template_id"`
	OverrideTitle        *string         `json:"override_title"`
	OverrideDepartmentID *string         `json:"override_department_id"`
	OverrideSLAValue     *int            `json:"override_sla_value"`
	OverrideSLAUnit      *domain.SLAUnit `json:"override_sla_unit"`
}

// StepReorderRequest payload. Positions are 0-based indexes into the current
// step order.
type StepReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// StepResponse is the effective view of a step: overrides resolved against
// the template, department name included.
type StepResponse struct {
	ID             string         `json:"id"`
	Order          int            `json:"order"`
	TaskTemplateID string         `json:"task_template_id"`
	Title          string         `json:"title"`
	TemplateTitle  string         `json:"template_title,omitempty"`
	DepartmentID   string         `json:"department_id"`
	DepartmentName string         `json:"department_name"`
	SLAValue       int            `json:"sla_value"`
	SLAUnit        domain.SLAUnit `json:"sla_unit"`
	Active         bool           `json:"active"`
}
