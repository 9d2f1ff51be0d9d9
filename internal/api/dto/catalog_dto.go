package dto

import (
	"time"

	"github.com/spec-kit/ops-console/internal/domain"
)

// DepartmentRequest payload for create/update.
type DepartmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

// DepartmentResponse response.
type DepartmentResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MemberRequest payload for enrolling a member.
type MemberRequest struct {
	UserEmail string            `json:"user_email"`
	Role      domain.MemberRole `json:"role"`
}

// MemberUpdateRequest payload for role/active changes.
type MemberUpdateRequest struct {
	Role   *domain.MemberRole `json:"role"`
	Active *bool              `json:"active"`
}

// MemberResponse response.
type MemberResponse struct {
	ID           string            `json:"id"`
	DepartmentID string            `json:"department_id"`
	UserEmail    string            `json:"user_email"`
	Role         domain.MemberRole `json:"role"`
	Active       bool              `json:"active"`
	CreatedAt    time.Time         `json:"created_at"`
}

// TemplateRequest payload for create/update.
type TemplateRequest struct {
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	DefaultDepartmentID string         `json:"default_department_id"`
	DefaultSLAValue     int            `json:"default_sla_value"`
	DefaultSLAUnit      domain.SLAUnit `json:"default_sla_unit"`
	Active              *bool          `json:"active"`
}

// TemplateResponse response.
type TemplateResponse struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	DefaultDepartmentID string         `json:"default_department_id"`
	DefaultSLAValue     int            `json:"default_sla_value"`
	DefaultSLAUnit      domain.SLAUnit `json:"default_sla_unit"`
	Active              bool           `json:"active"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}
