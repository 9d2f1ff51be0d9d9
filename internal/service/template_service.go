package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-console/internal/domain"
	"github.com/spec-kit/ops-console/internal/repository"
	apperrors "github.com/spec-kit/ops-console/pkg/util"
)

// TemplateService manages the task template catalog. Templates are soft
// disabled via the active flag; steps referencing a deactivated template keep
// resolving against it, only new usage is discouraged.
type TemplateService struct {
	templates   repository.TemplateRepository
	departments repository.DepartmentRepository
	logger      *zap.Logger
}

// TemplateDependencies bundles collaborators for the template service.
type TemplateDependencies struct {
	TemplateRepo   repository.TemplateRepository
	DepartmentRepo repository.DepartmentRepository
	Logger         *zap.Logger
}

// TemplateInput is the payload for creating or updating a task template.
type TemplateInput struct {
	Title               string
	Description         string
	DefaultDepartmentID string
	DefaultSLAValue     int
	DefaultSLAUnit      domain.SLAUnit
	Active              *bool
}

// NewTemplateService constructs the service.
func NewTemplateService(deps TemplateDependencies) *TemplateService {
	return &TemplateService{
		templates:   deps.TemplateRepo,
		departments: deps.DepartmentRepo,
		logger:      deps.Logger,
	}
}

// Create adds a template after validating its department and SLA.
func (s *TemplateService) Create(ctx context.Context, input TemplateInput) (*domain.TaskTemplate, error) {
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}
	tmpl := &domain.TaskTemplate{
		Title:               strings.TrimSpace(input.Title),
		Description:         strings.TrimSpace(input.Description),
		DefaultDepartmentID: input.DefaultDepartmentID,
		DefaultSLAValue:     input.DefaultSLAValue,
		DefaultSLAUnit:      input.DefaultSLAUnit,
		IsActive:            true,
	}
	if input.Active != nil {
		tmpl.IsActive = *input.Active
	}
	if err := s.templates.Create(ctx, tmpl); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tmpl, nil
}

// Update edits a template in place. Existing steps see the change on their
// next resolution.
func (s *TemplateService) Update(ctx context.Context, id string, input TemplateInput) (*domain.TaskTemplate, error) {
	tmpl, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}
	tmpl.Title = strings.TrimSpace(input.Title)
	tmpl.Description = strings.TrimSpace(input.Description)
	tmpl.DefaultDepartmentID = input.DefaultDepartmentID
	tmpl.DefaultSLAValue = input.DefaultSLAValue
	tmpl.DefaultSLAUnit = input.DefaultSLAUnit
	if input.Active != nil {
		tmpl.IsActive = *input.Active
	}
	if err := s.templates.Update(ctx, tmpl); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tmpl, nil
}

// GetByID fetches a template.
func (s *TemplateService) GetByID(ctx context.Context, id string) (*domain.TaskTemplate, error) {
	tmpl, err := s.templates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task template", map[string]any{"task_template_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return tmpl, nil
}

// List returns all templates, or only active ones.
func (s *TemplateService) List(ctx context.Context, activeOnly bool) ([]domain.TaskTemplate, error) {
	var (
		templates []domain.TaskTemplate
		err       error
	)
	if activeOnly {
		templates, err = s.templates.ListActive(ctx)
	} else {
		templates, err = s.templates.List(ctx)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return templates, nil
}

func (s *TemplateService) validate(ctx context.Context, input TemplateInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return apperrors.NewValidationError("title required", nil)
	}
	if !input.DefaultSLAUnit.Valid() {
		return apperrors.NewValidationError("default_sla_unit must be HOURS or DAYS", nil)
	}
	if input.DefaultSLAValue <= 0 {
		return apperrors.NewValidationError("default_sla_value must be positive", nil)
	}
	if input.DefaultDepartmentID == "" {
		return apperrors.NewValidationError("default_department_id required", nil)
	}
	if _, err := s.departments.GetByID(ctx, input.DefaultDepartmentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("department", map[string]any{"department_id": input.DefaultDepartmentID})
		}
		return apperrors.MapError(err)
	}
	return nil
}
