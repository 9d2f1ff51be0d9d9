package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-console/internal/domain"
	"github.com/spec-kit/ops-console/internal/repository"
	apperrors "github.com/spec-kit/ops-console/pkg/util"
)

// UnknownDepartmentName is shown for steps whose effective department no
// longer resolves.
const UnknownDepartmentName = "(unknown department)"

// ExpandedStep is an effective step enriched with its department name for
// display.
type ExpandedStep struct {
	domain.EffectiveStep
	DepartmentName string
}

// StepInput is the payload for adding a step to a playbook.
type StepInput struct {
	Order                int
	TaskTemplateID       string
	OverrideTitle        *string
	OverrideDepartmentID *string
	OverrideSLAValue     *int
	OverrideSLAUnit      *domain.SLAUnit
}

// StepService manages a playbook's ordered step list. Every mutation first
// passes through PlaybookService.EnsureEditable; when that forks a new
// version, the mutation aborts with a STALE_VERSION error because the caller's
// step ids belong to the superseded version. Step orders within a playbook are
// a dense 1..N sequence and every mutation here restores that invariant before
// committing.
type StepService struct {
	playbookSvc *PlaybookService
	steps       repository.StepRepository
	templates   repository.TemplateRepository
	departments repository.DepartmentRepository
	tx          repository.Transactor
	logger      *zap.Logger
}

// StepDependencies bundles collaborators for the step service.
type StepDependencies struct {
	PlaybookService *PlaybookService
	StepRepo        repository.StepRepository
	TemplateRepo    repository.TemplateRepository
	DepartmentRepo  repository.DepartmentRepository
	Transactor      repository.Transactor
	Logger          *zap.Logger
}

// NewStepService constructs the service.
func NewStepService(deps StepDependencies) *StepService {
	return &StepService{
		playbookSvc: deps.PlaybookService,
		steps:       deps.StepRepo,
		templates:   deps.TemplateRepo,
		departments: deps.DepartmentRepo,
		tx:          deps.Transactor,
		logger:      deps.Logger,
	}
}

// ListByPlaybook returns the playbook's steps in order with overrides
// resolved against their templates. A step whose template was deleted is
// still listed, degraded to its overrides plus fallback labels.
func (s *StepService) ListByPlaybook(ctx context.Context, playbookID string) ([]ExpandedStep, error) {
	if _, err := s.playbookSvc.GetByID(ctx, playbookID); err != nil {
		return nil, err
	}
	steps, err := s.steps.ListByPlaybook(ctx, playbookID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	expanded := make([]ExpandedStep, 0, len(steps))
	for _, step := range steps {
		expanded = append(expanded, s.expand(ctx, step))
	}
	return expanded, nil
}

func (s *StepService) expand(ctx context.Context, step domain.PlaybookStep) ExpandedStep {
	tmpl, err := s.templates.GetByID(ctx, step.TaskTemplateID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("template lookup failed",
				zap.String("step_id", step.ID),
				zap.String("task_template_id", step.TaskTemplateID),
				zap.Error(err))
		}
		tmpl = nil
	}
	eff := domain.ResolveEffective(step, tmpl)

	name := UnknownDepartmentName
	if eff.DepartmentID != "" {
		if dept, err := s.departments.GetByID(ctx, eff.DepartmentID); err == nil {
			name = dept.Name
		}
	}
	return ExpandedStep{EffectiveStep: eff, DepartmentName: name}
}

// AddStep appends or inserts nothing out of sequence: the requested order must
// be exactly count+1, keeping the 1..N invariant append-only on this path.
func (s *StepService) AddStep(ctx context.Context, playbookID string, input StepInput) (*domain.PlaybookStep, error) {
	editable, err := s.playbookSvc.EnsureEditable(ctx, playbookID)
	if err != nil {
		return nil, err
	}
	if editable.Forked {
		return nil, apperrors.NewStaleVersion(editable.PreviousID, editable.Playbook.ID)
	}

	if input.TaskTemplateID == "" {
		return nil, apperrors.NewValidationError("task_template_id required", nil)
	}
	if _, err := s.templates.GetByID(ctx, input.TaskTemplateID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task template", map[string]any{"task_template_id": input.TaskTemplateID})
		}
		return nil, apperrors.MapError(err)
	}
	if input.OverrideSLAUnit != nil && !input.OverrideSLAUnit.Valid() {
		return nil, apperrors.NewValidationError("override_sla_unit must be HOURS or DAYS", nil)
	}
	if input.OverrideSLAValue != nil && *input.OverrideSLAValue <= 0 {
		return nil, apperrors.NewValidationError("override_sla_value must be positive", nil)
	}

	count, err := s.steps.CountByPlaybook(ctx, playbookID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if input.Order != count+1 {
		return nil, apperrors.NewValidationError("step order must extend the sequence", map[string]any{
			"requested_order": input.Order,
			"expected_order":  count + 1,
		})
	}

	step := &domain.PlaybookStep{
		PlaybookID:           playbookID,
		StepOrder:            input.Order,
		TaskTemplateID:       input.TaskTemplateID,
		OverrideTitle:        input.OverrideTitle,
		OverrideDepartmentID: input.OverrideDepartmentID,
		OverrideSLAValue:     input.OverrideSLAValue,
		OverrideSLAUnit:      input.OverrideSLAUnit,
		Active:               true,
	}
	if err := s.steps.Create(ctx, step); err != nil {
		return nil, apperrors.MapError(err)
	}
	return step, nil
}

// DeleteStep removes a step and renumbers the survivors to close the gap, so
// orders stay dense 1..N. Delete and renumber commit atomically.
func (s *StepService) DeleteStep(ctx context.Context, playbookID, stepID string) error {
	editable, err := s.playbookSvc.EnsureEditable(ctx, playbookID)
	if err != nil {
		return err
	}
	if editable.Forked {
		return apperrors.NewStaleVersion(editable.PreviousID, editable.Playbook.ID)
	}

	step, err := s.steps.GetByID(ctx, stepID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("playbook step", map[string]any{"step_id": stepID})
		}
		return apperrors.MapError(err)
	}
	if step.PlaybookID != playbookID {
		return apperrors.NewNotFound("playbook step", map[string]any{
			"step_id":     stepID,
			"playbook_id": playbookID,
		})
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.steps.Delete(ctx, stepID); err != nil {
			return err
		}
		remaining, err := s.steps.ListByPlaybook(ctx, playbookID)
		if err != nil {
			return err
		}
		return s.renumber(ctx, remaining)
	})
	return apperrors.MapError(err)
}

// Reorder moves the step at fromIndex to toIndex (0-based positions in the
// current order) and rewrites the dense sequence. Out-of-range positions are
// rejected before anything is touched.
func (s *StepService) Reorder(ctx context.Context, playbookID string, fromIndex, toIndex int) ([]domain.PlaybookStep, error) {
	editable, err := s.playbookSvc.EnsureEditable(ctx, playbookID)
	if err != nil {
		return nil, err
	}
	if editable.Forked {
		return nil, apperrors.NewStaleVersion(editable.PreviousID, editable.Playbook.ID)
	}

	steps, err := s.steps.ListByPlaybook(ctx, playbookID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if fromIndex < 0 || fromIndex >= len(steps) || toIndex < 0 || toIndex >= len(steps) {
		return nil, apperrors.NewValidationError("reorder position out of range", map[string]any{
			"from":       fromIndex,
			"to":         toIndex,
			"step_count": len(steps),
		})
	}
	if fromIndex == toIndex {
		return steps, nil
	}

	moved := steps[fromIndex]
	reordered := append([]domain.PlaybookStep{}, steps[:fromIndex]...)
	reordered = append(reordered, steps[fromIndex+1:]...)
	reordered = append(reordered[:toIndex], append([]domain.PlaybookStep{moved}, reordered[toIndex:]...)...)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.renumber(ctx, reordered)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range reordered {
		reordered[i].StepOrder = i + 1
	}
	return reordered, nil
}

// renumber writes positions 1..N over the given slice order, skipping rows
// already in place.
func (s *StepService) renumber(ctx context.Context, steps []domain.PlaybookStep) error {
	for i, step := range steps {
		want := i + 1
		if step.StepOrder == want {
			continue
		}
		if err := s.steps.SetOrder(ctx, step.ID, want); err != nil {
			return err
		}
	}
	return nil
}
