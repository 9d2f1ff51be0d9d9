package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ops-console/internal/api/dto"
	"github.com/spec-kit/ops-console/internal/domain"
	"github.com/spec-kit/ops-console/internal/repository"
	"github.com/spec-kit/ops-console/internal/service"
	apperrors "github.com/spec-kit/ops-console/pkg/util"
)

// PlaybooksHandler manages playbook and step endpoints.
type PlaybooksHandler struct {
	playbooks *service.PlaybookService
	steps     *service.StepService
}

// NewPlaybooksHandler constructs handler.
func NewPlaybooksHandler(playbookService *service.PlaybookService, stepService *service.StepService) *PlaybooksHandler {
	return &PlaybooksHandler{playbooks: playbookService, steps: stepService}
}

// Create POST /playbooks.
func (h *PlaybooksHandler) Create(c *fiber.Ctx) error {
	var req dto.PlaybookCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	playbook, err := h.playbooks.Create(c.Context(), service.PlaybookCreateInput{
		Name:         req.Name,
		IncidentType: req.IncidentType,
		Description:  req.Description,
		Active:       active,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": playbookResponse(playbook)})
}

// Update PATCH /playbooks/:id. Editing an in-use playbook forks it; the
// response then carries the successor with forked metadata.
func (h *PlaybooksHandler) Update(c *fiber.Ctx) error {
	var req dto.PlaybookUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.playbooks.UpdateDetails(c.Context(), c.Params("id"), service.PlaybookUpdateInput{
		Name:         req.Name,
		IncidentType: req.IncidentType,
		Description:  req.Description,
		Active:       req.Active,
	})
	if err != nil {
		return err
	}
	resp := playbookResponse(result.Playbook)
	resp.Forked = result.Forked
	resp.PreviousPlaybookID = result.PreviousID
	return c.JSON(fiber.Map{"data": resp})
}

// Get GET /playbooks/:id.
func (h *PlaybooksHandler) Get(c *fiber.Ctx) error {
	playbook, err := h.playbooks.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": playbookResponse(playbook)})
}

// List GET /playbooks.
func (h *PlaybooksHandler) List(c *fiber.Ctx) error {
	filter := repository.PlaybookFilter{
		ActiveOnly: c.QueryBool("active_only", false),
	}
	if incidentType := c.Query("incident_type"); incidentType != "" {
		filter.IncidentType = &incidentType
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	playbooks, err := h.playbooks.List(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.PlaybookResponse, 0, len(playbooks))
	for i := range playbooks {
		items = append(items, playbookResponse(&playbooks[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListSteps GET /playbooks/:id/steps.
func (h *PlaybooksHandler) ListSteps(c *fiber.Ctx) error {
	steps, err := h.steps.ListByPlaybook(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.StepResponse, 0, len(steps))
	for i := range steps {
		items = append(items, stepResponse(steps[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddStep POST /playbooks/:id/steps.
func (h *PlaybooksHandler) AddStep(c *fiber.Ctx) error {
	var req dto.StepCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	step, err := h.steps.AddStep(c.Context(), c.Params("id"), service.StepInput{
		Order:                req.Order,
		TaskTemplateID:       req.TaskTemplateID,
		OverrideTitle:        req.OverrideTitle,
		OverrideDepartmentID: req.OverrideDepartmentID,
		OverrideSLAValue:     req.OverrideSLAValue,
		OverrideSLAUnit:      req.OverrideSLAUnit,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": rawStepResponse(step)})
}

// DeleteStep DELETE /playbooks/:id/steps/:stepId.
func (h *PlaybooksHandler) DeleteStep(c *fiber.Ctx) error {
	if err := h.steps.DeleteStep(c.Context(), c.Params("id"), c.Params("stepId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ReorderSteps POST /playbooks/:id/steps/reorder.
func (h *PlaybooksHandler) ReorderSteps(c *fiber.Ctx) error {
	var req dto.StepReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	steps, err := h.steps.Reorder(c.Context(), c.Params("id"), req.From, req.To)
	if err != nil {
		return err
	}
	items := make([]dto.StepResponse, 0, len(steps))
	for i := range steps {
		items = append(items, rawStepResponse(&steps[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func playbookResponse(playbook *domain.Playbook) dto.PlaybookResponse {
	return dto.PlaybookResponse{
		ID:           playbook.ID,
		Name:         playbook.Name,
		IncidentType: playbook.IncidentType,
		Description:  playbook.Description,
		Active:       playbook.IsActive,
		Version:      playbook.Version,
		CreatedAt:    playbook.CreatedAt,
		UpdatedAt:    playbook.UpdatedAt,
	}
}

func stepResponse(step service.ExpandedStep) dto.StepResponse {
	return dto.StepResponse{
		ID:             step.Step.ID,
		Order:          step.Step.StepOrder,
		TaskTemplateID: step.Step.TaskTemplateID,
		Title:          step.Title,
		TemplateTitle:  step.TemplateTitle,
		DepartmentID:   step.DepartmentID,
		DepartmentName: step.DepartmentName,
		SLAValue:       step.SLAValue,
		SLAUnit:        step.SLAUnit,
		Active:         step.Step.Active,
	}
}

// rawStepResponse renders a step without template resolution, for mutation
// responses where only identity and order matter.
func rawStepResponse(step *domain.PlaybookStep) dto.StepResponse {
	resp := dto.StepResponse{
		ID:             step.ID,
		Order:          step.StepOrder,
		TaskTemplateID: step.TaskTemplateID,
		Active:         step.Active,
	}
	if step.OverrideTitle != nil {
		resp.Title = *step.OverrideTitle
	}
	if step.OverrideDepartmentID != nil {
		resp.DepartmentID = *step.OverrideDepartmentID
	}
	if step.OverrideSLAValue != nil {
		resp.SLAValue = *step.OverrideSLAValue
	}
	if step.OverrideSLAUnit != nil {
		resp.SLAUnit = *step.OverrideSLAUnit
	}
	return resp
}
