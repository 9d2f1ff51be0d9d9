package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ops-console/internal/api/dto"
	"github.com/spec-kit/ops-console/internal/domain"
	"github.com/spec-kit/ops-console/internal/service"
	apperrors "github.com/spec-kit/ops-console/pkg/util"
)

// TemplatesHandler manages task template endpoints.
type TemplatesHandler struct {
	service *service.TemplateService
}

// NewTemplatesHandler constructs handler.
func NewTemplatesHandler(templateService *service.TemplateService) *TemplatesHandler {
	return &TemplatesHandler{service: templateService}
}

// Create POST /templates.
func (h *TemplatesHandler) Create(c *fiber.Ctx) error {
	req, err := parseTemplateRequest(c)
	if err != nil {
		return err
	}
	tmpl, err := h.service.Create(c.Context(), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": templateResponse(tmpl)})
}

// Update PUT /templates/:id.
func (h *TemplatesHandler) Update(c *fiber.Ctx) error {
	req, err := parseTemplateRequest(c)
	if err != nil {
		return err
	}
	tmpl, err := h.service.Update(c.Context(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": templateResponse(tmpl)})
}

// Get GET /templates/:id.
func (h *TemplatesHandler) Get(c *fiber.Ctx) error {
	tmpl, err := h.service.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": templateResponse(tmpl)})
}

// List GET /templates.
func (h *TemplatesHandler) List(c *fiber.Ctx) error {
	activeOnly := c.QueryBool("active_only", false)
	templates, err := h.service.List(c.Context(), activeOnly)
	if err != nil {
		return err
	}
	items := make([]dto.TemplateResponse, 0, len(templates))
	for i := range templates {
		items = append(items, templateResponse(&templates[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseTemplateRequest(c *fiber.Ctx) (service.TemplateInput, error) {
	var req dto.TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return service.TemplateInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	return service.TemplateInput{
		Title:               req.Title,
		Description:         req.Description,
		DefaultDepartmentID: req.DefaultDepartmentID,
		DefaultSLAValue:     req.DefaultSLAValue,
		DefaultSLAUnit:      req.DefaultSLAUnit,
		Active:              req.Active,
	}, nil
}

func templateResponse(tmpl *domain.TaskTemplate) dto.TemplateResponse {
	return dto.TemplateResponse{
		ID:                  tmpl.ID,
		Title:               tmpl.Title,
		Description:         tmpl.Description,
		DefaultDepartmentID: tmpl.DefaultDepartmentID,
		DefaultSLAValue:     tmpl.DefaultSLAValue,
		DefaultSLAUnit:      tmpl.DefaultSLAUnit,
		Active:              tmpl.IsActive,
		CreatedAt:           tmpl.CreatedAt,
		UpdatedAt:           tmpl.UpdatedAt,
	}
}
