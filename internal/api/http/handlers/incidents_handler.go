package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ops-console/internal/api/dto"
	"github.com/spec-kit/ops-console/internal/auth"
	"github.com/spec-kit/ops-console/internal/domain"
	"github.com/spec-kit/ops-console/internal/repository"
	"github.com/spec-kit/ops-console/internal/service"
	apperrors "github.com/spec-kit/ops-console/pkg/util"
)

// IncidentsHandler manages incident endpoints.
type IncidentsHandler struct {
	incidents *service.IncidentService
	tasks     *service.TaskService
}

// NewIncidentsHandler constructs handler.
func NewIncidentsHandler(incidentService *service.IncidentService, taskService *service.TaskService) *IncidentsHandler {
	return &IncidentsHandler{incidents: incidentService, tasks: taskService}
}

// Create POST /incidents. Attaching a playbook pins that exact version and
// expands it into tasks.
func (h *IncidentsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.IncidentCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	incident, tasks, err := h.incidents.Create(c.Context(), principal.Email(), service.IncidentCreateInput{
		Title:        req.Title,
		Description:  req.Description,
		IncidentType: req.IncidentType,
		PlaybookID:   req.PlaybookID,
		Context:      req.Context,
		Impact:       req.Impact,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": incidentDetail(incident, tasks)})
}

// Get GET /incidents/:id.
func (h *IncidentsHandler) Get(c *fiber.Ctx) error {
	incident, err := h.incidents.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	tasks, err := h.tasks.ListByIncident(c.Context(), incident.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incidentDetail(incident, tasks)})
}

// List GET /incidents.
func (h *IncidentsHandler) List(c *fiber.Ctx) error {
	filter := parseIncidentQuery(c)
	incidents, err := h.incidents.List(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.IncidentResponse, 0, len(incidents))
	for i := range incidents {
		items = append(items, incidentResponse(&incidents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateStatus POST /incidents/:id/status.
func (h *IncidentsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.IncidentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	incident, err := h.incidents.UpdateStatus(c.Context(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incidentResponse(incident)})
}

// CreateTask POST /incidents/:id/tasks.
func (h *IncidentsHandler) CreateTask(c *fiber.Ctx) error {
	var req dto.TaskCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.tasks.CreateAdHoc(c.Context(), c.Params("id"), service.AdHocTaskInput{
		Title:        req.Title,
		DepartmentID: req.DepartmentID,
		SLAValue:     req.SLAValue,
		SLAUnit:      req.SLAUnit,
		AssignedTo:   req.AssignedTo,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": taskResponse(task)})
}

// ListTasks GET /incidents/:id/tasks.
func (h *IncidentsHandler) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.tasks.ListByIncident(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, taskResponse(&tasks[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseIncidentQuery(c *fiber.Ctx) repository.IncidentFilter {
	filter := repository.IncidentFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.IncidentStatus(strings.TrimSpace(part)))
		}
	}
	if incidentType := c.Query("incident_type"); incidentType != "" {
		filter.IncidentType = &incidentType
	}
	if playbookID := c.Query("playbook_id"); playbookID != "" {
		filter.PlaybookID = &playbookID
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func incidentResponse(incident *domain.Incident) dto.IncidentResponse {
	return dto.IncidentResponse{
		ID:           incident.ID,
		Title:        incident.Title,
		Description:  incident.Description,
		Status:       incident.Status,
		IncidentType: incident.IncidentType,
		PlaybookID:   incident.PlaybookID,
		Context:      incident.Context,
		Impact:       incident.Impact,
		CreatedBy:    incident.CreatedBy,
		CreatedAt:    incident.CreatedAt,
		UpdatedAt:    incident.UpdatedAt,
		ClosedAt:     incident.ClosedAt,
	}
}

func incidentDetail(incident *domain.Incident, tasks []domain.IncidentTask) dto.IncidentDetailResponse {
	items := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, taskResponse(&tasks[i]))
	}
	return dto.IncidentDetailResponse{
		IncidentResponse: incidentResponse(incident),
		Tasks:            items,
	}
}

func taskResponse(task *domain.IncidentTask) dto.TaskResponse {
	return dto.TaskResponse{
		ID:                 task.ID,
		IncidentID:         task.IncidentID,
		Order:              task.StepOrder,
		Title:              task.Title,
		DepartmentID:       task.DepartmentID,
		SLAValue:           task.SLAValue,
		SLAUnit:            task.SLAUnit,
		DueAt:              task.DueAt,
		Status:             task.Status,
		AssignedTo:         task.AssignedTo,
		Evidence:           task.Evidence,
		CreatedAt:          task.CreatedAt,
		StartedAt:          task.StartedAt,
		CompletedAt:        task.CompletedAt,
		LastStatusChangeAt: task.LastStatusChangeAt,
	}
}
