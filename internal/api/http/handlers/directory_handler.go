package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ops-console/internal/api/dto"
	"github.com/spec-kit/ops-console/internal/domain"
	"github.com/spec-kit/ops-console/internal/service"
	apperrors "github.com/spec-kit/ops-console/pkg/util"
)

// DirectoryHandler manages department and membership endpoints.
type DirectoryHandler struct {
	service *service.DirectoryService
}

// NewDirectoryHandler constructs handler.
func NewDirectoryHandler(directoryService *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{service: directoryService}
}

// CreateDepartment POST /departments.
func (h *DirectoryHandler) CreateDepartment(c *fiber.Ctx) error {
	var req dto.DepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	dept, err := h.service.CreateDepartment(c.Context(), service.DepartmentInput{
		Name:        req.Name,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": departmentResponse(dept)})
}

// UpdateDepartment PATCH /departments/:id.
func (h *DirectoryHandler) UpdateDepartment(c *fiber.Ctx) error {
	var req dto.DepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	dept, err := h.service.UpdateDepartment(c.Context(), c.Params("id"), service.DepartmentInput{
		Name:        req.Name,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": departmentResponse(dept)})
}

// ListDepartments GET /departments.
func (h *DirectoryHandler) ListDepartments(c *fiber.Ctx) error {
	activeOnly := c.QueryBool("active_only", false)
	depts, err := h.service.ListDepartments(c.Context(), activeOnly)
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(depts))
	for i := range depts {
		items = append(items, departmentResponse(&depts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetDepartment GET /departments/:id.
func (h *DirectoryHandler) GetDepartment(c *fiber.Ctx) error {
	dept, err := h.service.GetDepartment(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": departmentResponse(dept)})
}

// AddMember POST /departments/:id/members.
func (h *DirectoryHandler) AddMember(c *fiber.Ctx) error {
	var req dto.MemberRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	member, err := h.service.AddMember(c.Context(), c.Params("id"), service.MemberInput{
		UserEmail: req.UserEmail,
		Role:      req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": memberResponse(member)})
}

// UpdateMember PATCH /departments/:id/members/:memberId.
func (h *DirectoryHandler) UpdateMember(c *fiber.Ctx) error {
	var req dto.MemberUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	member, err := h.service.UpdateMember(c.Context(), c.Params("memberId"), req.Role, req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": memberResponse(member)})
}

// ListMembers GET /departments/:id/members.
func (h *DirectoryHandler) ListMembers(c *fiber.Ctx) error {
	members, err := h.service.ListMembers(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.MemberResponse, 0, len(members))
	for i := range members {
		items = append(items, memberResponse(&members[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetLeader GET /departments/:id/leader.
func (h *DirectoryHandler) GetLeader(c *fiber.Ctx) error {
	leader, err := h.service.LeaderFor(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if leader == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": memberResponse(leader)})
}

func departmentResponse(dept *domain.Department) dto.DepartmentResponse {
	return dto.DepartmentResponse{
		ID:          dept.ID,
		Name:        dept.Name,
		Description: dept.Description,
		Active:      dept.IsActive,
		CreatedAt:   dept.CreatedAt,
		UpdatedAt:   dept.UpdatedAt,
	}
}

func memberResponse(member *domain.DepartmentMember) dto.MemberResponse {
	return dto.MemberResponse{
		ID:           member.ID,
		DepartmentID: member.DepartmentID,
		UserEmail:    member.UserEmail,
		Role:         member.Role,
		Active:       member.Active,
		CreatedAt:    member.CreatedAt,
	}
}
