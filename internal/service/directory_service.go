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

// DirectoryService manages departments and their memberships, including
// leadership resolution.
type DirectoryService struct {
	departments repository.DepartmentRepository
	members     repository.MemberRepository
	logger      *zap.Logger
}

// DirectoryDependencies bundles collaborators for the directory service.
type DirectoryDependencies struct {
	DepartmentRepo repository.DepartmentRepository
	MemberRepo     repository.MemberRepository
	Logger         *zap.Logger
}

// DepartmentInput is the payload for creating or updating a department.
type DepartmentInput struct {
	Name        string
	Description string
	Active      *bool
}

// MemberInput is the payload for adding a member to a department.
type MemberInput struct {
	UserEmail string
	Role      domain.MemberRole
}

// NewDirectoryService constructs the service.
func NewDirectoryService(deps DirectoryDependencies) *DirectoryService {
	return &DirectoryService{
		departments: deps.DepartmentRepo,
		members:     deps.MemberRepo,
		logger:      deps.Logger,
	}
}

// CreateDepartment adds a department, active by default.
func (s *DirectoryService) CreateDepartment(ctx context.Context, input DepartmentInput) (*domain.Department, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	dept := &domain.Department{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
	}
	if input.Active != nil {
		dept.IsActive = *input.Active
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// UpdateDepartment edits name, description or active flag.
func (s *DirectoryService) UpdateDepartment(ctx context.Context, id string, input DepartmentInput) (*domain.Department, error) {
	dept, err := s.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		dept.Name = name
	}
	if desc := strings.TrimSpace(input.Description); desc != "" {
		dept.Description = desc
	}
	if input.Active != nil {
		dept.IsActive = *input.Active
	}
	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// GetDepartment fetches a department.
func (s *DirectoryService) GetDepartment(ctx context.Context, id string) (*domain.Department, error) {
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// ListDepartments returns all departments, or only active ones.
func (s *DirectoryService) ListDepartments(ctx context.Context, activeOnly bool) ([]domain.Department, error) {
	var (
		depts []domain.Department
		err   error
	)
	if activeOnly {
		depts, err = s.departments.ListActive(ctx)
	} else {
		depts, err = s.departments.List(ctx)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return depts, nil
}

// AddMember enrolls a user into a department as leader or member.
func (s *DirectoryService) AddMember(ctx context.Context, departmentID string, input MemberInput) (*domain.DepartmentMember, error) {
	email := strings.TrimSpace(strings.ToLower(input.UserEmail))
	if email == "" {
		return nil, apperrors.NewValidationError("user_email required", nil)
	}
	if input.Role != domain.MemberRoleLeader && input.Role != domain.MemberRoleMember {
		return nil, apperrors.NewValidationError("role must be LEADER or MEMBER", nil)
	}
	dept, err := s.GetDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if !dept.IsActive {
		return nil, apperrors.NewValidationError("department is not active", map[string]any{"department_id": departmentID})
	}

	member := &domain.DepartmentMember{
		DepartmentID: departmentID,
		UserEmail:    email,
		Role:         input.Role,
		Active:       true,
	}
	if err := s.members.Create(ctx, member); err != nil {
		return nil, apperrors.MapError(err)
	}
	return member, nil
}

// UpdateMember changes a member's role or active flag.
func (s *DirectoryService) UpdateMember(ctx context.Context, memberID string, role *domain.MemberRole, active *bool) (*domain.DepartmentMember, error) {
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department member", map[string]any{"member_id": memberID})
		}
		return nil, apperrors.MapError(err)
	}
	if role != nil {
		if *role != domain.MemberRoleLeader && *role != domain.MemberRoleMember {
			return nil, apperrors.NewValidationError("role must be LEADER or MEMBER", nil)
		}
		member.Role = *role
	}
	if active != nil {
		member.Active = *active
	}
	if err := s.members.Update(ctx, member); err != nil {
		return nil, apperrors.MapError(err)
	}
	return member, nil
}

// ListMembers returns a department's membership.
func (s *DirectoryService) ListMembers(ctx context.Context, departmentID string) ([]domain.DepartmentMember, error) {
	if _, err := s.GetDepartment(ctx, departmentID); err != nil {
		return nil, err
	}
	members, err := s.members.ListByDepartment(ctx, departmentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return members, nil
}

// LeaderFor resolves the department's current active leader, or nil when the
// department has none.
func (s *DirectoryService) LeaderFor(ctx context.Context, departmentID string) (*domain.DepartmentMember, error) {
	leader, err := s.members.LeaderForDepartment(ctx, departmentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return leader, nil
}
