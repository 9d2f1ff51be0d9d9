package domain

import "time"

// MemberRole enumerates department membership roles.
type MemberRole string

const (
	MemberRoleLeader MemberRole = "LEADER"
	MemberRoleMember MemberRole = "MEMBER"
)

// DepartmentMember links a user (by email) to a department. The active leader
// of a department is the default assignee for tasks routed to it.
type DepartmentMember struct {
	ID           string
	DepartmentID string
	UserEmail    string
	Role         MemberRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
