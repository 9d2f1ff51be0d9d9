package domain

import "time"

// User is an operator account. Admins manage the catalog (departments,
// templates, playbooks); everyone else works incidents and tasks. Identity is
// the email, which membership and task assignment reference.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
