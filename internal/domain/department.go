package domain

import "time"

// Department represents a high-level organizational unit. Departments are
// soft-deactivated, never hard-deleted: historical steps and tasks may keep
// referencing an inactive department.
type Department struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
