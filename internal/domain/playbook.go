package domain

import "time"

// Playbook is one version of a named response procedure. Versions of the same
// lineage share a name and incident type; at most one version of a lineage is
// active. A version referenced by any incident is frozen and edits fork a new
// version instead of mutating it.
type Playbook struct {
	ID           string
	Name         string
	IncidentType string
	Description  string
	IsActive     bool
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
