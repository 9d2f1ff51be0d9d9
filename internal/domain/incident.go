package domain

import "time"

// IncidentStatus enumerates lifecycle states for incidents.
type IncidentStatus string

const (
	IncidentStatusOpen       IncidentStatus = "OPEN"
	IncidentStatusInProgress IncidentStatus = "IN_PROGRESS"
	IncidentStatusResolved   IncidentStatus = "RESOLVED"
	IncidentStatusClosed     IncidentStatus = "CLOSED"
)

// IncidentImpact enumerates coarse impact levels.
type IncidentImpact string

const (
	IncidentImpactLow      IncidentImpact = "LOW"
	IncidentImpactMedium   IncidentImpact = "MEDIUM"
	IncidentImpactHigh     IncidentImpact = "HIGH"
	IncidentImpactCritical IncidentImpact = "CRITICAL"
)

// Incident is the aggregate for operational incidents. Once PlaybookID is set
// the referenced playbook version is load-bearing history: the usage oracle
// checks exactly this reference before allowing in-place playbook edits.
type Incident struct {
	ID           string
	Title        string
	Description  string
	Status       IncidentStatus
	IncidentType string
	PlaybookID   *string
	Context      map[string]any
	Impact       IncidentImpact
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ClosedAt     *time.Time
}
