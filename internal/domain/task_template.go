package domain

import "time"

// SLAUnit is the time unit an SLA value is expressed in.
type SLAUnit string

const (
	SLAUnitHours SLAUnit = "HOURS"
	SLAUnitDays  SLAUnit = "DAYS"
)

// Valid reports whether the unit is one of the supported values.
func (u SLAUnit) Valid() bool {
	return u == SLAUnitHours || u == SLAUnitDays
}

// Duration converts an SLA value in this unit to a time.Duration. Days are
// exact 24h multiples, no calendar arithmetic.
func (u SLAUnit) Duration(value int) time.Duration {
	if u == SLAUnitDays {
		return time.Duration(value) * 24 * time.Hour
	}
	return time.Duration(value) * time.Hour
}

// TaskTemplate is a reusable task definition. Playbook steps reference a
// template and may override its title, department or SLA per step.
type TaskTemplate struct {
	ID                  string
	Title               string
	Description         string
	DefaultDepartmentID string
	DefaultSLAValue     int
	DefaultSLAUnit      SLAUnit
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
