package domain

import "time"

// TaskStatus enumerates lifecycle states for incident tasks. Status only moves
// forward: Pending -> InProgress -> Done.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// Next returns the next forward status, or the same status when terminal.
func (s TaskStatus) Next() TaskStatus {
	switch s {
	case TaskStatusPending:
		return TaskStatusInProgress
	case TaskStatusInProgress:
		return TaskStatusDone
	default:
		return s
	}
}

// IncidentTask is a concrete unit of work on an incident, either expanded from
// a playbook step or created ad hoc.
type IncidentTask struct {
	ID                 string
	IncidentID         string
	StepOrder          int
	Title              string
	DepartmentID       string
	SLAValue           int
	SLAUnit            SLAUnit
	DueAt              time.Time
	Status             TaskStatus
	AssignedTo         *string
	Evidence           *string
	CreatedAt          time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	LastStatusChangeAt *time.Time
}

// Overdue reports whether the task is past due and still open.
func (t *IncidentTask) Overdue(now time.Time) bool {
	return t.Status != TaskStatusDone && now.After(t.DueAt)
}
