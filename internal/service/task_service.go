package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-console/internal/domain"
	"github.com/spec-kit/ops-console/internal/events"
	"github.com/spec-kit/ops-console/internal/repository"
	apperrors "github.com/spec-kit/ops-console/pkg/util"
)

// TaskService manages the incident task lifecycle: forward-only status
// advancement, reassignment, evidence and ad hoc creation.
type TaskService struct {
	tasks      repository.TaskRepository
	incidents  repository.IncidentRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	TaskRepo     repository.TaskRepository
	IncidentRepo repository.IncidentRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// AdHocTaskInput is the payload for creating a task outside any playbook.
type AdHocTaskInput struct {
	Title        string
	DepartmentID string
	SLAValue     int
	SLAUnit      domain.SLAUnit
	AssignedTo   *string
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TaskService{
		tasks:      deps.TaskRepo,
		incidents:  deps.IncidentRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        now,
	}
}

// GetByID fetches a task.
func (s *TaskService) GetByID(ctx context.Context, taskID string) (*domain.IncidentTask, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task", map[string]any{"task_id": taskID})
		}
		return nil, apperrors.MapError(err)
	}
	return task, nil
}

// ListByIncident returns an incident's tasks in step order.
func (s *TaskService) ListByIncident(ctx context.Context, incidentID string) ([]domain.IncidentTask, error) {
	if _, err := s.incidents.GetByID(ctx, incidentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("incident", map[string]any{"incident_id": incidentID})
		}
		return nil, apperrors.MapError(err)
	}
	tasks, err := s.tasks.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tasks, nil
}

// ListByAssignee returns tasks assigned to the given user, soonest due first.
func (s *TaskService) ListByAssignee(ctx context.Context, email string) ([]domain.IncidentTask, error) {
	tasks, err := s.tasks.ListByAssignee(ctx, email)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tasks, nil
}

// Advance moves the task one status forward. Pending becomes InProgress,
// InProgress becomes Done. Advancing a Done task is a silent no-op. StartedAt
// is recorded the first time the task leaves Pending and never overwritten;
// completing a task that skipped InProgress backfills StartedAt with the
// completion instant.
func (s *TaskService) Advance(ctx context.Context, taskID string) (*domain.IncidentTask, error) {
	task, err := s.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == domain.TaskStatusDone {
		return task, nil
	}

	oldStatus := task.Status
	now := s.now()
	task.Status = task.Status.Next()
	task.LastStatusChangeAt = &now

	switch task.Status {
	case domain.TaskStatusInProgress:
		if task.StartedAt == nil {
			task.StartedAt = &now
		}
	case domain.TaskStatusDone:
		task.CompletedAt = &now
		if task.StartedAt == nil {
			task.StartedAt = &now
		}
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type: events.EventTaskStatusChanged,
		Payload: events.TaskStatusChangedPayload{
			TaskID:     task.ID,
			IncidentID: task.IncidentID,
			OldStatus:  oldStatus,
			NewStatus:  task.Status,
		},
	})
	return task, nil
}

// Reassign sets a new assignee and recomputes nothing else; due dates are
// fixed at creation. Reassignment is allowed in any status, Done included,
// and a new assignee is always notified. Assigning the same user again is a
// no-op and produces no notification.
func (s *TaskService) Reassign(ctx context.Context, taskID, email string) (*domain.IncidentTask, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.NewValidationError("assignee email required", nil)
	}
	task, err := s.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssignedTo != nil && *task.AssignedTo == email {
		return task, nil
	}

	task.AssignedTo = &email
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type: events.EventTaskAssigned,
		Payload: events.TaskAssignedPayload{
			TaskID:     task.ID,
			IncidentID: task.IncidentID,
			Title:      task.Title,
			AssignedTo: email,
		},
	})
	return task, nil
}

// AttachEvidence records free-form evidence on the task. Evidence may be
// attached in any non-terminal or terminal state.
func (s *TaskService) AttachEvidence(ctx context.Context, taskID, evidence string) (*domain.IncidentTask, error) {
	evidence = strings.TrimSpace(evidence)
	if evidence == "" {
		return nil, apperrors.NewValidationError("evidence required", nil)
	}
	task, err := s.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	task.Evidence = &evidence
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}
	return task, nil
}

// CreateAdHoc appends a task to an incident outside any playbook. The task
// takes the next step_order after the incident's current maximum so it sorts
// after the generated sequence.
func (s *TaskService) CreateAdHoc(ctx context.Context, incidentID string, input AdHocTaskInput) (*domain.IncidentTask, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if !input.SLAUnit.Valid() {
		return nil, apperrors.NewValidationError("sla_unit must be HOURS or DAYS", nil)
	}
	if input.SLAValue <= 0 {
		return nil, apperrors.NewValidationError("sla_value must be positive", nil)
	}
	if _, err := s.incidents.GetByID(ctx, incidentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("incident", map[string]any{"incident_id": incidentID})
		}
		return nil, apperrors.MapError(err)
	}

	existing, err := s.tasks.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	maxOrder := 0
	for _, t := range existing {
		if t.StepOrder > maxOrder {
			maxOrder = t.StepOrder
		}
	}

	now := s.now()
	task := &domain.IncidentTask{
		IncidentID:   incidentID,
		StepOrder:    maxOrder + 1,
		Title:        strings.TrimSpace(input.Title),
		DepartmentID: input.DepartmentID,
		SLAValue:     input.SLAValue,
		SLAUnit:      input.SLAUnit,
		DueAt:        now.Add(input.SLAUnit.Duration(input.SLAValue)),
		Status:       domain.TaskStatusPending,
		AssignedTo:   input.AssignedTo,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}

	if task.AssignedTo != nil {
		s.publish(ctx, events.Event{
			Type: events.EventTaskAssigned,
			Payload: events.TaskAssignedPayload{
				TaskID:     task.ID,
				IncidentID: task.IncidentID,
				Title:      task.Title,
				AssignedTo: *task.AssignedTo,
			},
		})
	}
	return task, nil
}

// CheckForOverdueTasks publishes a task_overdue event for every assigned,
// non-Done task past its due date. Deduplication of the resulting
// notifications is the subscriber's responsibility, so the poll is safe to
// run as often as the caller likes.
func (s *TaskService) CheckForOverdueTasks(ctx context.Context) (int, error) {
	overdue, err := s.tasks.ListOverdue(ctx, s.now())
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	for _, task := range overdue {
		s.publish(ctx, events.Event{
			Type: events.EventTaskOverdue,
			Payload: events.TaskOverduePayload{
				TaskID:     task.ID,
				IncidentID: task.IncidentID,
				Title:      task.Title,
				AssignedTo: *task.AssignedTo,
				DueAt:      task.DueAt,
			},
		})
	}
	if len(overdue) > 0 {
		s.logger.Info("overdue sweep completed", zap.Int("overdue_count", len(overdue)))
	}
	return len(overdue), nil
}

func (s *TaskService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
