package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-console/internal/domain"
	"github.com/spec-kit/ops-console/internal/events"
	"github.com/spec-kit/ops-console/internal/repository"
	apperrors "github.com/spec-kit/ops-console/pkg/util"
)

// TaskGenerationService expands a playbook into concrete incident tasks.
// Generation never aborts mid-sequence for soft failures (missing template,
// leaderless department); those degrade per step so an incident always gets
// the full task list its playbook describes.
type TaskGenerationService struct {
	stepSvc    *StepService
	members    repository.MemberRepository
	tasks      repository.TaskRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TaskGenerationDependencies bundles collaborators for generation.
type TaskGenerationDependencies struct {
	StepService *StepService
	MemberRepo  repository.MemberRepository
	TaskRepo    repository.TaskRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	// Now overrides the generation clock. Nil means time.Now.
	Now func() time.Time
}

// NewTaskGenerationService constructs the service.
func NewTaskGenerationService(deps TaskGenerationDependencies) *TaskGenerationService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TaskGenerationService{
		stepSvc:    deps.StepService,
		members:    deps.MemberRepo,
		tasks:      deps.TaskRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        now,
	}
}

// GenerateFromPlaybook creates one task per active playbook step, in step
// order. Each task carries the step's effective title, department and SLA;
// the due date is generation time plus the SLA window. The task is assigned
// to the department's active leader when one exists, otherwise it stays
// unassigned. Store failures propagate; already created tasks are kept.
func (s *TaskGenerationService) GenerateFromPlaybook(ctx context.Context, incidentID, playbookID string) ([]domain.IncidentTask, error) {
	expanded, err := s.stepSvc.ListByPlaybook(ctx, playbookID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	created := make([]domain.IncidentTask, 0, len(expanded))
	for _, step := range expanded {
		if !step.Step.Active {
			continue
		}

		task := domain.IncidentTask{
			IncidentID:   incidentID,
			StepOrder:    step.Step.StepOrder,
			Title:        step.Title,
			DepartmentID: step.DepartmentID,
			SLAValue:     step.SLAValue,
			SLAUnit:      step.SLAUnit,
			DueAt:        step.DueFrom(now),
			Status:       domain.TaskStatusPending,
		}

		if step.DepartmentID != "" {
			leader, err := s.members.LeaderForDepartment(ctx, step.DepartmentID)
			if err != nil {
				return created, apperrors.MapError(err)
			}
			if leader != nil {
				email := leader.UserEmail
				task.AssignedTo = &email
			} else {
				s.logger.Warn("no active leader, task left unassigned",
					zap.String("incident_id", incidentID),
					zap.String("department_id", step.DepartmentID),
					zap.Int("step_order", step.Step.StepOrder))
			}
		}

		if err := s.tasks.Create(ctx, &task); err != nil {
			return created, apperrors.MapError(err)
		}
		created = append(created, task)

		if task.AssignedTo != nil {
			s.publishAssigned(ctx, task)
		}
	}

	s.logger.Info("tasks generated from playbook",
		zap.String("incident_id", incidentID),
		zap.String("playbook_id", playbookID),
		zap.Int("task_count", len(created)))
	return created, nil
}

func (s *TaskGenerationService) publishAssigned(ctx context.Context, task domain.IncidentTask) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTaskAssigned,
		Timestamp: s.now(),
		Payload: events.TaskAssignedPayload{
			TaskID:     task.ID,
			IncidentID: task.IncidentID,
			Title:      task.Title,
			AssignedTo: *task.AssignedTo,
		},
	})
}
