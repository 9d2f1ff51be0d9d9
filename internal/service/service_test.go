package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-console/internal/domain"
	"github.com/spec-kit/ops-console/internal/events"
	"github.com/spec-kit/ops-console/internal/repository/memory"
)

// testNow is the frozen clock used by clock-sensitive services in tests.
var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type fixture struct {
	departments   *memory.DepartmentRepository
	templates     *memory.TemplateRepository
	members       *memory.MemberRepository
	playbooks     *memory.PlaybookRepository
	steps         *memory.StepRepository
	incidents     *memory.IncidentRepository
	tasks         *memory.TaskRepository
	notifications *memory.NotificationRepository
	dispatcher    events.Dispatcher

	playbookSvc *PlaybookService
	stepSvc     *StepService
	taskgenSvc  *TaskGenerationService
	taskSvc     *TaskService
	incidentSvc *IncidentService
	notifySvc   *NotificationService
	directory   *DirectoryService
	templateSvc *TemplateService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	f := &fixture{
		departments:   memory.NewDepartmentRepository(),
		templates:     memory.NewTemplateRepository(),
		members:       memory.NewMemberRepository(),
		playbooks:     memory.NewPlaybookRepository(),
		steps:         memory.NewStepRepository(),
		incidents:     memory.NewIncidentRepository(),
		tasks:         memory.NewTaskRepository(),
		notifications: memory.NewNotificationRepository(),
		dispatcher:    events.NewInMemoryDispatcher(),
	}
	tx := memory.NewTransactor()

	f.playbookSvc = NewPlaybookService(PlaybookDependencies{
		PlaybookRepo: f.playbooks,
		StepRepo:     f.steps,
		IncidentRepo: f.incidents,
		Transactor:   tx,
		Dispatcher:   f.dispatcher,
		Logger:       logger,
	})
	f.stepSvc = NewStepService(StepDependencies{
		PlaybookService: f.playbookSvc,
		StepRepo:        f.steps,
		TemplateRepo:    f.templates,
		DepartmentRepo:  f.departments,
		Transactor:      tx,
		Logger:          logger,
	})
	f.taskgenSvc = NewTaskGenerationService(TaskGenerationDependencies{
		StepService: f.stepSvc,
		MemberRepo:  f.members,
		TaskRepo:    f.tasks,
		Dispatcher:  f.dispatcher,
		Logger:      logger,
		Now:         func() time.Time { return testNow },
	})
	f.taskSvc = NewTaskService(TaskDependencies{
		TaskRepo:     f.tasks,
		IncidentRepo: f.incidents,
		Dispatcher:   f.dispatcher,
		Logger:       logger,
		Now:          func() time.Time { return testNow },
	})
	f.incidentSvc = NewIncidentService(IncidentDependencies{
		IncidentRepo:   f.incidents,
		PlaybookRepo:   f.playbooks,
		TaskGeneration: f.taskgenSvc,
		Dispatcher:     f.dispatcher,
		Logger:         logger,
	})
	f.notifySvc = NewNotificationService(NotificationDependencies{
		NotificationRepo: f.notifications,
		GuardTTL:         time.Hour,
		Logger:           logger,
	})
	f.notifySvc.RegisterHandlers(f.dispatcher)
	f.directory = NewDirectoryService(DirectoryDependencies{
		DepartmentRepo: f.departments,
		MemberRepo:     f.members,
		Logger:         logger,
	})
	f.templateSvc = NewTemplateService(TemplateDependencies{
		TemplateRepo:   f.templates,
		DepartmentRepo: f.departments,
		Logger:         logger,
	})
	return f
}

func (f *fixture) seedDepartment(t *testing.T, name string, leaderEmails ...string) *domain.Department {
	t.Helper()
	dept, err := f.directory.CreateDepartment(context.Background(), DepartmentInput{Name: name})
	require.NoError(t, err)
	for _, email := range leaderEmails {
		_, err := f.directory.AddMember(context.Background(), dept.ID, MemberInput{
			UserEmail: email,
			Role:      domain.MemberRoleLeader,
		})
		require.NoError(t, err)
	}
	return dept
}

func (f *fixture) seedTemplate(t *testing.T, title, departmentID string, slaValue int, slaUnit domain.SLAUnit) *domain.TaskTemplate {
	t.Helper()
	tmpl, err := f.templateSvc.Create(context.Background(), TemplateInput{
		Title:               title,
		DefaultDepartmentID: departmentID,
		DefaultSLAValue:     slaValue,
		DefaultSLAUnit:      slaUnit,
	})
	require.NoError(t, err)
	return tmpl
}

func (f *fixture) seedPlaybook(t *testing.T, name, incidentType string, templateIDs ...string) *domain.Playbook {
	t.Helper()
	playbook, err := f.playbookSvc.Create(context.Background(), PlaybookCreateInput{
		Name:         name,
		IncidentType: incidentType,
		Active:       true,
	})
	require.NoError(t, err)
	for i, templateID := range templateIDs {
		_, err := f.stepSvc.AddStep(context.Background(), playbook.ID, StepInput{
			Order:          i + 1,
			TaskTemplateID: templateID,
		})
		require.NoError(t, err)
	}
	return playbook
}

// seedIncidentOn pins an incident directly onto a playbook id without
// triggering generation, marking that version as used.
func (f *fixture) seedIncidentOn(t *testing.T, playbookID string) *domain.Incident {
	t.Helper()
	incident := &domain.Incident{
		Title:        "pinned",
		Status:       domain.IncidentStatusOpen,
		IncidentType: "generic",
		PlaybookID:   &playbookID,
		Impact:       domain.IncidentImpactMedium,
		CreatedBy:    "ops@example.com",
	}
	require.NoError(t, f.incidents.Create(context.Background(), incident))
	return incident
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func unitPtr(u domain.SLAUnit) *domain.SLAUnit { return &u }
