package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ops-console/internal/domain"
)

func (f *fixture) seedTask(t *testing.T, incidentID string, assignee *string, dueAt time.Time) *domain.IncidentTask {
	t.Helper()
	task := &domain.IncidentTask{
		IncidentID:   incidentID,
		StepOrder:    1,
		Title:        "Restore service",
		DepartmentID: "",
		SLAValue:     4,
		SLAUnit:      domain.SLAUnitHours,
		DueAt:        dueAt,
		Status:       domain.TaskStatusPending,
		AssignedTo:   assignee,
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))
	return task
}

func (f *fixture) seedBareIncident(t *testing.T) *domain.Incident {
	t.Helper()
	incident := &domain.Incident{
		Title:        "standalone",
		Status:       domain.IncidentStatusOpen,
		IncidentType: "generic",
		Impact:       domain.IncidentImpactLow,
		CreatedBy:    "ops@example.com",
	}
	require.NoError(t, f.incidents.Create(context.Background(), incident))
	return incident
}

func TestAdvanceWalksForwardAndStampsTimestamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.seedBareIncident(t)
	task := f.seedTask(t, incident.ID, strPtr("ops@example.com"), testNow.Add(4*time.Hour))

	started, err := f.taskSvc.Advance(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, started.Status)
	require.NotNil(t, started.StartedAt)
	assert.Equal(t, testNow, *started.StartedAt)
	require.NotNil(t, started.LastStatusChangeAt)
	assert.Nil(t, started.CompletedAt)

	done, err := f.taskSvc.Advance(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusDone, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, testNow, *done.CompletedAt)
	require.NotNil(t, done.StartedAt, "StartedAt survives completion")
}

func TestAdvanceOnDoneTaskIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.seedBareIncident(t)
	task := f.seedTask(t, incident.ID, strPtr("ops@example.com"), testNow.Add(time.Hour))

	_, err := f.taskSvc.Advance(ctx, task.ID)
	require.NoError(t, err)
	done, err := f.taskSvc.Advance(ctx, task.ID)
	require.NoError(t, err)
	completedAt := *done.CompletedAt

	again, err := f.taskSvc.Advance(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusDone, again.Status)
	assert.Equal(t, completedAt, *again.CompletedAt, "no-op must not restamp")
}

func TestReassignNotifiesNewAssigneeOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.seedBareIncident(t)
	task := f.seedTask(t, incident.ID, strPtr("old@example.com"), testNow.Add(time.Hour))

	updated, err := f.taskSvc.Reassign(ctx, task.ID, "new@example.com")
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, "new@example.com", *updated.AssignedTo)

	notes, err := f.notifySvc.ListForUser(ctx, "new@example.com", 10, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationTaskAssigned, notes[0].Type)

	// Reassigning to the same user again is silent.
	_, err = f.taskSvc.Reassign(ctx, task.ID, "new@example.com")
	require.NoError(t, err)
	notes, err = f.notifySvc.ListForUser(ctx, "new@example.com", 10, 0)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestReassignCompletedTaskStillNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.seedBareIncident(t)
	task := f.seedTask(t, incident.ID, strPtr("ops@example.com"), testNow.Add(time.Hour))
	_, err := f.taskSvc.Advance(ctx, task.ID)
	require.NoError(t, err)
	_, err = f.taskSvc.Advance(ctx, task.ID)
	require.NoError(t, err)

	// Handing a finished task to someone else still lands and notifies, for
	// example for follow-up ownership.
	updated, err := f.taskSvc.Reassign(ctx, task.ID, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusDone, updated.Status)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, "new@example.com", *updated.AssignedTo)

	notes, err := f.notifySvc.ListForUser(ctx, "new@example.com", 10, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationTaskAssigned, notes[0].Type)
}

func TestCreateAdHocAppendsAfterGeneratedSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.seedBareIncident(t)
	f.seedTask(t, incident.ID, nil, testNow.Add(time.Hour))

	task, err := f.taskSvc.CreateAdHoc(ctx, incident.ID, AdHocTaskInput{
		Title:    "Verify backups",
		SLAValue: 2,
		SLAUnit:  domain.SLAUnitDays,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, task.StepOrder)
	assert.Equal(t, testNow.Add(48*time.Hour), task.DueAt)
	assert.Equal(t, domain.TaskStatusPending, task.Status)
}

func TestCheckForOverdueTasksDedupsNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.seedBareIncident(t)
	f.seedTask(t, incident.ID, strPtr("ops@example.com"), testNow.Add(-time.Hour))
	f.seedTask(t, incident.ID, nil, testNow.Add(-time.Hour)) // unassigned, never notifies
	f.seedTask(t, incident.ID, strPtr("ops@example.com"), testNow.Add(time.Hour))

	count, err := f.taskSvc.CheckForOverdueTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	notes, err := f.notifySvc.ListForUser(ctx, "ops@example.com", 10, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationTaskOverdue, notes[0].Type)

	// Repeated sweeps stay silent for the same (user, task) pair.
	for i := 0; i < 3; i++ {
		_, err = f.taskSvc.CheckForOverdueTasks(ctx)
		require.NoError(t, err)
	}
	notes, err = f.notifySvc.ListForUser(ctx, "ops@example.com", 10, 0)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestCompletedOverdueTaskStopsNotifying(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.seedBareIncident(t)
	task := f.seedTask(t, incident.ID, strPtr("ops@example.com"), testNow.Add(-time.Hour))

	_, err := f.taskSvc.Advance(ctx, task.ID)
	require.NoError(t, err)
	_, err = f.taskSvc.Advance(ctx, task.ID)
	require.NoError(t, err)

	count, err := f.taskSvc.CheckForOverdueTasks(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAttachEvidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.seedBareIncident(t)
	task := f.seedTask(t, incident.ID, strPtr("ops@example.com"), testNow.Add(time.Hour))

	updated, err := f.taskSvc.AttachEvidence(ctx, task.ID, "https://wiki/postmortem-123")
	require.NoError(t, err)
	require.NotNil(t, updated.Evidence)
	assert.Equal(t, "https://wiki/postmortem-123", *updated.Evidence)

	_, err = f.taskSvc.AttachEvidence(ctx, task.ID, "   ")
	require.Error(t, err)
}
