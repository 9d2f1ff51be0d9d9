package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ops-console/internal/domain"
)

func TestGenerateFromPlaybookAssignsLeadersAndDueDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	network := f.seedDepartment(t, "Network", "net-lead@example.com")
	security := f.seedDepartment(t, "Security", "sec-lead@example.com")
	checkLinks := f.seedTemplate(t, "Check links", network.ID, 4, domain.SLAUnitHours)
	rotateKeys := f.seedTemplate(t, "Rotate keys", security.ID, 2, domain.SLAUnitDays)
	playbook := f.seedPlaybook(t, "Outage response", "outage", checkLinks.ID, rotateKeys.ID)

	incident := f.seedIncidentOn(t, playbook.ID)
	tasks, err := f.taskgenSvc.GenerateFromPlaybook(ctx, incident.ID, playbook.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, 1, tasks[0].StepOrder)
	assert.Equal(t, "Check links", tasks[0].Title)
	assert.Equal(t, domain.TaskStatusPending, tasks[0].Status)
	require.NotNil(t, tasks[0].AssignedTo)
	assert.Equal(t, "net-lead@example.com", *tasks[0].AssignedTo)
	assert.Equal(t, testNow.Add(4*time.Hour), tasks[0].DueAt)

	assert.Equal(t, 2, tasks[1].StepOrder)
	require.NotNil(t, tasks[1].AssignedTo)
	assert.Equal(t, "sec-lead@example.com", *tasks[1].AssignedTo)
	assert.Equal(t, testNow.Add(48*time.Hour), tasks[1].DueAt, "day SLAs are 24h multiples")

	// Assignment notifications were materialized for both leaders.
	notes, err := f.notifySvc.ListForUser(ctx, "net-lead@example.com", 10, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationTaskAssigned, notes[0].Type)
	assert.Equal(t, tasks[0].ID, notes[0].EntityID)
}

func TestGenerateFromPlaybookLeaderlessDepartmentLeavesUnassigned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	network := f.seedDepartment(t, "Network")
	tmpl := f.seedTemplate(t, "Check links", network.ID, 4, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Outage response", "outage", tmpl.ID)

	incident := f.seedIncidentOn(t, playbook.ID)
	tasks, err := f.taskgenSvc.GenerateFromPlaybook(ctx, incident.ID, playbook.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Nil(t, tasks[0].AssignedTo)
}

func TestGenerateFromPlaybookMostRecentLeaderWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	network := f.seedDepartment(t, "Network", "first-lead@example.com", "second-lead@example.com")
	tmpl := f.seedTemplate(t, "Check links", network.ID, 4, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Outage response", "outage", tmpl.ID)

	incident := f.seedIncidentOn(t, playbook.ID)
	tasks, err := f.taskgenSvc.GenerateFromPlaybook(ctx, incident.ID, playbook.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].AssignedTo)
	assert.Equal(t, "second-lead@example.com", *tasks[0].AssignedTo)
}

func TestGenerateFromPlaybookDegradedTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	network := f.seedDepartment(t, "Network", "net-lead@example.com")
	tmpl := f.seedTemplate(t, "Check links", network.ID, 4, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Outage response", "outage", tmpl.ID, tmpl.ID)

	// Second step overrides everything, first step relies on the template.
	_, err := f.stepSvc.AddStep(ctx, playbook.ID, StepInput{
		Order:                3,
		TaskTemplateID:       tmpl.ID,
		OverrideTitle:        strPtr("Manual failover"),
		OverrideDepartmentID: strPtr(network.ID),
		OverrideSLAValue:     intPtr(6),
		OverrideSLAUnit:      unitPtr(domain.SLAUnitHours),
	})
	require.NoError(t, err)

	f.templates.Delete(tmpl.ID)

	incident := f.seedIncidentOn(t, playbook.ID)
	tasks, err := f.taskgenSvc.GenerateFromPlaybook(ctx, incident.ID, playbook.ID)
	require.NoError(t, err, "a dangling template must not abort generation")
	require.Len(t, tasks, 3)

	assert.Equal(t, domain.FallbackStepTitle, tasks[0].Title)
	assert.Nil(t, tasks[0].AssignedTo, "no department resolvable, stays unassigned")

	assert.Equal(t, "Manual failover", tasks[2].Title)
	require.NotNil(t, tasks[2].AssignedTo)
	assert.Equal(t, "net-lead@example.com", *tasks[2].AssignedTo)
	assert.Equal(t, testNow.Add(6*time.Hour), tasks[2].DueAt)
}

func TestGenerateFromPlaybookSkipsInactiveSteps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	network := f.seedDepartment(t, "Network")
	tmpl := f.seedTemplate(t, "Check links", network.ID, 4, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Outage response", "outage", tmpl.ID, tmpl.ID)

	steps, err := f.steps.ListByPlaybook(ctx, playbook.ID)
	require.NoError(t, err)
	disabled := steps[0]
	disabled.Active = false
	require.NoError(t, f.steps.Delete(ctx, disabled.ID))
	require.NoError(t, f.steps.Create(ctx, &disabled))

	incident := f.seedIncidentOn(t, playbook.ID)
	tasks, err := f.taskgenSvc.GenerateFromPlaybook(ctx, incident.ID, playbook.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 2, tasks[0].StepOrder)
}
