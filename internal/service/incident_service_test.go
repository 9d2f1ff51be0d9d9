package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ops-console/internal/domain"
	apperrors "github.com/spec-kit/ops-console/pkg/util"
)

func TestCreateIncidentWithPlaybookGeneratesTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	network := f.seedDepartment(t, "Network", "net-lead@example.com")
	tmpl := f.seedTemplate(t, "Check links", network.ID, 4, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Outage response", "outage", tmpl.ID, tmpl.ID)

	incident, tasks, err := f.incidentSvc.Create(ctx, "ops@example.com", IncidentCreateInput{
		Title:        "Backbone down",
		IncidentType: "outage",
		PlaybookID:   &playbook.ID,
		Impact:       domain.IncidentImpactHigh,
		Context:      map[string]any{"region": "eu-west"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusOpen, incident.Status)
	assert.Equal(t, "ops@example.com", incident.CreatedBy)
	require.NotNil(t, incident.PlaybookID)
	assert.Equal(t, playbook.ID, *incident.PlaybookID)

	require.Len(t, tasks, 2)
	for i, task := range tasks {
		assert.Equal(t, incident.ID, task.IncidentID)
		assert.Equal(t, i+1, task.StepOrder)
	}

	// The playbook version is now pinned: the usage oracle reports it used.
	used, err := f.playbookSvc.IsPlaybookUsed(ctx, playbook.ID)
	require.NoError(t, err)
	assert.True(t, used)
}

func TestCreateIncidentWithoutPlaybook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident, tasks, err := f.incidentSvc.Create(ctx, "ops@example.com", IncidentCreateInput{
		Title:        "Odd alert",
		IncidentType: "unknown",
	})
	require.NoError(t, err)
	assert.Nil(t, incident.PlaybookID)
	assert.Empty(t, tasks)
	assert.Equal(t, domain.IncidentImpactMedium, incident.Impact)
}

func TestCreateIncidentRejectsInactivePlaybook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	network := f.seedDepartment(t, "Network")
	tmpl := f.seedTemplate(t, "Check links", network.ID, 4, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Outage response", "outage", tmpl.ID)
	f.seedIncidentOn(t, playbook.ID)

	// Forking deactivates the original version.
	_, err := f.playbookSvc.EnsureEditable(ctx, playbook.ID)
	require.NoError(t, err)

	_, _, err = f.incidentSvc.Create(ctx, "ops@example.com", IncidentCreateInput{
		Title:        "Another outage",
		IncidentType: "outage",
		PlaybookID:   &playbook.ID,
	})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestIncidentStatusLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident, _, err := f.incidentSvc.Create(ctx, "ops@example.com", IncidentCreateInput{
		Title:        "Backbone down",
		IncidentType: "outage",
	})
	require.NoError(t, err)

	// Closed requires Resolved first.
	_, err = f.incidentSvc.UpdateStatus(ctx, incident.ID, domain.IncidentStatusClosed)
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_TRANSITION", domainErr.Code)

	inProgress, err := f.incidentSvc.UpdateStatus(ctx, incident.ID, domain.IncidentStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusInProgress, inProgress.Status)

	resolved, err := f.incidentSvc.UpdateStatus(ctx, incident.ID, domain.IncidentStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusResolved, resolved.Status)

	// Resolved may reopen.
	reopened, err := f.incidentSvc.UpdateStatus(ctx, incident.ID, domain.IncidentStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusInProgress, reopened.Status)
	assert.Nil(t, reopened.ClosedAt)

	_, err = f.incidentSvc.UpdateStatus(ctx, incident.ID, domain.IncidentStatusResolved)
	require.NoError(t, err)
	closed, err := f.incidentSvc.UpdateStatus(ctx, incident.ID, domain.IncidentStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	// Closed is terminal.
	_, err = f.incidentSvc.UpdateStatus(ctx, incident.ID, domain.IncidentStatusOpen)
	require.Error(t, err)
}

func TestEditAfterUseNeverMutatesPinnedVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	network := f.seedDepartment(t, "Network", "net-lead@example.com")
	tmpl := f.seedTemplate(t, "Check links", network.ID, 4, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Outage response", "outage", tmpl.ID, tmpl.ID)

	incident, tasks, err := f.incidentSvc.Create(ctx, "ops@example.com", IncidentCreateInput{
		Title:        "Backbone down",
		IncidentType: "outage",
		PlaybookID:   &playbook.ID,
	})
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	// Editing the playbook now forks; the incident's pinned version and its
	// tasks are untouched.
	result, err := f.playbookSvc.UpdateDetails(ctx, playbook.ID, PlaybookUpdateInput{
		Description: strPtr("rewritten"),
	})
	require.NoError(t, err)
	require.True(t, result.Forked)

	pinned, err := f.incidentSvc.GetByID(ctx, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, playbook.ID, *pinned.PlaybookID)

	oldPlaybook, err := f.playbooks.GetByID(ctx, playbook.ID)
	require.NoError(t, err)
	assert.Empty(t, oldPlaybook.Description, "history unchanged")

	pinnedTasks, err := f.taskSvc.ListByIncident(ctx, incident.ID)
	require.NoError(t, err)
	assert.Len(t, pinnedTasks, 2)
}
