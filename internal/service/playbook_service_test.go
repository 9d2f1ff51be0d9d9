package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ops-console/internal/domain"
	"github.com/spec-kit/ops-console/internal/events"
	"github.com/spec-kit/ops-console/internal/repository"
)

func TestEnsureEditableUnusedPlaybookEditsInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dept := f.seedDepartment(t, "Network")
	tmpl := f.seedTemplate(t, "Check links", dept.ID, 4, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Outage response", "outage", tmpl.ID)

	result, err := f.playbookSvc.EnsureEditable(ctx, playbook.ID)
	require.NoError(t, err)
	assert.False(t, result.Forked)
	assert.Equal(t, playbook.ID, result.Playbook.ID)
	assert.Equal(t, 1, result.Playbook.Version)

	// Idempotent: asking again keeps handing back the same version.
	again, err := f.playbookSvc.EnsureEditable(ctx, playbook.ID)
	require.NoError(t, err)
	assert.False(t, again.Forked)
	assert.Equal(t, playbook.ID, again.Playbook.ID)
	assert.Equal(t, 1, again.Playbook.Version)
}

func TestEnsureEditableUsedPlaybookForks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dept := f.seedDepartment(t, "Network")
	tmpl := f.seedTemplate(t, "Check links", dept.ID, 4, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Outage response", "outage", tmpl.ID, tmpl.ID, tmpl.ID)
	f.seedIncidentOn(t, playbook.ID)

	var forked []events.PlaybookForkedPayload
	var mu sync.Mutex
	f.dispatcher.Subscribe(events.EventPlaybookForked, func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		forked = append(forked, e.Payload.(events.PlaybookForkedPayload))
		return nil
	})

	result, err := f.playbookSvc.EnsureEditable(ctx, playbook.ID)
	require.NoError(t, err)
	require.True(t, result.Forked)
	assert.Equal(t, playbook.ID, result.PreviousID)
	assert.NotEqual(t, playbook.ID, result.Playbook.ID)
	assert.Equal(t, 2, result.Playbook.Version)
	assert.True(t, result.Playbook.IsActive)

	old, err := f.playbooks.GetByID(ctx, playbook.ID)
	require.NoError(t, err)
	assert.False(t, old.IsActive, "superseded version must be deactivated")
	assert.Equal(t, 1, old.Version)

	oldSteps, err := f.steps.ListByPlaybook(ctx, playbook.ID)
	require.NoError(t, err)
	newSteps, err := f.steps.ListByPlaybook(ctx, result.Playbook.ID)
	require.NoError(t, err)
	require.Len(t, oldSteps, 3, "fork must not touch the original step set")
	require.Len(t, newSteps, 3)
	for i := range newSteps {
		assert.Equal(t, oldSteps[i].StepOrder, newSteps[i].StepOrder)
		assert.Equal(t, oldSteps[i].TaskTemplateID, newSteps[i].TaskTemplateID)
		assert.NotEqual(t, oldSteps[i].ID, newSteps[i].ID, "cloned steps get fresh ids")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, forked, 1)
	assert.Equal(t, playbook.ID, forked[0].OldPlaybookID)
	assert.Equal(t, result.Playbook.ID, forked[0].NewPlaybookID)
}

func TestEnsureEditableForkedVersionIsEditableInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dept := f.seedDepartment(t, "Network")
	tmpl := f.seedTemplate(t, "Check links", dept.ID, 4, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Outage response", "outage", tmpl.ID)
	f.seedIncidentOn(t, playbook.ID)

	first, err := f.playbookSvc.EnsureEditable(ctx, playbook.ID)
	require.NoError(t, err)
	require.True(t, first.Forked)

	// The successor has no incidents yet, so it edits in place.
	second, err := f.playbookSvc.EnsureEditable(ctx, first.Playbook.ID)
	require.NoError(t, err)
	assert.False(t, second.Forked)
	assert.Equal(t, first.Playbook.ID, second.Playbook.ID)
}

func TestEnsureEditableForksAgainWhenSuccessorIsUsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dept := f.seedDepartment(t, "Network")
	tmpl := f.seedTemplate(t, "Check links", dept.ID, 4, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Outage response", "outage", tmpl.ID)
	f.seedIncidentOn(t, playbook.ID)

	v2, err := f.playbookSvc.EnsureEditable(ctx, playbook.ID)
	require.NoError(t, err)
	f.seedIncidentOn(t, v2.Playbook.ID)

	v3, err := f.playbookSvc.EnsureEditable(ctx, v2.Playbook.ID)
	require.NoError(t, err)
	require.True(t, v3.Forked)
	assert.Equal(t, 3, v3.Playbook.Version)

	// Only the newest version of the lineage stays active.
	active, err := f.playbookSvc.List(ctx, repository.PlaybookFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, v3.Playbook.ID, active[0].ID)
}

func TestUpdateDetailsOnUsedPlaybookLandsOnFork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dept := f.seedDepartment(t, "Network")
	tmpl := f.seedTemplate(t, "Check links", dept.ID, 4, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Outage response", "outage", tmpl.ID)
	f.seedIncidentOn(t, playbook.ID)

	result, err := f.playbookSvc.UpdateDetails(ctx, playbook.ID, PlaybookUpdateInput{
		Name: strPtr("Outage response v2"),
	})
	require.NoError(t, err)
	require.True(t, result.Forked)
	assert.Equal(t, "Outage response v2", result.Playbook.Name)

	// History keeps the original name.
	old, err := f.playbooks.GetByID(ctx, playbook.ID)
	require.NoError(t, err)
	assert.Equal(t, "Outage response", old.Name)
}

func TestIsPlaybookUsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dept := f.seedDepartment(t, "Network")
	tmpl := f.seedTemplate(t, "Check links", dept.ID, 4, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Outage response", "outage", tmpl.ID)

	used, err := f.playbookSvc.IsPlaybookUsed(ctx, playbook.ID)
	require.NoError(t, err)
	assert.False(t, used)

	f.seedIncidentOn(t, playbook.ID)
	used, err = f.playbookSvc.IsPlaybookUsed(ctx, playbook.ID)
	require.NoError(t, err)
	assert.True(t, used)
}

func TestEnsureEditableUnknownPlaybook(t *testing.T) {
	f := newFixture(t)
	_, err := f.playbookSvc.EnsureEditable(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
