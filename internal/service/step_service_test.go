package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ops-console/internal/domain"
	apperrors "github.com/spec-kit/ops-console/pkg/util"
)

func TestAddStepEnforcesAppendOnlyOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dept := f.seedDepartment(t, "Security")
	tmpl := f.seedTemplate(t, "Rotate credentials", dept.ID, 2, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Breach response", "breach", tmpl.ID)

	_, err := f.stepSvc.AddStep(ctx, playbook.ID, StepInput{Order: 3, TaskTemplateID: tmpl.ID})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)

	step, err := f.stepSvc.AddStep(ctx, playbook.ID, StepInput{Order: 2, TaskTemplateID: tmpl.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, step.StepOrder)
}

func TestAddStepRejectsUnknownTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dept := f.seedDepartment(t, "Security")
	tmpl := f.seedTemplate(t, "Rotate credentials", dept.ID, 2, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Breach response", "breach", tmpl.ID)

	_, err := f.stepSvc.AddStep(ctx, playbook.ID, StepInput{Order: 2, TaskTemplateID: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDeleteStepRenumbersDensely(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dept := f.seedDepartment(t, "Security")
	tmpl := f.seedTemplate(t, "Rotate credentials", dept.ID, 2, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Breach response", "breach", tmpl.ID, tmpl.ID, tmpl.ID, tmpl.ID)

	steps, err := f.steps.ListByPlaybook(ctx, playbook.ID)
	require.NoError(t, err)
	require.Len(t, steps, 4)

	// Remove the second step; survivors must be renumbered 1..3 with no gap.
	require.NoError(t, f.stepSvc.DeleteStep(ctx, playbook.ID, steps[1].ID))

	remaining, err := f.steps.ListByPlaybook(ctx, playbook.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 3)
	for i, step := range remaining {
		assert.Equal(t, i+1, step.StepOrder)
	}
	assert.Equal(t, steps[0].ID, remaining[0].ID)
	assert.Equal(t, steps[2].ID, remaining[1].ID)
	assert.Equal(t, steps[3].ID, remaining[2].ID)
}

func TestDeleteStepFromWrongPlaybook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dept := f.seedDepartment(t, "Security")
	tmpl := f.seedTemplate(t, "Rotate credentials", dept.ID, 2, domain.SLAUnitHours)
	playbookA := f.seedPlaybook(t, "Breach response", "breach", tmpl.ID)
	playbookB := f.seedPlaybook(t, "Outage response", "outage", tmpl.ID)

	stepsB, err := f.steps.ListByPlaybook(ctx, playbookB.ID)
	require.NoError(t, err)

	err = f.stepSvc.DeleteStep(ctx, playbookA.ID, stepsB[0].ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReorderMovesStepAndKeepsDenseSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dept := f.seedDepartment(t, "Security")
	tA := f.seedTemplate(t, "Task A", dept.ID, 1, domain.SLAUnitHours)
	tB := f.seedTemplate(t, "Task B", dept.ID, 1, domain.SLAUnitHours)
	tC := f.seedTemplate(t, "Task C", dept.ID, 1, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Breach response", "breach", tA.ID, tB.ID, tC.ID)

	// Move the last step to the front: C, A, B.
	reordered, err := f.stepSvc.Reorder(ctx, playbook.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, reordered, 3)
	assert.Equal(t, tC.ID, reordered[0].TaskTemplateID)
	assert.Equal(t, tA.ID, reordered[1].TaskTemplateID)
	assert.Equal(t, tB.ID, reordered[2].TaskTemplateID)

	persisted, err := f.steps.ListByPlaybook(ctx, playbook.ID)
	require.NoError(t, err)
	for i, step := range persisted {
		assert.Equal(t, i+1, step.StepOrder)
	}
	assert.Equal(t, tC.ID, persisted[0].TaskTemplateID)
}

func TestReorderOutOfRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dept := f.seedDepartment(t, "Security")
	tmpl := f.seedTemplate(t, "Task A", dept.ID, 1, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Breach response", "breach", tmpl.ID, tmpl.ID)

	_, err := f.stepSvc.Reorder(ctx, playbook.ID, 0, 5)
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)

	// Nothing moved.
	steps, err := f.steps.ListByPlaybook(ctx, playbook.ID)
	require.NoError(t, err)
	for i, step := range steps {
		assert.Equal(t, i+1, step.StepOrder)
	}
}

func TestStepMutationOnUsedPlaybookAbortsWithStaleVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dept := f.seedDepartment(t, "Security")
	tmpl := f.seedTemplate(t, "Task A", dept.ID, 1, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Breach response", "breach", tmpl.ID, tmpl.ID)
	f.seedIncidentOn(t, playbook.ID)

	steps, err := f.steps.ListByPlaybook(ctx, playbook.ID)
	require.NoError(t, err)

	err = f.stepSvc.DeleteStep(ctx, playbook.ID, steps[0].ID)
	require.Error(t, err)
	require.True(t, apperrors.IsStaleVersion(err))

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	newID, ok := domainErr.Details["new_playbook_id"].(string)
	require.True(t, ok)
	assert.Equal(t, playbook.ID, domainErr.Details["old_playbook_id"])

	// The fork itself went through: the successor exists with cloned steps,
	// and the aborted delete touched neither version.
	oldSteps, err := f.steps.ListByPlaybook(ctx, playbook.ID)
	require.NoError(t, err)
	assert.Len(t, oldSteps, 2)
	newSteps, err := f.steps.ListByPlaybook(ctx, newID)
	require.NoError(t, err)
	assert.Len(t, newSteps, 2)

	// Retrying against the successor with its own step id succeeds.
	require.NoError(t, f.stepSvc.DeleteStep(ctx, newID, newSteps[0].ID))
}

func TestListByPlaybookResolvesOverridesAndFallbacks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	deptA := f.seedDepartment(t, "Network")
	deptB := f.seedDepartment(t, "Security")
	tmpl := f.seedTemplate(t, "Check links", deptA.ID, 4, domain.SLAUnitHours)
	playbook := f.seedPlaybook(t, "Outage response", "outage")

	_, err := f.stepSvc.AddStep(ctx, playbook.ID, StepInput{
		Order:          1,
		TaskTemplateID: tmpl.ID,
	})
	require.NoError(t, err)
	_, err = f.stepSvc.AddStep(ctx, playbook.ID, StepInput{
		Order:                2,
		TaskTemplateID:       tmpl.ID,
		OverrideTitle:        strPtr("Escalate to security"),
		OverrideDepartmentID: strPtr(deptB.ID),
		OverrideSLAValue:     intPtr(1),
		OverrideSLAUnit:      unitPtr(domain.SLAUnitDays),
	})
	require.NoError(t, err)

	expanded, err := f.stepSvc.ListByPlaybook(ctx, playbook.ID)
	require.NoError(t, err)
	require.Len(t, expanded, 2)

	assert.Equal(t, "Check links", expanded[0].Title)
	assert.Equal(t, "Network", expanded[0].DepartmentName)
	assert.Equal(t, 4, expanded[0].SLAValue)
	assert.Equal(t, domain.SLAUnitHours, expanded[0].SLAUnit)

	assert.Equal(t, "Escalate to security", expanded[1].Title)
	assert.Equal(t, "Security", expanded[1].DepartmentName)
	assert.Equal(t, 1, expanded[1].SLAValue)
	assert.Equal(t, domain.SLAUnitDays, expanded[1].SLAUnit)
	assert.Equal(t, "Check links", expanded[1].TemplateTitle)

	// Deleting the template degrades the first step to the fallback title
	// instead of failing the listing.
	f.templates.Delete(tmpl.ID)
	expanded, err = f.stepSvc.ListByPlaybook(ctx, playbook.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FallbackStepTitle, expanded[0].Title)
	assert.Equal(t, UnknownDepartmentName, expanded[0].DepartmentName)
	assert.Equal(t, "Escalate to security", expanded[1].Title, "override survives template loss")
}
