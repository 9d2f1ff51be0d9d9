package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveEffectiveTemplateDefaults(t *testing.T) {
	tmpl := &TaskTemplate{
		Title:               "Check links",
		DefaultDepartmentID: "dept-1",
		DefaultSLAValue:     4,
		DefaultSLAUnit:      SLAUnitHours,
	}
	eff := ResolveEffective(PlaybookStep{StepOrder: 1}, tmpl)

	assert.Equal(t, "Check links", eff.Title)
	assert.Equal(t, "dept-1", eff.DepartmentID)
	assert.Equal(t, 4, eff.SLAValue)
	assert.Equal(t, SLAUnitHours, eff.SLAUnit)
	assert.Equal(t, "Check links", eff.TemplateTitle)
}

func TestResolveEffectiveOverridesWin(t *testing.T) {
	tmpl := &TaskTemplate{
		Title:               "Check links",
		DefaultDepartmentID: "dept-1",
		DefaultSLAValue:     4,
		DefaultSLAUnit:      SLAUnitHours,
	}
	title := "Escalate"
	dept := "dept-2"
	val := 2
	unit := SLAUnitDays
	step := PlaybookStep{
		OverrideTitle:        &title,
		OverrideDepartmentID: &dept,
		OverrideSLAValue:     &val,
		OverrideSLAUnit:      &unit,
	}
	eff := ResolveEffective(step, tmpl)

	assert.Equal(t, "Escalate", eff.Title)
	assert.Equal(t, "dept-2", eff.DepartmentID)
	assert.Equal(t, 2, eff.SLAValue)
	assert.Equal(t, SLAUnitDays, eff.SLAUnit)
	assert.Equal(t, "Check links", eff.TemplateTitle, "provenance keeps the template title")
}

func TestResolveEffectiveNilTemplateDegrades(t *testing.T) {
	eff := ResolveEffective(PlaybookStep{}, nil)
	assert.Equal(t, FallbackStepTitle, eff.Title)
	assert.Empty(t, eff.TemplateTitle)
	assert.Empty(t, eff.DepartmentID)

	title := "Manual failover"
	eff = ResolveEffective(PlaybookStep{OverrideTitle: &title}, nil)
	assert.Equal(t, "Manual failover", eff.Title)
}

func TestSLAUnitDuration(t *testing.T) {
	assert.Equal(t, 4*time.Hour, SLAUnitHours.Duration(4))
	assert.Equal(t, 48*time.Hour, SLAUnitDays.Duration(2))
}

func TestDueFrom(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	eff := EffectiveStep{SLAValue: 3, SLAUnit: SLAUnitDays}
	assert.Equal(t, now.Add(72*time.Hour), eff.DueFrom(now))
}

func TestTaskStatusNext(t *testing.T) {
	assert.Equal(t, TaskStatusInProgress, TaskStatusPending.Next())
	assert.Equal(t, TaskStatusDone, TaskStatusInProgress.Next())
	assert.Equal(t, TaskStatusDone, TaskStatusDone.Next())
}
