package domain

import "time"

// PlaybookStep is one entry in a playbook's ordered task list. It references a
// TaskTemplate and may override its title, department or SLA. StepOrder values
// within a playbook form a dense 1..N sequence; reorder and delete preserve
// that invariant.
type PlaybookStep struct {
	ID                   string
	PlaybookID           string
	StepOrder            int
	TaskTemplateID       string
	OverrideTitle        *string
	OverrideDepartmentID *string
	OverrideSLAValue     *int
	OverrideSLAUnit      *SLAUnit
	Active               bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// FallbackStepTitle is used when a step's template no longer resolves and the
// step carries no title override.
const FallbackStepTitle = "(unavailable template)"

// EffectiveStep is a step with its override-or-default resolution applied.
// TemplateTitle keeps the original template title for display provenance; it
// is empty when the template could not be resolved.
type EffectiveStep struct {
	Step          PlaybookStep
	Title         string
	DepartmentID  string
	SLAValue      int
	SLAUnit       SLAUnit
	TemplateTitle string
}

// ResolveEffective computes the effective fields of a step as
// "override, or template default". It is the single implementation of the
// override semantics used by listing, generation and display. A nil template
// (deleted or unresolvable) degrades to the override values and the fallback
// title instead of failing.
func ResolveEffective(step PlaybookStep, tmpl *TaskTemplate) EffectiveStep {
	eff := EffectiveStep{
		Step:    step,
		SLAUnit: SLAUnitHours,
	}
	if tmpl != nil {
		eff.Title = tmpl.Title
		eff.TemplateTitle = tmpl.Title
		eff.DepartmentID = tmpl.DefaultDepartmentID
		eff.SLAValue = tmpl.DefaultSLAValue
		eff.SLAUnit = tmpl.DefaultSLAUnit
	} else {
		eff.Title = FallbackStepTitle
	}
	if step.OverrideTitle != nil && *step.OverrideTitle != "" {
		eff.Title = *step.OverrideTitle
	}
	if step.OverrideDepartmentID != nil && *step.OverrideDepartmentID != "" {
		eff.DepartmentID = *step.OverrideDepartmentID
	}
	if step.OverrideSLAValue != nil {
		eff.SLAValue = *step.OverrideSLAValue
	}
	if step.OverrideSLAUnit != nil && *step.OverrideSLAUnit != "" {
		eff.SLAUnit = *step.OverrideSLAUnit
	}
	return eff
}

// DueFrom computes the due date for a task generated from this step.
func (e EffectiveStep) DueFrom(now time.Time) time.Time {
	return now.Add(e.SLAUnit.Duration(e.SLAValue))
}
