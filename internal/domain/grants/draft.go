package grants

import (
	"fmt"
	"strings"
)

type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// StepIssues evaluates one step's predicate against the draft's current
// field values. It is a pure function of the draft and the leave type
// catalog snapshot; nothing is cached, so validity can never go stale.
func (d *GrantDraft) StepIssues(step int, types map[string]LeaveType) []Issue {
	switch step {
	case StepTitle:
		if strings.TrimSpace(d.Title) == "" {
			return []Issue{{Field: "title", Reason: "must not be empty"}}
		}
	case StepLeaveType:
		if d.LeaveTypeID == "" {
			return []Issue{{Field: "leaveTypeId", Reason: "a leave type must be selected"}}
		}
		if _, ok := types[d.LeaveTypeID]; !ok {
			return []Issue{{Field: "leaveTypeId", Reason: "unknown leave type"}}
		}
	case StepEmployees:
		if len(d.EmployeeIDs) == 0 {
			return []Issue{{Field: "employeeIds", Reason: "at least one employee must be selected"}}
		}
	case StepMode:
		if d.Mode != ModeUniform && d.Mode != ModeIndividual {
			return []Issue{{Field: "mode", Reason: "must be uniform or individual"}}
		}
	case StepDetails:
		return d.detailIssues(types)
	case StepReview:
		// Review re-validates everything; cached validity is never trusted.
		var issues []Issue
		for s := StepTitle; s < StepReview; s++ {
			issues = append(issues, d.StepIssues(s, types)...)
		}
		return issues
	}
	return nil
}

// CanProceed reports whether the current step's predicate holds.
func (d *GrantDraft) CanProceed(types map[string]LeaveType) bool {
	return len(d.StepIssues(d.CurrentStep, types)) == 0
}

func (d *GrantDraft) detailIssues(types map[string]LeaveType) []Issue {
	switch d.Mode {
	case ModeUniform:
		return d.uniformIssues(types)
	case ModeIndividual:
		return d.individualIssues(types)
	}
	return []Issue{{Field: "mode", Reason: "must be chosen before details"}}
}

func (d *GrantDraft) uniformIssues(types map[string]LeaveType) []Issue {
	var issues []Issue
	maxDays := d.maxDays(types)
	switch {
	case d.DaysGranted == nil:
		issues = append(issues, Issue{Field: "daysGranted", Reason: "is required"})
	case *d.DaysGranted < 0:
		issues = append(issues, Issue{Field: "daysGranted", Reason: "must not be negative"})
	case maxDays != nil && *d.DaysGranted > *maxDays:
		issues = append(issues, Issue{Field: "daysGranted", Reason: fmt.Sprintf("must not exceed %g days for this leave type", *maxDays)})
	}
	if d.PeriodStart.IsZero() {
		issues = append(issues, Issue{Field: "periodStart", Reason: "is required"})
	}
	if d.PeriodEnd.IsZero() {
		issues = append(issues, Issue{Field: "periodEnd", Reason: "is required"})
	}
	if !d.PeriodStart.IsZero() && !d.PeriodEnd.IsZero() && d.PeriodEnd.Before(d.PeriodStart) {
		issues = append(issues, Issue{Field: "periodEnd", Reason: "must be on or after periodStart"})
	}
	if d.Carryover == nil {
		issues = append(issues, Issue{Field: "carryoverRule", Reason: "is required"})
	} else if !d.PeriodEnd.IsZero() {
		expiration, err := d.Carryover.Resolve(d.PeriodEnd)
		if err != nil {
			issues = append(issues, Issue{Field: "carryoverRule", Reason: err.Error()})
		} else if !expiration.After(d.PeriodEnd) {
			issues = append(issues, Issue{Field: "carryoverRule", Reason: "resolved expiration must be strictly after periodEnd"})
		}
	}
	return issues
}

func (d *GrantDraft) individualIssues(types map[string]LeaveType) []Issue {
	if len(d.Lines) == 0 {
		return []Issue{{Field: "upload", Reason: "a parsed upload covering every selected employee is required"}}
	}

	var issues []Issue
	selected := make(map[string]bool, len(d.EmployeeIDs))
	for _, id := range d.EmployeeIDs {
		selected[id] = true
	}
	for id := range d.Lines {
		if !selected[id] {
			issues = append(issues, Issue{Field: "upload", Reason: fmt.Sprintf("row for %s is not in the selected employees", id)})
		}
	}
	maxDays := d.maxDays(types)
	for _, id := range d.EmployeeIDs {
		line, ok := d.Lines[id]
		if !ok {
			issues = append(issues, Issue{Field: "upload", Reason: fmt.Sprintf("missing row for %s", id)})
			continue
		}
		issues = append(issues, lineIssues(id, line, maxDays)...)
	}
	return issues
}

func lineIssues(employeeID string, line GrantLine, maxDays *float64) []Issue {
	var issues []Issue
	field := func(name string) string {
		return fmt.Sprintf("rows.%s.%s", employeeID, name)
	}
	if line.DaysGranted < 0 {
		issues = append(issues, Issue{Field: field("daysGranted"), Reason: "must not be negative"})
	} else if maxDays != nil && line.DaysGranted > *maxDays {
		issues = append(issues, Issue{Field: field("daysGranted"), Reason: fmt.Sprintf("must not exceed %g days for this leave type", *maxDays)})
	}
	if line.PeriodStart.IsZero() {
		issues = append(issues, Issue{Field: field("periodStart"), Reason: "is required"})
	}
	if line.PeriodEnd.IsZero() {
		issues = append(issues, Issue{Field: field("periodEnd"), Reason: "is required"})
	}
	if !line.PeriodStart.IsZero() && !line.PeriodEnd.IsZero() && line.PeriodEnd.Before(line.PeriodStart) {
		issues = append(issues, Issue{Field: field("periodEnd"), Reason: "must be on or after periodStart"})
	}
	if line.CarryoverExpiration.IsZero() {
		issues = append(issues, Issue{Field: field("carryoverExpiration"), Reason: "is required"})
	} else if !line.PeriodEnd.IsZero() && !line.CarryoverExpiration.After(line.PeriodEnd) {
		issues = append(issues, Issue{Field: field("carryoverExpiration"), Reason: "must be strictly after periodEnd"})
	}
	return issues
}

// maxDays returns the selected leave type's declared maximum, or nil when no
// maximum is declared and any non-negative value is acceptable.
func (d *GrantDraft) maxDays(types map[string]LeaveType) *float64 {
	if t, ok := types[d.LeaveTypeID]; ok {
		return t.MaxDays
	}
	return nil
}
