package grants

import (
	"testing"
	"time"
)

func typesByID() map[string]LeaveType {
	m := make(map[string]LeaveType)
	for _, t := range testTypes() {
		m[t.ID] = t
	}
	return m
}

func TestStepIssuesTitle(t *testing.T) {
	d := NewDraft()
	if issues := d.StepIssues(StepTitle, typesByID()); len(issues) != 1 || issues[0].Field != "title" {
		t.Fatalf("expected title issue, got %+v", issues)
	}
	d.Title = "   "
	if issues := d.StepIssues(StepTitle, typesByID()); len(issues) != 1 {
		t.Fatalf("whitespace title must not pass, got %+v", issues)
	}
	d.Title = "Grant"
	if issues := d.StepIssues(StepTitle, typesByID()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestStepIssuesLeaveType(t *testing.T) {
	d := NewDraft()
	if issues := d.StepIssues(StepLeaveType, typesByID()); len(issues) != 1 {
		t.Fatalf("expected issue for empty type, got %+v", issues)
	}
	d.LeaveTypeID = "lt-missing"
	if issues := d.StepIssues(StepLeaveType, typesByID()); len(issues) != 1 || issues[0].Reason != "unknown leave type" {
		t.Fatalf("expected unknown type issue, got %+v", issues)
	}
	d.LeaveTypeID = "lt-annual"
	if issues := d.StepIssues(StepLeaveType, typesByID()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestStepIssuesEmployeesAndMode(t *testing.T) {
	d := NewDraft()
	if issues := d.StepIssues(StepEmployees, typesByID()); len(issues) != 1 {
		t.Fatalf("expected employees issue, got %+v", issues)
	}
	d.EmployeeIDs = []string{"e1"}
	if issues := d.StepIssues(StepEmployees, typesByID()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}

	if issues := d.StepIssues(StepMode, typesByID()); len(issues) != 1 {
		t.Fatalf("expected mode issue, got %+v", issues)
	}
	d.Mode = ModeUniform
	if issues := d.StepIssues(StepMode, typesByID()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestUniformDetailIssues(t *testing.T) {
	days := 30.0
	d := NewDraft()
	d.LeaveTypeID = "lt-annual"
	d.Mode = ModeUniform
	d.DaysGranted = &days
	d.PeriodStart = date(2026, time.December, 31)
	d.PeriodEnd = date(2026, time.January, 1)
	d.Carryover = &CarryoverRule{Kind: CarryoverSpecificDate, Date: date(2026, time.January, 1)}

	issues := d.StepIssues(StepDetails, typesByID())
	byField := map[string]string{}
	for _, issue := range issues {
		byField[issue.Field] = issue.Reason
	}
	if _, ok := byField["daysGranted"]; !ok {
		t.Fatalf("expected daysGranted issue, got %+v", issues)
	}
	if _, ok := byField["periodEnd"]; !ok {
		t.Fatalf("expected periodEnd ordering issue, got %+v", issues)
	}
	if _, ok := byField["carryoverRule"]; !ok {
		t.Fatalf("expected carryoverRule issue, got %+v", issues)
	}
}

func TestUniformDetailNoMaxForUncappedType(t *testing.T) {
	days := 400.0
	d := NewDraft()
	d.LeaveTypeID = "lt-unpaid"
	d.Mode = ModeUniform
	d.DaysGranted = &days
	d.PeriodStart = date(2026, time.January, 1)
	d.PeriodEnd = date(2026, time.December, 31)
	d.Carryover = &CarryoverRule{Kind: CarryoverMonthsAfter, Months: 1}

	if issues := d.StepIssues(StepDetails, typesByID()); len(issues) != 0 {
		t.Fatalf("uncapped type must accept any non-negative days, got %+v", issues)
	}
}

func TestIndividualDetailIssues(t *testing.T) {
	d := NewDraft()
	d.LeaveTypeID = "lt-annual"
	d.Mode = ModeIndividual
	d.EmployeeIDs = []string{"e1", "e2"}

	if issues := d.StepIssues(StepDetails, typesByID()); len(issues) != 1 || issues[0].Field != "upload" {
		t.Fatalf("expected upload-required issue, got %+v", issues)
	}

	d.Lines = map[string]GrantLine{
		"e1": {
			EmployeeID:          "e1",
			DaysGranted:         30,
			PeriodStart:         date(2026, time.January, 1),
			PeriodEnd:           date(2026, time.December, 31),
			CarryoverExpiration: date(2027, time.March, 31),
		},
	}
	issues := d.StepIssues(StepDetails, typesByID())
	var sawMissing, sawMax bool
	for _, issue := range issues {
		if issue.Field == "upload" {
			sawMissing = true
		}
		if issue.Field == "rows.e1.daysGranted" {
			sawMax = true
		}
	}
	if !sawMissing || !sawMax {
		t.Fatalf("expected missing-row and max-days issues, got %+v", issues)
	}
}

func TestReviewAggregatesAllSteps(t *testing.T) {
	d := NewDraft()
	issues := d.StepIssues(StepReview, typesByID())
	fields := map[string]bool{}
	for _, issue := range issues {
		fields[issue.Field] = true
	}
	for _, want := range []string{"title", "leaveTypeId", "employeeIds", "mode"} {
		if !fields[want] {
			t.Fatalf("expected %s issue at review, got %+v", want, issues)
		}
	}
}

func TestCanProceedTracksCurrentStep(t *testing.T) {
	d := NewDraft()
	if d.CanProceed(typesByID()) {
		t.Fatal("empty draft must not proceed from title step")
	}
	d.Title = "Grant"
	if !d.CanProceed(typesByID()) {
		t.Fatal("titled draft must proceed from title step")
	}
}
