package grants

import (
	"context"
	"errors"
	"testing"
	"time"

	"workforce/internal/domain/directory"
)

func float64p(v float64) *float64 {
	return &v
}

func testEmployees() []directory.Employee {
	return []directory.Employee{
		{ID: "e1", FirstName: "Ama", LastName: "Mensah", Email: "ama.mensah@example.com", DepartmentName: "Sales"},
		{ID: "e2", FirstName: "Lukas", LastName: "Becker", Email: "lukas.becker@example.com", DepartmentName: "Sales"},
		{ID: "e3", FirstName: "Priya", LastName: "Raman", Email: "priya.raman@example.com", DepartmentName: "Sales"},
	}
}

func testTypes() []LeaveType {
	return []LeaveType{
		{ID: "lt-annual", Name: "Annual Leave", Code: "ANNUAL", MaxDays: float64p(25)},
		{ID: "lt-unpaid", Name: "Unpaid Leave", Code: "UNPAID"},
	}
}

func newTestWizard(t *testing.T) *Wizard {
	t.Helper()
	return NewWizard(testEmployees(), testTypes())
}

// walkToReview fills a uniform draft and advances through every step.
func walkToReview(t *testing.T, w *Wizard) {
	t.Helper()
	steps := []func() error{
		func() error { return w.SetTitle("2026 Annual Grant") },
		func() error { return w.SelectLeaveType("lt-annual") },
		func() error { return w.SelectEmployees([]string{"e1", "e2", "e3"}) },
		func() error { return w.SetMode(ModeUniform) },
		func() error {
			return w.SetUniformDetails(20,
				date(2026, time.January, 1), date(2026, time.December, 31),
				CarryoverRule{Kind: CarryoverMonthsAfter, Months: 3})
		},
	}
	for i, fill := range steps {
		if err := fill(); err != nil {
			t.Fatalf("step %d fill: %v", i+1, err)
		}
		if err := w.Advance(); err != nil {
			t.Fatalf("step %d advance: %v", i+1, err)
		}
	}
	if got := w.State().CurrentStep; got != StepReview {
		t.Fatalf("expected review step, got %d", got)
	}
}

func acceptingPersist(id string) PersistFunc {
	return func(ctx context.Context, g *LeaveGrant) (string, time.Time, error) {
		return id, time.Now().UTC(), nil
	}
}

func TestUniformWalkthroughSubmit(t *testing.T) {
	w := newTestWizard(t)
	walkToReview(t, w)

	grant, err := w.Submit(context.Background(), acceptingPersist("g1"), "u1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if grant.ID != "g1" {
		t.Fatalf("expected grant id g1, got %q", grant.ID)
	}
	if len(grant.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(grant.Lines))
	}

	wantExpiration := date(2027, time.March, 31)
	for i, line := range grant.Lines {
		if line.EmployeeID != []string{"e1", "e2", "e3"}[i] {
			t.Fatalf("line %d: unexpected employee %q", i, line.EmployeeID)
		}
		if line.DaysGranted != 20 {
			t.Fatalf("line %d: expected 20 days, got %g", i, line.DaysGranted)
		}
		if !line.CarryoverExpiration.Equal(wantExpiration) {
			t.Fatalf("line %d: expected expiration %s, got %s", i, wantExpiration, line.CarryoverExpiration)
		}
	}

	// Success returns the wizard to a fresh draft at step one.
	state := w.State()
	if state.CurrentStep != StepTitle || state.Title != "" || len(state.EmployeeIDs) != 0 {
		t.Fatalf("expected fresh draft after submit, got %+v", state)
	}
}

func TestAdvanceBlockedByEmptyTitle(t *testing.T) {
	w := newTestWizard(t)

	err := w.Advance()
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Step != StepTitle {
		t.Fatalf("expected step %d, got %d", StepTitle, validationErr.Step)
	}
	if w.State().CurrentStep != StepTitle {
		t.Fatal("failed advance must not move the step")
	}
}

func TestAdvanceBlockedByMaxDays(t *testing.T) {
	w := newTestWizard(t)
	if err := w.SetTitle("Too Generous"); err != nil {
		t.Fatal(err)
	}
	if err := w.Advance(); err != nil {
		t.Fatal(err)
	}
	if err := w.SelectLeaveType("lt-annual"); err != nil {
		t.Fatal(err)
	}
	if err := w.Advance(); err != nil {
		t.Fatal(err)
	}
	if err := w.SelectEmployees([]string{"e1"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Advance(); err != nil {
		t.Fatal(err)
	}
	if err := w.SetMode(ModeUniform); err != nil {
		t.Fatal(err)
	}
	if err := w.Advance(); err != nil {
		t.Fatal(err)
	}

	// Annual leave caps at 25 days.
	if err := w.SetUniformDetails(30, date(2026, time.January, 1), date(2026, time.December, 31), CarryoverRule{Kind: CarryoverMonthsAfter, Months: 3}); err != nil {
		t.Fatal(err)
	}
	err := w.Advance()
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	found := false
	for _, issue := range validationErr.Issues {
		if issue.Field == "daysGranted" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a daysGranted issue, got %+v", validationErr.Issues)
	}

	if err := w.SetUniformDetails(25, date(2026, time.January, 1), date(2026, time.December, 31), CarryoverRule{Kind: CarryoverMonthsAfter, Months: 3}); err != nil {
		t.Fatal(err)
	}
	if err := w.Advance(); err != nil {
		t.Fatalf("advance after fixing days: %v", err)
	}
}

func TestRetreatPreservesData(t *testing.T) {
	w := newTestWizard(t)
	walkToReview(t, w)

	if err := w.Retreat(); err != nil {
		t.Fatalf("retreat: %v", err)
	}
	state := w.State()
	if state.CurrentStep != StepDetails {
		t.Fatalf("expected step %d, got %d", StepDetails, state.CurrentStep)
	}
	if state.Title != "2026 Annual Grant" || len(state.EmployeeIDs) != 3 {
		t.Fatal("retreat must preserve entered data")
	}

	if err := w.Advance(); err != nil {
		t.Fatalf("advance back to review: %v", err)
	}
	if w.State().CurrentStep != StepReview {
		t.Fatal("expected to return to review")
	}
}

func TestRetreatAtFirstStep(t *testing.T) {
	w := newTestWizard(t)
	if err := w.Retreat(); !errors.Is(err, ErrAtFirstStep) {
		t.Fatalf("expected ErrAtFirstStep, got %v", err)
	}
}

func TestAdvanceAtReview(t *testing.T) {
	w := newTestWizard(t)
	walkToReview(t, w)
	if err := w.Advance(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestSubmitRequiresReviewStep(t *testing.T) {
	w := newTestWizard(t)
	if _, err := w.Submit(context.Background(), acceptingPersist("g1"), "u1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestCancelResetsDraft(t *testing.T) {
	w := newTestWizard(t)
	walkToReview(t, w)

	w.Cancel()
	state := w.State()
	if state.CurrentStep != StepTitle || state.Title != "" || state.Mode != "" {
		t.Fatalf("expected fresh draft after cancel, got %+v", state)
	}
}

func TestSubmitFailurePreservesDraft(t *testing.T) {
	w := newTestWizard(t)
	walkToReview(t, w)

	persistErr := &SubmitError{Code: SubmitUnavailable, Message: "persistence unavailable", Retryable: true}
	_, err := w.Submit(context.Background(), func(ctx context.Context, g *LeaveGrant) (string, time.Time, error) {
		return "", time.Time{}, persistErr
	}, "u1")
	var submitErr *SubmitError
	if !errors.As(err, &submitErr) || !submitErr.Retryable {
		t.Fatalf("expected retryable SubmitError, got %v", err)
	}

	state := w.State()
	if state.CurrentStep != StepReview || state.Title != "2026 Annual Grant" {
		t.Fatalf("failed submit must preserve the draft, got %+v", state)
	}

	// The preserved draft submits cleanly on retry.
	if _, err := w.Submit(context.Background(), acceptingPersist("g2"), "u1"); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
}

func TestEditDuringSubmitRejected(t *testing.T) {
	w := newTestWizard(t)
	walkToReview(t, w)

	_, err := w.Submit(context.Background(), func(ctx context.Context, g *LeaveGrant) (string, time.Time, error) {
		if editErr := w.SetTitle("sneaky edit"); !errors.Is(editErr, ErrSubmitInFlight) {
			t.Fatalf("expected ErrSubmitInFlight during persist, got %v", editErr)
		}
		if !w.State().Submitting {
			t.Fatal("expected submitting state during persist")
		}
		return "g1", time.Now().UTC(), nil
	}, "u1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func TestCancelDuringSubmitNotResurrected(t *testing.T) {
	w := newTestWizard(t)
	walkToReview(t, w)

	grant, err := w.Submit(context.Background(), func(ctx context.Context, g *LeaveGrant) (string, time.Time, error) {
		w.Cancel()
		return "g1", time.Now().UTC(), nil
	}, "u1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if grant.ID != "g1" {
		t.Fatalf("expected persisted grant id, got %q", grant.ID)
	}

	state := w.State()
	if state.CurrentStep != StepTitle || state.Title != "" {
		t.Fatalf("cancelled draft must stay fresh, got %+v", state)
	}
}

func TestSelectEmployeesDeduplicates(t *testing.T) {
	w := newTestWizard(t)
	if err := w.SelectEmployees([]string{"e1", "e2", "e1"}); err != nil {
		t.Fatalf("select: %v", err)
	}
	state := w.State()
	if len(state.EmployeeIDs) != 2 {
		t.Fatalf("expected 2 unique employees, got %v", state.EmployeeIDs)
	}
}

func TestSelectEmployeesRejectsUnknown(t *testing.T) {
	w := newTestWizard(t)
	if err := w.SelectEmployees([]string{"e1", "e9"}); err == nil {
		t.Fatal("expected error for unknown employee id")
	}
	if len(w.State().EmployeeIDs) != 0 {
		t.Fatal("rejected selection must not mutate the draft")
	}
}

func TestSelectAllEmployees(t *testing.T) {
	w := newTestWizard(t)
	if err := w.SelectAllEmployees(); err != nil {
		t.Fatalf("select all: %v", err)
	}
	if got := len(w.State().EmployeeIDs); got != 3 {
		t.Fatalf("expected 3 employees, got %d", got)
	}
}

func TestSetModeRejectsUnknown(t *testing.T) {
	w := newTestWizard(t)
	if err := w.SetMode("batch"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
