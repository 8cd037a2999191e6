package grants

import (
	"context"
	"fmt"
	"sync"
	"time"

	"workforce/internal/domain/directory"
)

// Wizard owns one GrantDraft for one interactive user. The employee
// directory and leave type catalog are snapshotted when the wizard opens;
// the draft never sees live updates mid-session. Submitting locks the draft
// against mutation until the persistence call returns.
type Wizard struct {
	mu         sync.Mutex
	draft      *GrantDraft
	employees  []directory.Employee
	byID       map[string]directory.Employee
	types      map[string]LeaveType
	submitting bool
	generation int
	openedAt   time.Time
}

func NewWizard(employees []directory.Employee, types []LeaveType) *Wizard {
	byID := make(map[string]directory.Employee, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
	}
	byType := make(map[string]LeaveType, len(types))
	for _, t := range types {
		byType[t.ID] = t
	}
	return &Wizard{
		draft:     NewDraft(),
		employees: employees,
		byID:      byID,
		types:     byType,
		openedAt:  time.Now().UTC(),
	}
}

// State is a read-only snapshot of the wizard for callers. Issues always
// reflect the current step's predicate, recomputed on every read.
type State struct {
	CurrentStep int             `json:"currentStep"`
	CanProceed  bool            `json:"canProceed"`
	Issues      []Issue         `json:"issues,omitempty"`
	Submitting  bool            `json:"submitting"`
	Title       string          `json:"title"`
	LeaveTypeID string          `json:"leaveTypeId"`
	EmployeeIDs []string        `json:"employeeIds"`
	Mode        GrantMode       `json:"mode"`
	DaysGranted *float64        `json:"daysGranted,omitempty"`
	PeriodStart *time.Time      `json:"periodStart,omitempty"`
	PeriodEnd   *time.Time      `json:"periodEnd,omitempty"`
	Carryover   *CarryoverRule  `json:"carryoverRule,omitempty"`
	Lines       map[string]GrantLine `json:"lines,omitempty"`
	OpenedAt    time.Time       `json:"openedAt"`
}

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	d := w.draft
	state := State{
		CurrentStep: d.CurrentStep,
		CanProceed:  d.CanProceed(w.types),
		Issues:      d.StepIssues(d.CurrentStep, w.types),
		Submitting:  w.submitting,
		Title:       d.Title,
		LeaveTypeID: d.LeaveTypeID,
		EmployeeIDs: append([]string(nil), d.EmployeeIDs...),
		Mode:        d.Mode,
		Carryover:   d.Carryover,
		OpenedAt:    w.openedAt,
	}
	if d.DaysGranted != nil {
		v := *d.DaysGranted
		state.DaysGranted = &v
	}
	if !d.PeriodStart.IsZero() {
		t := d.PeriodStart
		state.PeriodStart = &t
	}
	if !d.PeriodEnd.IsZero() {
		t := d.PeriodEnd
		state.PeriodEnd = &t
	}
	if len(d.Lines) > 0 {
		lines := make(map[string]GrantLine, len(d.Lines))
		for k, v := range d.Lines {
			lines[k] = v
		}
		state.Lines = lines
	}
	return state
}

// edit runs a mutation under the lock. Edits attempted while a submission is
// in flight are rejected outright, never queued, so the submitted state
// cannot diverge from what was validated.
func (w *Wizard) edit(fn func(*GrantDraft) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitting {
		return ErrSubmitInFlight
	}
	return fn(w.draft)
}

func (w *Wizard) SetTitle(title string) error {
	return w.edit(func(d *GrantDraft) error {
		d.Title = title
		return nil
	})
}

func (w *Wizard) SelectLeaveType(leaveTypeID string) error {
	return w.edit(func(d *GrantDraft) error {
		d.LeaveTypeID = leaveTypeID
		return nil
	})
}

// SelectEmployees replaces the selection. Duplicates collapse; an id outside
// the directory snapshot is rejected before any mutation.
func (w *Wizard) SelectEmployees(employeeIDs []string) error {
	return w.edit(func(d *GrantDraft) error {
		seen := make(map[string]bool, len(employeeIDs))
		unique := make([]string, 0, len(employeeIDs))
		for _, id := range employeeIDs {
			if _, ok := w.byID[id]; !ok {
				return fmt.Errorf("employee %q is not in the directory snapshot", id)
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			unique = append(unique, id)
		}
		d.EmployeeIDs = unique
		return nil
	})
}

// SelectAllEmployees populates the selection from the directory snapshot
// taken when the wizard opened. It is not live-updated afterwards.
func (w *Wizard) SelectAllEmployees() error {
	return w.edit(func(d *GrantDraft) error {
		ids := make([]string, 0, len(w.employees))
		for _, e := range w.employees {
			ids = append(ids, e.ID)
		}
		d.EmployeeIDs = ids
		return nil
	})
}

func (w *Wizard) SetMode(mode GrantMode) error {
	return w.edit(func(d *GrantDraft) error {
		if mode != ModeUniform && mode != ModeIndividual {
			return fmt.Errorf("unknown grant mode %q", mode)
		}
		d.Mode = mode
		return nil
	})
}

func (w *Wizard) SetUniformDetails(days float64, periodStart, periodEnd time.Time, rule CarryoverRule) error {
	return w.edit(func(d *GrantDraft) error {
		d.DaysGranted = &days
		d.PeriodStart = periodStart
		d.PeriodEnd = periodEnd
		d.Carryover = &rule
		return nil
	})
}

// Advance moves to the next step only when the current step's predicate
// holds. A failed predicate is reported with its per-field issues; calling
// Advance in that state is a recoverable input error for the user but the
// refusal itself is explicit, never silent.
func (w *Wizard) Advance() error {
	return w.edit(func(d *GrantDraft) error {
		if d.CurrentStep >= StepReview {
			return fmt.Errorf("%w: already at the review step", ErrInvalidState)
		}
		if issues := d.StepIssues(d.CurrentStep, w.types); len(issues) > 0 {
			return &ValidationError{Step: d.CurrentStep, Issues: issues}
		}
		d.CurrentStep++
		return nil
	})
}

// Retreat steps backwards unconditionally, preserving entered data.
func (w *Wizard) Retreat() error {
	return w.edit(func(d *GrantDraft) error {
		if d.CurrentStep <= StepTitle {
			return ErrAtFirstStep
		}
		d.CurrentStep--
		return nil
	})
}

// Cancel discards the draft from any state, including while a submission is
// in flight; a late persistence result will not resurrect a cancelled draft.
func (w *Wizard) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft = NewDraft()
	w.generation++
}

// PersistFunc hands the candidate grant to the external persistence
// collaborator and returns the assigned id and creation timestamp.
type PersistFunc func(ctx context.Context, grant *LeaveGrant) (string, time.Time, error)

// Submit is permitted only from the review step with every prior step still
// valid; validity is recomputed, not read from a cache. While the persist
// call is outstanding the draft is locked against mutation. On success the
// wizard returns to step 1 with a fresh draft; on failure the draft is
// preserved unchanged so the caller can retry without re-entering data.
func (w *Wizard) Submit(ctx context.Context, persist PersistFunc, createdBy string) (*LeaveGrant, error) {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	if w.draft.CurrentStep != StepReview {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: submit requires the review step", ErrInvalidState)
	}
	if issues := w.draft.StepIssues(StepReview, w.types); len(issues) > 0 {
		w.mu.Unlock()
		return nil, &ValidationError{Step: StepReview, Issues: issues}
	}
	candidate := w.draft.buildGrant(createdBy)
	w.submitting = true
	generation := w.generation
	w.mu.Unlock()

	id, createdAt, err := persist(ctx, candidate)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		return nil, err
	}
	if w.generation == generation {
		w.draft = NewDraft()
		w.generation++
	}
	candidate.ID = id
	candidate.CreatedAt = createdAt
	return candidate, nil
}

// buildGrant normalizes either mode to one persisted shape: a grant always
// carries one line per selected employee, in selection order.
func (d *GrantDraft) buildGrant(createdBy string) *LeaveGrant {
	grant := &LeaveGrant{
		Title:       d.Title,
		LeaveTypeID: d.LeaveTypeID,
		EmployeeIDs: append([]string(nil), d.EmployeeIDs...),
		Mode:        d.Mode,
		CreatedBy:   createdBy,
	}
	switch d.Mode {
	case ModeUniform:
		days := *d.DaysGranted
		start, end := d.PeriodStart, d.PeriodEnd
		expiration, _ := d.Carryover.Resolve(end) // validated at review
		grant.DaysGranted = &days
		grant.PeriodStart = &start
		grant.PeriodEnd = &end
		for _, id := range d.EmployeeIDs {
			grant.Lines = append(grant.Lines, GrantLine{
				EmployeeID:          id,
				DaysGranted:         days,
				PeriodStart:         start,
				PeriodEnd:           end,
				CarryoverExpiration: expiration,
			})
		}
	case ModeIndividual:
		for _, id := range d.EmployeeIDs {
			grant.Lines = append(grant.Lines, d.Lines[id])
		}
	}
	return grant
}

// LeaveTypes exposes the catalog snapshot for validation-aware callers.
func (w *Wizard) LeaveTypes() map[string]LeaveType {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.types
}

// Employee resolves one employee from the directory snapshot.
func (w *Wizard) Employee(id string) (directory.Employee, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.byID[id]
	return e, ok
}
