package grants

import "time"

type GrantMode string

const (
	ModeUniform    GrantMode = "uniform"
	ModeIndividual GrantMode = "individual"
)

// Wizard steps, strictly linear.
const (
	StepTitle = iota + 1
	StepLeaveType
	StepEmployees
	StepMode
	StepDetails
	StepReview
)

type LeaveType struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	MaxDays   *float64  `json:"maxDays,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// GrantLine is the per-employee allocation. Individual-mode uploads produce
// one per row; uniform mode synthesizes identical lines at submit time.
type GrantLine struct {
	EmployeeID          string    `json:"employeeId"`
	DaysGranted         float64   `json:"daysGranted"`
	PeriodStart         time.Time `json:"periodStart"`
	PeriodEnd           time.Time `json:"periodEnd"`
	CarryoverExpiration time.Time `json:"carryoverExpiration"`
	Expired             bool      `json:"expired,omitempty"`
}

// GrantDraft is the mutable wizard state. It lives for one session only and
// is discarded on cancel or successful submit.
type GrantDraft struct {
	Title       string
	LeaveTypeID string
	EmployeeIDs []string
	Mode        GrantMode
	DaysGranted *float64
	PeriodStart time.Time
	PeriodEnd   time.Time
	Carryover   *CarryoverRule
	Lines       map[string]GrantLine
	CurrentStep int
}

func NewDraft() *GrantDraft {
	return &GrantDraft{CurrentStep: StepTitle}
}

// LeaveGrant is the immutable persisted record. Lines are always populated,
// regardless of which mode produced the grant, so consumers never branch on
// mode.
type LeaveGrant struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	LeaveTypeID string      `json:"leaveTypeId"`
	EmployeeIDs []string    `json:"employeeIds"`
	Mode        GrantMode   `json:"mode"`
	DaysGranted *float64    `json:"daysGranted,omitempty"`
	PeriodStart *time.Time  `json:"periodStart,omitempty"`
	PeriodEnd   *time.Time  `json:"periodEnd,omitempty"`
	Lines       []GrantLine `json:"lines"`
	CreatedBy   string      `json:"createdBy"`
	CreatedAt   time.Time   `json:"createdAt"`
}
