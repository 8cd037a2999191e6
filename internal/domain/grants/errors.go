package grants

import (
	"errors"
	"fmt"
)

var (
	ErrNoSession      = errors.New("no active wizard session")
	ErrAtFirstStep    = errors.New("already at the first step")
	ErrInvalidState   = errors.New("operation not allowed in current step")
	ErrSubmitInFlight = errors.New("submission in progress, draft is locked")
	ErrGrantNotFound  = errors.New("grant not found")
)

// ValidationError blocks advance or submit. It enumerates the per-field
// reasons so the caller can correct input; it never partially commits state.
type ValidationError struct {
	Step   int
	Issues []Issue
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %d validation failed with %d issue(s)", e.Step, len(e.Issues))
}

// RowIssue locates one upload defect. Row 0 marks file-level issues such as
// a selected employee missing from the upload.
type RowIssue struct {
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// UploadError reports an all-or-nothing bulk upload rejection. The draft's
// prior rows are always retained unchanged.
type UploadError struct {
	Rows []RowIssue
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload rejected: %d row issue(s)", len(e.Rows))
}

const (
	SubmitConflict    = "title_conflict"
	SubmitRejected    = "rejected"
	SubmitUnavailable = "unavailable"
)

// SubmitError classifies persistence failures. Retryable means the caller
// may resubmit the preserved draft as-is; otherwise it must edit first.
type SubmitError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e *SubmitError) Error() string {
	return e.Message
}
