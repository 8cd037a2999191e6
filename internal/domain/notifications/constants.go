package notifications

const (
	TypeLeaveGranted  = "leave_granted"
	TypeGrantRejected = "grant_rejected"
)
