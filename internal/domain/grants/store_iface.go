package grants

import (
	"context"
	"time"

	"workforce/internal/domain/directory"
)

type StoreAPI interface {
	ListTypes(ctx context.Context, tenantID string) ([]LeaveType, error)
	CreateGrant(ctx context.Context, tenantID string, grant *LeaveGrant) (string, time.Time, error)
	CountGrants(ctx context.Context, tenantID string) (int, error)
	ListGrants(ctx context.Context, tenantID string, limit, offset int) ([]LeaveGrant, error)
	GetGrant(ctx context.Context, tenantID, grantID string) (*LeaveGrant, error)
	ExpireLines(ctx context.Context, asOf time.Time) (int64, error)
}

type DirectoryAPI interface {
	ListEmployees(ctx context.Context, tenantID, departmentID string) ([]directory.Employee, error)
	UserIDsForEmployees(ctx context.Context, tenantID string, employeeIDs []string) (map[string]string, error)
}
