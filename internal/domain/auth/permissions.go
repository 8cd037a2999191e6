package auth

const (
	RoleEmployee    = "employee"
	RoleManager     = "manager"
	RoleHR          = "hr"
	RoleSystemAdmin = "system_admin"
)

const (
	PermEmployeesRead = "core.employees.read"
	PermOrgRead       = "core.org.read"
	PermLeaveRead     = "leave.read"
	PermLeaveGrant    = "leave.grant"
	PermAuditRead     = "audit.read"
	PermSystemAdmin   = "admin.system"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermOrgRead,
	PermLeaveRead,
	PermLeaveGrant,
	PermAuditRead,
	PermSystemAdmin,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermEmployeesRead,
		PermOrgRead,
		PermLeaveRead,
	},
	RoleManager: {
		PermEmployeesRead,
		PermOrgRead,
		PermLeaveRead,
		PermLeaveGrant,
	},
	RoleHR: {
		PermEmployeesRead,
		PermOrgRead,
		PermLeaveRead,
		PermLeaveGrant,
		PermAuditRead,
	},
	RoleSystemAdmin: DefaultPermissions,
}
