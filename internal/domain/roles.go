package domain

// UserRoleType is an application role carried in the auth token
type UserRoleType string

const (
	RoleAdmin      UserRoleType = "admin"
	RoleManager    UserRoleType = "manager"
	RoleStaff      UserRoleType = "staff"
	RoleTechnician UserRoleType = "technician"
	RoleInvestor   UserRoleType = "investor"
	RoleViewer     UserRoleType = "viewer"
	RoleAPIService UserRoleType = "api_service"
)

func (r UserRoleType) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff, RoleTechnician, RoleInvestor, RoleViewer, RoleAPIService:
		return true
	}
	return false
}

// PermissionType is a resource:action pair checked by the API
type PermissionType string

const (
	PermissionClientsRead        PermissionType = "clients:read"
	PermissionClientsWrite       PermissionType = "clients:write"
	PermissionClientsDelete      PermissionType = "clients:delete"
	PermissionClientsImport      PermissionType = "clients:import"
	PermissionDevelopmentsRead   PermissionType = "developments:read"
	PermissionDevelopmentsWrite  PermissionType = "developments:write"
	PermissionDevelopmentsManage PermissionType = "developments:manage"
	PermissionPaymentsRead       PermissionType = "payments:read"
	PermissionPaymentsCollect    PermissionType = "payments:collect"
	PermissionPaymentsReverse    PermissionType = "payments:reverse"
	PermissionInvestorsRead      PermissionType = "investors:read"
	PermissionOrdersRead         PermissionType = "orders:read"
	PermissionOrdersWrite        PermissionType = "orders:write"
	PermissionLeadsRead          PermissionType = "leads:read"
	PermissionLeadsWrite         PermissionType = "leads:write"
	PermissionLeadsDelete        PermissionType = "leads:delete"
	PermissionLeadsConvert       PermissionType = "leads:convert"
	PermissionIncomeRead         PermissionType = "income:read"
	PermissionReportsExport      PermissionType = "reports:export"
	PermissionSystemAuditLogs    PermissionType = "system:audit_logs"
)

// AllPermissions lists every permission in display order
var AllPermissions = []PermissionType{
	PermissionClientsRead, PermissionClientsWrite, PermissionClientsDelete, PermissionClientsImport,
	PermissionDevelopmentsRead, PermissionDevelopmentsWrite, PermissionDevelopmentsManage,
	PermissionPaymentsRead, PermissionPaymentsCollect, PermissionPaymentsReverse,
	PermissionInvestorsRead,
	PermissionOrdersRead, PermissionOrdersWrite,
	PermissionLeadsRead, PermissionLeadsWrite, PermissionLeadsDelete, PermissionLeadsConvert,
	PermissionIncomeRead, PermissionReportsExport,
	PermissionSystemAuditLogs,
}
