package auth

import (
	"context"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/google/uuid"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
	Roles       []domain.UserRoleType
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// HasRole checks if user has a specific role
func (u *UserContext) HasRole(role domain.UserRoleType) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.UserRoleType) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

func (u *UserContext) IsAdmin() bool {
	return u.HasRole(domain.RoleAdmin)
}

// HasPermission checks the default permissions of the user's roles. Admins have all.
func (u *UserContext) HasPermission(permission domain.PermissionType) bool {
	if u.IsAdmin() {
		return true
	}
	for _, role := range u.Roles {
		for _, p := range rolePermissions[role] {
			if p == permission {
				return true
			}
		}
	}
	return false
}

// Permissions returns the effective permissions of the user's roles
func (u *UserContext) Permissions() []domain.PermissionType {
	var result []domain.PermissionType
	for _, p := range domain.AllPermissions {
		if u.HasPermission(p) {
			result = append(result, p)
		}
	}
	return result
}

// UserIDString returns the user id for created_by style columns, empty for anonymous
func (u *UserContext) UserIDString() string {
	if u == nil || u.UserID == uuid.Nil {
		return ""
	}
	return u.UserID.String()
}

// RolesAsStrings returns roles as a slice of strings
func (u *UserContext) RolesAsStrings() []string {
	result := make([]string, len(u.Roles))
	for i, role := range u.Roles {
		result[i] = string(role)
	}
	return result
}

var rolePermissions = map[domain.UserRoleType][]domain.PermissionType{
	domain.RoleManager: {
		domain.PermissionClientsRead, domain.PermissionClientsWrite, domain.PermissionClientsDelete, domain.PermissionClientsImport,
		domain.PermissionDevelopmentsRead, domain.PermissionDevelopmentsWrite, domain.PermissionDevelopmentsManage,
		domain.PermissionPaymentsRead, domain.PermissionPaymentsCollect, domain.PermissionPaymentsReverse,
		domain.PermissionInvestorsRead,
		domain.PermissionOrdersRead, domain.PermissionOrdersWrite,
		domain.PermissionLeadsRead, domain.PermissionLeadsWrite, domain.PermissionLeadsDelete, domain.PermissionLeadsConvert,
		domain.PermissionIncomeRead, domain.PermissionReportsExport,
	},
	domain.RoleStaff: {
		domain.PermissionClientsRead, domain.PermissionClientsWrite,
		domain.PermissionDevelopmentsRead, domain.PermissionDevelopmentsWrite,
		domain.PermissionPaymentsRead, domain.PermissionPaymentsCollect,
		domain.PermissionOrdersRead, domain.PermissionOrdersWrite,
		domain.PermissionLeadsRead, domain.PermissionLeadsWrite,
		domain.PermissionIncomeRead,
	},
	domain.RoleTechnician: {
		domain.PermissionClientsRead,
		domain.PermissionDevelopmentsRead,
		domain.PermissionOrdersRead, domain.PermissionOrdersWrite,
	},
	domain.RoleInvestor: {
		domain.PermissionDevelopmentsRead,
		domain.PermissionInvestorsRead,
		domain.PermissionPaymentsRead,
	},
	domain.RoleViewer: {
		domain.PermissionClientsRead,
		domain.PermissionDevelopmentsRead,
		domain.PermissionPaymentsRead,
		domain.PermissionOrdersRead,
		domain.PermissionLeadsRead,
	},
	domain.RoleAPIService: {
		domain.PermissionClientsRead, domain.PermissionClientsWrite, domain.PermissionClientsImport,
		domain.PermissionDevelopmentsRead, domain.PermissionDevelopmentsWrite,
		domain.PermissionPaymentsRead,
		domain.PermissionInvestorsRead,
		domain.PermissionOrdersRead, domain.PermissionOrdersWrite,
		domain.PermissionIncomeRead,
	},
}
