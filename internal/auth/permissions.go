package auth

import (
	"strings"

	"jobflow-backend/internal/models"
)

// HasPermission reports whether perms grant action. "*" grants everything
// and "file:*" grants every action in the file namespace.
func HasPermission(action string, perms []string) bool {
	for _, p := range perms {
		if p == models.PermissionAll || p == action {
			return true
		}
		if prefix, ok := strings.CutSuffix(p, ":*"); ok && strings.HasPrefix(action, prefix+":") {
			return true
		}
	}
	return false
}

// PermissionsForRole returns the default permission set of a role
func PermissionsForRole(role string) []string {
	switch role {
	case models.RoleAdmin:
		return []string{models.PermissionAll}
	case models.RoleEmployee:
		return append([]string(nil), models.EmployeePermissions...)
	}
	return nil
}
