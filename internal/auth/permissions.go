package auth

// Permission represents a named capability granted by a global role.
// Project access is a separate plane handled by the project package.
type Permission string

// Permission constants.
const (
	PermSessionViewOwn   Permission = "session:view:own"
	PermSessionRevokeOwn Permission = "session:revoke:own"
	PermSessionViewAny   Permission = "session:view:any"
	PermSessionRevokeAny Permission = "session:revoke:any"
	PermAuditRead        Permission = "audit:read"
	PermProjectCreate    Permission = "project:create"
)

// rolePermissions maps each global role to its granted permissions.
// This is the single source of truth for the global authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleUser: {
		PermSessionViewOwn,
		PermSessionRevokeOwn,
		PermProjectCreate,
	},
	RoleAdmin: {
		PermSessionViewOwn,
		PermSessionRevokeOwn,
		PermSessionViewAny,
		PermSessionRevokeAny,
		PermAuditRead,
		PermProjectCreate,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}

// CanManageSession reports whether caller may revoke a session owned by
// ownerID: their own with PermSessionRevokeOwn, anyone's with
// PermSessionRevokeAny.
func CanManageSession(caller *User, ownerID int64) bool {
	if caller == nil {
		return false
	}
	if caller.ID == ownerID && HasPermission(caller.Role, PermSessionRevokeOwn) {
		return true
	}
	return HasPermission(caller.Role, PermSessionRevokeAny)
}
