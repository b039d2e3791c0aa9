package auth

import "slices"

// Role represents an authorisation tier.
type Role string

const (
	// RoleViewer may read state and displays.
	RoleViewer Role = "viewer"

	// RoleOperator may also press buttons.
	RoleOperator Role = "operator"
)

// ValidRoles is the set of roles a token may carry.
var ValidRoles = []Role{RoleViewer, RoleOperator}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	return slices.Contains(ValidRoles, r)
}

// Permission represents a named capability.
type Permission string

// Permission constants.
const (
	PermStateRead   Permission = "state:read"
	PermButtonPress Permission = "button:press"
)

// rolePermissions maps each role to its granted permissions.
var rolePermissions = map[Role][]Permission{
	RoleViewer:   {PermStateRead},
	RoleOperator: {PermStateRead, PermButtonPress},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	return slices.Clone(rolePermissions[role])
}
