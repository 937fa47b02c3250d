package domain

import "slices"

// roleScopes maps each global role to the scopes it grants. Higher roles
// include everything below them.
var roleScopes = map[Role][]string{
	RoleMember: {
		"workflow:create",
		"workflow:read",
		"workflow:update",
		"workflow:execute",
		"credential:create",
		"credential:read",
	},
	RoleAdmin: {
		"workflow:list",
		"workflow:delete",
		"credential:list",
		"credential:delete",
		"user:list",
		"user:read",
	},
	RoleOwner: OwnerOnlyScopes,
}

// ScopesForRole returns the full scope set granted by a global role
func ScopesForRole(role Role) []string {
	var scopes []string
	scopes = append(scopes, roleScopes[RoleMember]...)
	if role == RoleAdmin || role == RoleOwner {
		scopes = append(scopes, roleScopes[RoleAdmin]...)
	}
	if role == RoleOwner {
		scopes = append(scopes, roleScopes[RoleOwner]...)
	}
	slices.Sort(scopes)
	return slices.Compact(scopes)
}
