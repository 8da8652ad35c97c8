package auth

const (
	RoleUser    = "USER"
	RoleManager = "MANAGER"
	RoleAdmin   = "ADMIN"
)

const (
	ManagerRead   = "manager:read"
	ManagerUpdate = "manager:update"
	ManagerCreate = "manager:create"
	ManagerDelete = "manager:delete"

	AdminRead   = "admin:read"
	AdminUpdate = "admin:update"
	AdminCreate = "admin:create"
	AdminDelete = "admin:delete"
)

var rolePermissions = map[string][]string{
	RoleUser:    {},
	RoleManager: {ManagerRead, ManagerUpdate, ManagerCreate, ManagerDelete},
	RoleAdmin: {
		AdminRead, AdminUpdate, AdminCreate, AdminDelete,
		ManagerRead, ManagerUpdate, ManagerCreate, ManagerDelete,
	},
}

// AuthoritiesFor returns the permissions granted to role followed by
// ROLE_<role>. The result is a fresh slice.
func AuthoritiesFor(role string) []string {
	perms := rolePermissions[role]
	out := make([]string, 0, len(perms)+1)
	out = append(out, perms...)
	return append(out, "ROLE_"+role)
}
