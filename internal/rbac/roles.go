package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	// RoleAdmin may read and mutate owners and properties.
	RoleAdmin = "admin"
	// RoleViewer may read entities and the activity log.
	RoleViewer = "viewer"
)

// Readers are the roles allowed on read-only routes.
var Readers = []string{RoleAdmin, RoleViewer}

// Writers are the roles allowed to create, update or delete entities.
var Writers = []string{RoleAdmin}

func IsKnownRole(role string) bool {
	return role == RoleAdmin || role == RoleViewer
}
