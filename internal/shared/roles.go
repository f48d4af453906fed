package shared

// Role is the tier assigned to an authenticated user by the identity
// collaborator. The workflow core only checks membership against fixed
// privileged sets, it never verifies credentials.
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleSuperadmin Role = "superadmin"
)

// IsValid reports whether the role is a known tier.
func (r Role) IsValid() bool {
	switch r {
	case RoleEmployee, RoleAdmin, RoleManager, RoleSuperadmin:
		return true
	default:
		return false
	}
}

// CanSetStatus reports whether the role may change workflow status fields
// (manager tier or higher).
func (r Role) CanSetStatus() bool {
	return r == RoleManager || r == RoleSuperadmin
}

// CanEditContent reports whether the role may edit record content without
// owning the record (admin tier or higher).
func (r Role) CanEditContent() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleSuperadmin
}

// PrivilegedRoles lists the tiers notified on workflow transitions that
// require review.
func PrivilegedRoles() []Role {
	return []Role{RoleManager, RoleSuperadmin}
}
