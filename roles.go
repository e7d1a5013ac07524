package session

import "strings"

// Role is the user's role as issued by the backend.
type Role string

const (
	// RoleAdmin manages the center's day-to-day records
	RoleAdmin Role = "ADMIN"
	// RoleSuperAdmin has every admin capability plus user administration
	RoleSuperAdmin Role = "SUPER_ADMIN"
	// RoleTeacher sees their own classes and students
	RoleTeacher Role = "TEACHER"
	// RoleStudent sees their own enrollment and schedule
	RoleStudent Role = "STUDENT"
	// RoleParent mirrors the student view for a guardian
	RoleParent Role = "PARENT"
	// RoleCompliance has read access to audit and reporting screens
	RoleCompliance Role = "COMPLIANCE"
)

// NormalizeRole maps whatever casing the backend sent to the canonical
// uppercase form. Backend snapshots have alternated between "admin" and
// "ADMIN"; this is the single place that difference is absorbed. The result
// is not guaranteed to be a known role, gate with IsValid.
func NormalizeRole(raw string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(raw)))
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin, RoleTeacher, RoleStudent, RoleParent, RoleCompliance:
		return true
	default:
		return false
	}
}

// OneOf reports whether the role is inside the given allow-set. Unknown
// roles are never inside any allow-set.
func (r Role) OneOf(allowed ...Role) bool {
	if !r.IsValid() {
		return false
	}
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role belongs to center staff rather than a
// learner or guardian account.
func (r Role) IsStaff() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin, RoleTeacher, RoleCompliance:
		return true
	default:
		return false
	}
}

// CanManageUsers reports whether the role may create or deactivate accounts.
func (r Role) CanManageUsers() bool {
	return r == RoleSuperAdmin
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleAdmin,
		RoleSuperAdmin,
		RoleTeacher,
		RoleStudent,
		RoleParent,
		RoleCompliance,
	}
}

// ParseRole normalizes and validates a raw role string in one step.
func ParseRole(raw string) (Role, bool) {
	role := NormalizeRole(raw)
	return role, role.IsValid()
}

// AdminRoles is the allow-set for the administration dashboard.
func AdminRoles() []Role {
	return []Role{RoleAdmin, RoleSuperAdmin}
}

// StaffRoles is the allow-set for screens any staff member may open.
func StaffRoles() []Role {
	return []Role{RoleAdmin, RoleSuperAdmin, RoleTeacher, RoleCompliance}
}

// LearnerRoles is the allow-set for the student/parent dashboard.
func LearnerRoles() []Role {
	return []Role{RoleStudent, RoleParent}
}
