package user

import "time"

type Role string

const (
	RoleTeacher   Role = "teacher"   // Regular staff - submits leave
	RoleHOD       Role = "hod"       // Head of department - first approval level
	RolePrincipal Role = "principal" // Second approval level
	RoleDirector  Role = "director"  // Full access, no approval level
	RoleRegistrar Role = "registrar" // Third approval level
	RoleHR        Role = "hr"        // HR executive - final approval level
)

// AllRoles returns every role known to the portal
func AllRoles() []Role {
	return []Role{RoleTeacher, RoleHOD, RolePrincipal, RoleDirector, RoleRegistrar, RoleHR}
}

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	for _, role := range AllRoles() {
		if role == r {
			return true
		}
	}
	return false
}

type AccessLevel string

const (
	AccessBasic    AccessLevel = "basic"
	AccessApprover AccessLevel = "approver"
	AccessFull     AccessLevel = "full"
)

// AccessLevel derives the access level granted to a role
func (r Role) AccessLevel() AccessLevel {
	switch r {
	case RoleHOD:
		return AccessApprover
	case RolePrincipal, RoleDirector, RoleRegistrar, RoleHR:
		return AccessFull
	default:
		return AccessBasic
	}
}

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash *string
	Role         Role
	Department   string
	Designation  *string
	EmployeeCode *string
	Phone        *string
	JoiningDate  *time.Time
	IsActive     bool
	LastLoginAt  *time.Time
	LoginCount   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsApprover checks if user sits somewhere in the leave approval chain
func (u *User) IsApprover() bool {
	return HasPermission(u.Role, PermissionLeaveApprove)
}

// HasFullAccess checks if user can see institution-wide data
func (u *User) HasFullAccess() bool {
	return u.Role.AccessLevel() == AccessFull
}
