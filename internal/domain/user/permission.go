package user

type Permission string

const (
	// Leave
	PermissionLeaveViewOwn Permission = "leave.view_own"
	PermissionLeaveCreate  Permission = "leave.create"
	PermissionLeaveApprove Permission = "leave.approve"
	PermissionLeaveViewAll Permission = "leave.view_all"

	// Attendance
	PermissionAttendanceViewOwn Permission = "attendance.view_own"
	PermissionAttendanceCreate  Permission = "attendance.create"
	PermissionAttendanceViewAll Permission = "attendance.view_all"
	PermissionAttendanceImport  Permission = "attendance.import"

	// Users
	PermissionUserManage Permission = "user.manage"
)

var basePermissions = []Permission{
	PermissionLeaveViewOwn,
	PermissionLeaveCreate,
	PermissionAttendanceViewOwn,
	PermissionAttendanceCreate,
}

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleTeacher: basePermissions,
	RoleHOD: append(append([]Permission{}, basePermissions...),
		PermissionLeaveApprove,
		PermissionAttendanceViewAll,
	),
	RolePrincipal: append(append([]Permission{}, basePermissions...),
		PermissionLeaveApprove,
		PermissionLeaveViewAll,
		PermissionAttendanceViewAll,
	),
	RoleDirector: append(append([]Permission{}, basePermissions...),
		PermissionLeaveViewAll,
		PermissionAttendanceViewAll,
		PermissionUserManage,
	),
	RoleRegistrar: append(append([]Permission{}, basePermissions...),
		PermissionLeaveApprove,
		PermissionLeaveViewAll,
		PermissionAttendanceViewAll,
	),
	RoleHR: append(append([]Permission{}, basePermissions...),
		PermissionLeaveApprove,
		PermissionLeaveViewAll,
		PermissionAttendanceViewAll,
		PermissionAttendanceImport,
		PermissionUserManage,
	),
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
