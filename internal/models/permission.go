package models

// Permission actions checked before job operations
const (
	PermissionJobCreate    = "job:create"
	PermissionFileResume   = "file:resume"
	PermissionFilePause    = "file:pause"
	PermissionFileFinish   = "file:finish"
	PermissionFileCancel   = "file:cancel"
	PermissionFileTransfer = "file:transfer"
	PermissionFileList     = "file:list"

	// PermissionAll grants every action
	PermissionAll = "*"
)

// Roles
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

// EmployeePermissions is the default permission set of the employee role
var EmployeePermissions = []string{
	PermissionJobCreate,
	PermissionFileResume,
	PermissionFilePause,
	PermissionFileFinish,
	PermissionFileCancel,
	PermissionFileTransfer,
	PermissionFileList,
}
