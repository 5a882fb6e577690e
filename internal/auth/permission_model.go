package auth

// GetPermissionModel 获取 OpenFGA 权限模型定义
func GetPermissionModel() string {
	return `model
  schema 1.1

type user

type workspace
  relations
    define admin: [user]
    define member: [user] or admin
    define viewer: [user] or member

type approval_request
  relations
    define requester: [user]
    define approver: [user]
    define viewer: [user] or requester or approver`
}
