package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// 核心错误分类
// 全部同步返回给调用方,属于授权/状态冲突而非瞬时故障,调用方不应重试
var (
	// ErrNotFound 工作区/请求/策略/委托不存在
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidState 请求不在期望状态,包括跨级提交
	ErrInvalidState = errors.New("request is not in a valid state for this operation")
	// ErrNotEligible 角色不满足当前级别要求,或不允许的自审批
	ErrNotEligible = errors.New("user is not eligible to decide at the current level")
	// ErrDuplicateDecision 同一级别重复提交决定
	ErrDuplicateDecision = errors.New("a decision already exists for this level")
	// ErrInvalidTarget 委托目标不是授权方的严格后代
	ErrInvalidTarget = errors.New("delegation target must be a strict descendant of the granting workspace")
	// ErrEmptyPermissionSet 委托的权限集为空
	ErrEmptyPermissionSet = errors.New("at least one delegation permission must be granted")
	// ErrUnauthorized 操作者缺少工作区管理权限
	ErrUnauthorized = errors.New("actor lacks admin capability on the workspace")
	// ErrPolicyNotConfigured 祖先链上没有任何策略,调用方应视为自动通过
	// 这是默认放行的产品决策,不是失败
	ErrPolicyNotConfigured = errors.New("no approval policy configured for this workspace chain")
)

// isUniqueViolation 判断是否为唯一约束冲突
// gorm 在开启 TranslateError 时返回 ErrDuplicatedKey,
// 字符串匹配兜底覆盖 SQLite 与 PostgreSQL 的原生报错
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// isRecordNotFound 判断是否为记录不存在
func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
