package service

import (
	"github.com/mautops/workspace-gin/internal/model"
)

// RoleComparator 判断实际角色是否满足要求角色
// 角色体系按资源类别不同而不同,由调用方注入,核心不内置角色排序
type RoleComparator func(actualRole string, requiredRole string) bool

// EqualRoles 默认比较器: 严格相等
func EqualRoles(actualRole string, requiredRole string) bool {
	return actualRole == requiredRole
}

// RankedRoles 构造基于排名的比较器,排名高的角色满足排名低的要求
// 例如 {"OWNER": 3, "ADMIN": 2, "MEMBER": 1} 时 OWNER 满足 ADMIN 级别
func RankedRoles(ranks map[string]int) RoleComparator {
	return func(actualRole string, requiredRole string) bool {
		actual, ok := ranks[actualRole]
		if !ok {
			return actualRole == requiredRole
		}
		required, ok := ranks[requiredRole]
		if !ok {
			return actualRole == requiredRole
		}
		return actual >= required
	}
}

// EligibilityEvaluator 审批资格评估器
// 纯函数,无副作用,状态机和 UI 层共用,避免授权逻辑重复实现
type EligibilityEvaluator struct {
	roleSatisfies RoleComparator
}

// NewEligibilityEvaluator 创建资格评估器,comparator 为 nil 时用严格相等
func NewEligibilityEvaluator(comparator RoleComparator) *EligibilityEvaluator {
	if comparator == nil {
		comparator = EqualRoles
	}
	return &EligibilityEvaluator{roleSatisfies: comparator}
}

// IsSelfApproval 判断是否为请求人给自己审批
// 单独暴露,让 UI 能区分 "不能自审批" 和 "还没轮到你" 两种提示
func (e *EligibilityEvaluator) IsSelfApproval(request *model.ApprovalRequestModel, userID string) bool {
	return request.RequesterID == userID
}

// CanApprove 判断用户能否在请求的当前级别提交决定
// 条件: 请求处于 pending,角色满足当前级别要求,且不构成被禁止的自审批
func (e *EligibilityEvaluator) CanApprove(request *model.ApprovalRequestModel, chain model.ApprovalChain, userID string, userRole string) bool {
	if request.Status != model.RequestStatusPending {
		return false
	}
	if request.CurrentLevel < 1 || request.CurrentLevel > len(chain) {
		return false
	}
	level := chain[request.CurrentLevel-1]
	if !e.roleSatisfies(userRole, level.RequiredRole) {
		return false
	}
	if e.IsSelfApproval(request, userID) && !request.AllowSelfApproval {
		return false
	}
	return true
}
