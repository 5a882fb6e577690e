package model

import (
	"errors"
	"time"
)

// 审批请求状态常量
const (
	RequestStatusPending   = "pending"
	RequestStatusApproved  = "approved"
	RequestStatusRejected  = "rejected"
	RequestStatusCancelled = "cancelled"
)

// ApprovalRequestModel 审批请求数据模型
// 创建时把策略的审批链按值快照到请求里,后续策略变更不影响在途请求
type ApprovalRequestModel struct {
	ID                string     `gorm:"primaryKey;type:varchar(64)"`
	WorkspaceID       string     `gorm:"type:varchar(64);not null;index"`
	ResourceCategory  string     `gorm:"type:varchar(32);not null;index"` // task/budget/resource/access
	SubjectRef        string     `gorm:"type:varchar(128);not null;index"` // 业务对象引用,如任务 ID
	RequesterID       string     `gorm:"type:varchar(64);not null;index"`
	Status            string     `gorm:"type:varchar(32);not null;index"` // pending/approved/rejected/cancelled
	CurrentLevel      int        `gorm:"type:int;not null;default:1"`
	Chain             []byte     `gorm:"type:jsonb;not null"` // 创建时快照的审批链
	AllowSelfApproval bool       `gorm:"not null;default:false"` // 创建时快照的自审批开关
	RequestedAt       time.Time  `gorm:"not null;index"`
	UpdatedAt         time.Time  `gorm:"not null"`
	ResolvedAt        *time.Time `gorm:"index"` // 进入终态的时间
}

// TableName 指定表名
func (ApprovalRequestModel) TableName() string {
	return "approval_requests"
}

// IsTerminal 判断请求是否处于终态
func (rm *ApprovalRequestModel) IsTerminal() bool {
	switch rm.Status {
	case RequestStatusApproved, RequestStatusRejected, RequestStatusCancelled:
		return true
	}
	return false
}

// Validate 验证审批请求模型
func (rm *ApprovalRequestModel) Validate() error {
	if rm.ID == "" {
		return errors.New("request ID is required")
	}
	if rm.WorkspaceID == "" {
		return errors.New("workspace ID is required")
	}
	if !IsValidResourceCategory(rm.ResourceCategory) {
		return errors.New("invalid resource category")
	}
	if rm.SubjectRef == "" {
		return errors.New("subject ref is required")
	}
	if rm.RequesterID == "" {
		return errors.New("requester ID is required")
	}
	if rm.Status == "" {
		return errors.New("request status is required")
	}
	if rm.CurrentLevel < 1 {
		return errors.New("current level must be at least 1")
	}
	if len(rm.Chain) == 0 {
		return errors.New("approval chain snapshot is required")
	}
	return nil
}
