package model

import (
	"errors"
	"time"
)

// 审批决定常量
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// ApprovalDecisionModel 审批决定数据模型
// (request_id, level) 上的唯一索引承载并发双提交的幂等保证
type ApprovalDecisionModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	RequestID    string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_decisions_request_level;index"`
	Level        int       `gorm:"type:int;not null;uniqueIndex:uq_decisions_request_level"`
	ApproverID   string    `gorm:"type:varchar(64);not null;index"`
	ApproverRole string    `gorm:"type:varchar(64);not null"`
	Decision     string    `gorm:"type:varchar(32);not null"` // approved/rejected
	Notes        string    `gorm:"type:text"`
	DecidedAt    time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (ApprovalDecisionModel) TableName() string {
	return "approval_decisions"
}

// Validate 验证审批决定模型
func (dm *ApprovalDecisionModel) Validate() error {
	if dm.ID == "" {
		return errors.New("decision ID is required")
	}
	if dm.RequestID == "" {
		return errors.New("request ID is required")
	}
	if dm.Level < 1 {
		return errors.New("decision level must be at least 1")
	}
	if dm.ApproverID == "" {
		return errors.New("approver ID is required")
	}
	if dm.Decision != DecisionApproved && dm.Decision != DecisionRejected {
		return errors.New("decision must be approved or rejected")
	}
	return nil
}
