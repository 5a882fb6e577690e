package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// 资源类别常量
const (
	ResourceCategoryTask     = "task"
	ResourceCategoryBudget   = "budget"
	ResourceCategoryResource = "resource"
	ResourceCategoryAccess   = "access"
)

// ApprovalLevel 审批链中的一级
type ApprovalLevel struct {
	LevelNumber  int    `json:"level_number"`  // 从 1 开始,连续递增
	RequiredRole string `json:"required_role"` // 该级要求的角色
	Description  string `json:"description,omitempty"`
}

// ApprovalChain 有序的审批链
type ApprovalChain []ApprovalLevel

// Validate 验证审批链: 非空,级别号从 1 开始连续递增且不重复
func (c ApprovalChain) Validate() error {
	if len(c) == 0 {
		return errors.New("approval chain must not be empty")
	}
	for i, level := range c {
		if level.LevelNumber != i+1 {
			return fmt.Errorf("approval chain levels must be contiguous starting at 1, got %d at position %d", level.LevelNumber, i)
		}
		if level.RequiredRole == "" {
			return fmt.Errorf("approval chain level %d is missing a required role", level.LevelNumber)
		}
	}
	return nil
}

// Marshal 序列化审批链
func (c ApprovalChain) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// UnmarshalChain 反序列化审批链
func UnmarshalChain(data []byte) (ApprovalChain, error) {
	var chain ApprovalChain
	if err := json.Unmarshal(data, &chain); err != nil {
		return nil, fmt.Errorf("failed to unmarshal approval chain: %w", err)
	}
	return chain, nil
}

// ApprovalPolicyModel 审批策略数据模型
// 按 (workspace_id, resource_category) 维度配置审批链
type ApprovalPolicyModel struct {
	ID                string    `gorm:"primaryKey;type:varchar(64)"`
	WorkspaceID       string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_policies_workspace_category"`
	ResourceCategory  string    `gorm:"type:varchar(32);not null;uniqueIndex:uq_policies_workspace_category"` // task/budget/resource/access
	Chain             []byte    `gorm:"type:jsonb;not null"` // 序列化后的 ApprovalChain
	AllowSelfApproval bool      `gorm:"not null;default:false"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
	CreatedBy         string    `gorm:"type:varchar(64)"` // 创建人 ID
}

// TableName 指定表名
func (ApprovalPolicyModel) TableName() string {
	return "approval_policies"
}

// IsValidResourceCategory 判断资源类别是否合法
func IsValidResourceCategory(c string) bool {
	switch c {
	case ResourceCategoryTask, ResourceCategoryBudget, ResourceCategoryResource, ResourceCategoryAccess:
		return true
	}
	return false
}

// Validate 验证审批策略模型
func (pm *ApprovalPolicyModel) Validate() error {
	if pm.ID == "" {
		return errors.New("policy ID is required")
	}
	if pm.WorkspaceID == "" {
		return errors.New("workspace ID is required")
	}
	if !IsValidResourceCategory(pm.ResourceCategory) {
		return errors.New("invalid resource category")
	}
	if len(pm.Chain) == 0 {
		return errors.New("approval chain is required")
	}
	chain, err := UnmarshalChain(pm.Chain)
	if err != nil {
		return err
	}
	return chain.Validate()
}
