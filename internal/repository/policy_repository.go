package repository

import (
	"github.com/mautops/workspace-gin/internal/model"
	"gorm.io/gorm"
)

// PolicyRepository 审批策略仓储接口
type PolicyRepository interface {
	Save(policy *model.ApprovalPolicyModel) error
	FindByID(id string) (*model.ApprovalPolicyModel, error)
	FindByWorkspaceAndCategory(workspaceID string, category string) (*model.ApprovalPolicyModel, error)
	FindByWorkspace(workspaceID string) ([]*model.ApprovalPolicyModel, error)
	Delete(id string) error
}

// policyRepository 审批策略仓储实现
type policyRepository struct {
	db *gorm.DB
}

// NewPolicyRepository 创建审批策略仓储
func NewPolicyRepository(db *gorm.DB) PolicyRepository {
	return &policyRepository{db: db}
}

// Save 保存审批策略
func (r *policyRepository) Save(policy *model.ApprovalPolicyModel) error {
	return r.db.Save(policy).Error
}

// FindByID 根据 ID 查找审批策略
func (r *policyRepository) FindByID(id string) (*model.ApprovalPolicyModel, error) {
	var policy model.ApprovalPolicyModel
	if err := r.db.Where("id = ?", id).First(&policy).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

// FindByWorkspaceAndCategory 查找工作区在某资源类别下的策略
func (r *policyRepository) FindByWorkspaceAndCategory(workspaceID string, category string) (*model.ApprovalPolicyModel, error) {
	var policy model.ApprovalPolicyModel
	if err := r.db.Where("workspace_id = ? AND resource_category = ?", workspaceID, category).First(&policy).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

// FindByWorkspace 查找工作区的所有策略
func (r *policyRepository) FindByWorkspace(workspaceID string) ([]*model.ApprovalPolicyModel, error) {
	var policies []*model.ApprovalPolicyModel
	err := r.db.Where("workspace_id = ?", workspaceID).Order("resource_category ASC").Find(&policies).Error
	return policies, err
}

// Delete 删除审批策略
func (r *policyRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&model.ApprovalPolicyModel{}).Error
}
