package repository

import (
	"github.com/mautops/workspace-gin/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DelegationRepository 委托仓储接口
type DelegationRepository interface {
	Upsert(grant *model.DelegationGrantModel) (*model.DelegationGrantModel, error)
	Save(grant *model.DelegationGrantModel) error
	FindByID(id string) (*model.DelegationGrantModel, error)
	FindByPair(rootWorkspaceID string, delegatedWorkspaceID string) (*model.DelegationGrantModel, error)
	FindByRootWorkspace(rootWorkspaceID string) ([]*model.DelegationGrantModel, error)
	Delete(id string) error
}

// delegationRepository 委托仓储实现
type delegationRepository struct {
	db *gorm.DB
}

// NewDelegationRepository 创建委托仓储
func NewDelegationRepository(db *gorm.DB) DelegationRepository {
	return &delegationRepository{db: db}
}

// Upsert 按 (root_workspace_id, delegated_workspace_id) 原子地插入或更新
// 冲突时保留原 ID 与 delegated_at,权限集整体替换
func (r *delegationRepository) Upsert(grant *model.DelegationGrantModel) (*model.DelegationGrantModel, error) {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "root_workspace_id"}, {Name: "delegated_workspace_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"can_design_templates",
			"can_define_criteria",
			"can_generate",
			"can_distribute",
			"notes",
			"delegated_by",
			"updated_at",
		}),
	}).Create(grant).Error
	if err != nil {
		return nil, err
	}

	// 冲突更新时插入行的 ID 不会回填,重新按键读取得到权威记录
	return r.FindByPair(grant.RootWorkspaceID, grant.DelegatedWorkspaceID)
}

// Save 保存委托记录
func (r *delegationRepository) Save(grant *model.DelegationGrantModel) error {
	return r.db.Save(grant).Error
}

// FindByID 根据 ID 查找委托记录
func (r *delegationRepository) FindByID(id string) (*model.DelegationGrantModel, error) {
	var grant model.DelegationGrantModel
	if err := r.db.Where("id = ?", id).First(&grant).Error; err != nil {
		return nil, err
	}
	return &grant, nil
}

// FindByPair 根据授权对查找委托记录
func (r *delegationRepository) FindByPair(rootWorkspaceID string, delegatedWorkspaceID string) (*model.DelegationGrantModel, error) {
	var grant model.DelegationGrantModel
	if err := r.db.Where("root_workspace_id = ? AND delegated_workspace_id = ?", rootWorkspaceID, delegatedWorkspaceID).First(&grant).Error; err != nil {
		return nil, err
	}
	return &grant, nil
}

// FindByRootWorkspace 查找某工作区发出的全部委托,按授权时间倒序
func (r *delegationRepository) FindByRootWorkspace(rootWorkspaceID string) ([]*model.DelegationGrantModel, error) {
	var grants []*model.DelegationGrantModel
	err := r.db.Where("root_workspace_id = ?", rootWorkspaceID).Order("delegated_at DESC").Find(&grants).Error
	return grants, err
}

// Delete 删除委托记录
func (r *delegationRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&model.DelegationGrantModel{}).Error
}
