package repository

import (
	"github.com/mautops/workspace-gin/internal/model"
	"gorm.io/gorm"
)

// WorkspaceRepository 工作区仓储接口
// 工作区结构由外部目录服务同步,本服务只做读模型维护
type WorkspaceRepository interface {
	Save(workspace *model.WorkspaceModel) error
	FindByID(id string) (*model.WorkspaceModel, error)
	FindByEventID(eventID string) ([]*model.WorkspaceModel, error)
	FindChildren(parentID string) ([]*model.WorkspaceModel, error)
}

// workspaceRepository 工作区仓储实现
type workspaceRepository struct {
	db *gorm.DB
}

// NewWorkspaceRepository 创建工作区仓储
func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &workspaceRepository{db: db}
}

// Save 保存工作区
func (r *workspaceRepository) Save(workspace *model.WorkspaceModel) error {
	return r.db.Save(workspace).Error
}

// FindByID 根据 ID 查找工作区
func (r *workspaceRepository) FindByID(id string) (*model.WorkspaceModel, error) {
	var workspace model.WorkspaceModel
	if err := r.db.Where("id = ?", id).First(&workspace).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}

// FindByEventID 查找某个活动下的所有工作区
func (r *workspaceRepository) FindByEventID(eventID string) ([]*model.WorkspaceModel, error) {
	var workspaces []*model.WorkspaceModel
	err := r.db.Where("event_id = ?", eventID).Order("created_at ASC").Find(&workspaces).Error
	return workspaces, err
}

// FindChildren 查找直接子工作区
func (r *workspaceRepository) FindChildren(parentID string) ([]*model.WorkspaceModel, error) {
	var workspaces []*model.WorkspaceModel
	err := r.db.Where("parent_id = ?", parentID).Order("created_at ASC").Find(&workspaces).Error
	return workspaces, err
}
