package repository

import (
	"github.com/mautops/workspace-gin/internal/model"
	"gorm.io/gorm"
)

// RequestRepository 审批请求仓储接口
type RequestRepository interface {
	Save(request *model.ApprovalRequestModel) error
	FindByID(id string) (*model.ApprovalRequestModel, error)
	FindByFilter(filter *RequestFilter) ([]*model.ApprovalRequestModel, int64, error)
}

// RequestFilter 审批请求查询过滤器
type RequestFilter struct {
	WorkspaceID      *string
	ResourceCategory *string
	Status           *string
	RequesterID      *string
	SubjectRef       *string
	StartTime        *string
	EndTime          *string
	Page             int
	PageSize         int
}

// requestRepository 审批请求仓储实现
type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository 创建审批请求仓储
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

// Save 保存审批请求
func (r *requestRepository) Save(request *model.ApprovalRequestModel) error {
	return r.db.Save(request).Error
}

// FindByID 根据 ID 查找审批请求
func (r *requestRepository) FindByID(id string) (*model.ApprovalRequestModel, error) {
	var request model.ApprovalRequestModel
	if err := r.db.Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// FindByFilter 根据过滤器分页查找审批请求
func (r *requestRepository) FindByFilter(filter *RequestFilter) ([]*model.ApprovalRequestModel, int64, error) {
	var requests []*model.ApprovalRequestModel
	query := r.db.Model(&model.ApprovalRequestModel{})

	if filter != nil {
		if filter.WorkspaceID != nil {
			query = query.Where("workspace_id = ?", *filter.WorkspaceID)
		}
		if filter.ResourceCategory != nil {
			query = query.Where("resource_category = ?", *filter.ResourceCategory)
		}
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.RequesterID != nil {
			query = query.Where("requester_id = ?", *filter.RequesterID)
		}
		if filter.SubjectRef != nil {
			query = query.Where("subject_ref = ?", *filter.SubjectRef)
		}
		if filter.StartTime != nil {
			query = query.Where("requested_at >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			query = query.Where("requested_at <= ?", *filter.EndTime)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页
	if filter != nil && filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	err := query.Order("requested_at DESC").Find(&requests).Error
	return requests, total, err
}
