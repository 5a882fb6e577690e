package repository

import (
	"github.com/mautops/workspace-gin/internal/model"
	"gorm.io/gorm"
)

// EventRepository 通知事件仓储接口
type EventRepository interface {
	Save(event *model.EventModel) error
	FindByID(id string) (*model.EventModel, error)
	FindPending(limit int) ([]*model.EventModel, error)
	FindByResource(resourceType string, resourceID string) ([]*model.EventModel, error)
}

// eventRepository 通知事件仓储实现
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository 创建通知事件仓储
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Save 保存通知事件
func (r *eventRepository) Save(event *model.EventModel) error {
	return r.db.Save(event).Error
}

// FindByID 根据 ID 查找通知事件
func (r *eventRepository) FindByID(id string) (*model.EventModel, error) {
	var event model.EventModel
	if err := r.db.Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// FindPending 查找待推送事件,按创建时间升序
func (r *eventRepository) FindPending(limit int) ([]*model.EventModel, error) {
	var events []*model.EventModel
	query := r.db.Where("status = ?", "pending").Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&events).Error
	return events, err
}

// FindByResource 查找某资源的全部事件
func (r *eventRepository) FindByResource(resourceType string, resourceID string) ([]*model.EventModel, error) {
	var events []*model.EventModel
	err := r.db.Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at DESC").Find(&events).Error
	return events, err
}
