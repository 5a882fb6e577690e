package model

import (
	"errors"
	"time"
)

// 通知事件类型常量
const (
	EventTypeRequestCreated    = "request_created"
	EventTypeDecisionRecorded  = "decision_recorded"
	EventTypeRequestEscalated  = "request_escalated"
	EventTypeRequestResolved   = "request_resolved"
	EventTypeDelegationCreated = "delegation_created"
	EventTypeDelegationUpdated = "delegation_updated"
	EventTypeDelegationRevoked = "delegation_revoked"
)

// EventModel 通知事件数据模型
// 状态转换的出站事件,先落库再异步推送,推送失败不影响核心事务
type EventModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	ResourceType string    `gorm:"type:varchar(32);not null;index"` // request/delegation
	ResourceID   string    `gorm:"type:varchar(64);not null;index"`
	Type         string    `gorm:"type:varchar(32);not null;index"`
	Data         []byte    `gorm:"type:jsonb;not null"` // 序列化后的事件数据
	Status       string    `gorm:"type:varchar(32);not null;default:'pending'"` // pending/success/failed
	RetryCount   int       `gorm:"type:int;default:0"`
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName 指定表名
func (EventModel) TableName() string {
	return "events"
}

// Validate 验证事件模型
func (em *EventModel) Validate() error {
	if em.ID == "" {
		return errors.New("event ID is required")
	}
	if em.ResourceType == "" {
		return errors.New("resource type is required")
	}
	if em.ResourceID == "" {
		return errors.New("resource ID is required")
	}
	if em.Type == "" {
		return errors.New("event type is required")
	}
	if len(em.Data) == 0 {
		return errors.New("event data is required")
	}
	if em.Status == "" {
		em.Status = "pending"
	}
	return nil
}
