package model

import (
	"errors"
	"time"
)

// DelegationGrantModel 证书权限委托数据模型
// 同一 (root_workspace_id, delegated_workspace_id) 至多一条记录,重复授权走更新
type DelegationGrantModel struct {
	ID                   string    `gorm:"primaryKey;type:varchar(64)"`
	EventID              string    `gorm:"type:varchar(64);not null;index"`
	RootWorkspaceID      string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_delegations_pair;index"`
	DelegatedWorkspaceID string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_delegations_pair"`
	CanDesignTemplates   bool      `gorm:"not null;default:false"`
	CanDefineCriteria    bool      `gorm:"not null;default:false"`
	CanGenerate          bool      `gorm:"not null;default:false"`
	CanDistribute        bool      `gorm:"not null;default:false"`
	Notes                string    `gorm:"type:text"`
	DelegatedBy          string    `gorm:"type:varchar(64);not null"` // 授权人 ID
	DelegatedAt          time.Time `gorm:"not null;index"`
	UpdatedAt            time.Time `gorm:"not null"`
}

// TableName 指定表名
func (DelegationGrantModel) TableName() string {
	return "delegation_grants"
}

// HasAnyPermission 判断是否至少授予一项权限
func (gm *DelegationGrantModel) HasAnyPermission() bool {
	return gm.CanDesignTemplates || gm.CanDefineCriteria || gm.CanGenerate || gm.CanDistribute
}

// Validate 验证委托模型
func (gm *DelegationGrantModel) Validate() error {
	if gm.ID == "" {
		return errors.New("delegation ID is required")
	}
	if gm.EventID == "" {
		return errors.New("event ID is required")
	}
	if gm.RootWorkspaceID == "" {
		return errors.New("root workspace ID is required")
	}
	if gm.DelegatedWorkspaceID == "" {
		return errors.New("delegated workspace ID is required")
	}
	if gm.RootWorkspaceID == gm.DelegatedWorkspaceID {
		return errors.New("cannot delegate to the granting workspace itself")
	}
	if !gm.HasAnyPermission() {
		return errors.New("at least one permission must be granted")
	}
	if gm.DelegatedBy == "" {
		return errors.New("delegated by is required")
	}
	return nil
}
