package model

import (
	"errors"
	"time"
)

// 工作区类型常量
const (
	WorkspaceTypeRoot       = "ROOT"
	WorkspaceTypeDepartment = "DEPARTMENT"
	WorkspaceTypeCommittee  = "COMMITTEE"
	WorkspaceTypeTeam       = "TEAM"
)

// WorkspaceModel 工作区数据模型
// 工作区树由外部的工作区目录服务同步过来,本服务只读不改结构
type WorkspaceModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	EventID   string    `gorm:"type:varchar(64);not null;index"` // 所属活动 ID
	Name      string    `gorm:"type:varchar(255);not null"`
	Type      string    `gorm:"type:varchar(32);not null;index"` // ROOT/DEPARTMENT/COMMITTEE/TEAM
	ParentID  *string   `gorm:"type:varchar(64);index"`          // 父工作区 ID,ROOT 为空
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (WorkspaceModel) TableName() string {
	return "workspaces"
}

// IsValidWorkspaceType 判断工作区类型是否合法
func IsValidWorkspaceType(t string) bool {
	switch t {
	case WorkspaceTypeRoot, WorkspaceTypeDepartment, WorkspaceTypeCommittee, WorkspaceTypeTeam:
		return true
	}
	return false
}

// Validate 验证工作区模型
func (wm *WorkspaceModel) Validate() error {
	if wm.ID == "" {
		return errors.New("workspace ID is required")
	}
	if wm.EventID == "" {
		return errors.New("event ID is required")
	}
	if wm.Name == "" {
		return errors.New("workspace name is required")
	}
	if !IsValidWorkspaceType(wm.Type) {
		return errors.New("invalid workspace type")
	}
	// ROOT 没有父节点,其余类型必须有父节点
	if wm.Type == WorkspaceTypeRoot && wm.ParentID != nil {
		return errors.New("root workspace must not have a parent")
	}
	if wm.Type != WorkspaceTypeRoot && (wm.ParentID == nil || *wm.ParentID == "") {
		return errors.New("non-root workspace must have a parent")
	}
	return nil
}
