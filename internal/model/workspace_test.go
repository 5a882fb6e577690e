package model_test

import (
	"testing"
	"time"

	"github.com/mautops/workspace-gin/internal/model"
	"github.com/stretchr/testify/assert"
)

// TestWorkspaceModel_Validate 测试工作区模型验证
func TestWorkspaceModel_Validate(t *testing.T) {
	now := time.Now()

	root := &model.WorkspaceModel{
		ID:        "ws-root",
		EventID:   "event-001",
		Name:      "年会组委会",
		Type:      model.WorkspaceTypeRoot,
		CreatedAt: now,
		UpdatedAt: now,
	}
	assert.NoError(t, root.Validate())

	// ROOT 不能有父节点
	parentID := "ws-other"
	rootWithParent := *root
	rootWithParent.ParentID = &parentID
	assert.Error(t, rootWithParent.Validate())

	// 非 ROOT 必须有父节点
	dept := &model.WorkspaceModel{
		ID:        "ws-dept",
		EventID:   "event-001",
		Name:      "市场部",
		Type:      model.WorkspaceTypeDepartment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	assert.Error(t, dept.Validate())

	rootID := "ws-root"
	dept.ParentID = &rootID
	assert.NoError(t, dept.Validate())

	// 非法类型
	invalid := *root
	invalid.Type = "DIVISION"
	assert.Error(t, invalid.Validate())

	// 缺少活动 ID
	noEvent := *root
	noEvent.EventID = ""
	assert.Error(t, noEvent.Validate())
}

// TestIsValidWorkspaceType 测试工作区类型合法性判断
func TestIsValidWorkspaceType(t *testing.T) {
	assert.True(t, model.IsValidWorkspaceType(model.WorkspaceTypeRoot))
	assert.True(t, model.IsValidWorkspaceType(model.WorkspaceTypeDepartment))
	assert.True(t, model.IsValidWorkspaceType(model.WorkspaceTypeCommittee))
	assert.True(t, model.IsValidWorkspaceType(model.WorkspaceTypeTeam))
	assert.False(t, model.IsValidWorkspaceType("root"))
	assert.False(t, model.IsValidWorkspaceType(""))
}
