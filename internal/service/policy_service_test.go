package service_test

import (
	"context"
	"testing"

	"github.com/mautops/workspace-gin/internal/model"
	"github.com/mautops/workspace-gin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPolicyService_Create 测试策略创建与校验
func TestPolicyService_Create(t *testing.T) {
	f := newApprovalFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")
	ctx := service.WithUserID(context.Background(), "admin-001")

	policy, err := f.policySvc.Create(ctx, &service.CreatePolicyRequest{
		WorkspaceID:      "ws-dept",
		ResourceCategory: model.ResourceCategoryBudget,
		Chain:            twoLevelChain(),
	})
	require.NoError(t, err)
	assert.Equal(t, "ws-dept", policy.WorkspaceID)
	assert.Equal(t, "admin-001", policy.CreatedBy)

	// 非法资源类别
	_, err = f.policySvc.Create(ctx, &service.CreatePolicyRequest{
		WorkspaceID:      "ws-dept",
		ResourceCategory: "certificate",
		Chain:            twoLevelChain(),
	})
	assert.Error(t, err)

	// 空链
	_, err = f.policySvc.Create(ctx, &service.CreatePolicyRequest{
		WorkspaceID:      "ws-dept",
		ResourceCategory: model.ResourceCategoryTask,
		Chain:            model.ApprovalChain{},
	})
	assert.Error(t, err)

	// 级别号不连续的链
	_, err = f.policySvc.Create(ctx, &service.CreatePolicyRequest{
		WorkspaceID:      "ws-dept",
		ResourceCategory: model.ResourceCategoryTask,
		Chain: model.ApprovalChain{
			{LevelNumber: 1, RequiredRole: "TEAM_LEAD"},
			{LevelNumber: 3, RequiredRole: "DEPARTMENT_HEAD"},
		},
	})
	assert.Error(t, err)

	// 工作区不存在
	_, err = f.policySvc.Create(ctx, &service.CreatePolicyRequest{
		WorkspaceID:      "ws-missing",
		ResourceCategory: model.ResourceCategoryTask,
		Chain:            twoLevelChain(),
	})
	assert.ErrorIs(t, err, service.ErrNotFound)

	// 无管理权限
	f.capability.admin = false
	_, err = f.policySvc.Create(ctx, &service.CreatePolicyRequest{
		WorkspaceID:      "ws-dept",
		ResourceCategory: model.ResourceCategoryTask,
		Chain:            twoLevelChain(),
	})
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

// TestPolicyService_Create_OverwritesExisting 测试同维度重复创建走覆盖更新
func TestPolicyService_Create_OverwritesExisting(t *testing.T) {
	f := newApprovalFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")
	ctx := service.WithUserID(context.Background(), "admin-001")

	first, err := f.policySvc.Create(ctx, &service.CreatePolicyRequest{
		WorkspaceID:      "ws-dept",
		ResourceCategory: model.ResourceCategoryTask,
		Chain:            twoLevelChain(),
	})
	require.NoError(t, err)

	second, err := f.policySvc.Create(ctx, &service.CreatePolicyRequest{
		WorkspaceID:      "ws-dept",
		ResourceCategory: model.ResourceCategoryTask,
		Chain: model.ApprovalChain{
			{LevelNumber: 1, RequiredRole: "DEPARTMENT_HEAD"},
		},
		AllowSelfApproval: true,
	})
	require.NoError(t, err)

	// 保留原记录 ID,不产生第二条
	assert.Equal(t, first.ID, second.ID)

	policies, err := f.policySvc.ListByWorkspace("ws-dept")
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.True(t, policies[0].AllowSelfApproval)

	chain, err := model.UnmarshalChain(policies[0].Chain)
	require.NoError(t, err)
	assert.Len(t, chain, 1)
}

// TestPolicyService_Resolve 测试沿祖先链解析生效策略
func TestPolicyService_Resolve(t *testing.T) {
	f := newApprovalFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")
	ctx := service.WithUserID(context.Background(), "admin-001")

	rootPolicy, err := f.policySvc.Create(ctx, &service.CreatePolicyRequest{
		WorkspaceID:      "ws-root",
		ResourceCategory: model.ResourceCategoryTask,
		Chain:            twoLevelChain(),
	})
	require.NoError(t, err)

	// TEAM 没有显式策略: 继承最近祖先(这里是 ROOT)的
	resolved, err := f.policySvc.Resolve("ws-team", model.ResourceCategoryTask)
	require.NoError(t, err)
	assert.Equal(t, rootPolicy.ID, resolved.ID)

	// DEPARTMENT 配置显式策略后,TEAM 改取更近的一条
	deptPolicy, err := f.policySvc.Create(ctx, &service.CreatePolicyRequest{
		WorkspaceID:      "ws-dept",
		ResourceCategory: model.ResourceCategoryTask,
		Chain: model.ApprovalChain{
			{LevelNumber: 1, RequiredRole: "DEPARTMENT_HEAD"},
		},
	})
	require.NoError(t, err)

	resolved, err = f.policySvc.Resolve("ws-team", model.ResourceCategoryTask)
	require.NoError(t, err)
	assert.Equal(t, deptPolicy.ID, resolved.ID)

	// 本工作区有显式策略时优先于继承
	resolved, err = f.policySvc.Resolve("ws-root", model.ResourceCategoryTask)
	require.NoError(t, err)
	assert.Equal(t, rootPolicy.ID, resolved.ID)

	// 策略只在同类别内生效
	_, err = f.policySvc.Resolve("ws-team", model.ResourceCategoryBudget)
	assert.ErrorIs(t, err, service.ErrPolicyNotConfigured)

	// 非法类别直接报错
	_, err = f.policySvc.Resolve("ws-team", "certificate")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrPolicyNotConfigured)
}

// TestPolicyService_Delete 测试策略删除
func TestPolicyService_Delete(t *testing.T) {
	f := newApprovalFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")
	ctx := service.WithUserID(context.Background(), "admin-001")

	policy, err := f.policySvc.Create(ctx, &service.CreatePolicyRequest{
		WorkspaceID:      "ws-dept",
		ResourceCategory: model.ResourceCategoryTask,
		Chain:            twoLevelChain(),
	})
	require.NoError(t, err)

	require.NoError(t, f.policySvc.Delete(ctx, policy.ID))

	_, err = f.policySvc.Get(policy.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	// 删除不存在的策略
	err = f.policySvc.Delete(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}
