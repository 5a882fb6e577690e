package service_test

import (
	"context"
	"testing"

	"github.com/mautops/workspace-gin/internal/model"
	"github.com/mautops/workspace-gin/internal/repository"
	"github.com/mautops/workspace-gin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// delegationFixture 委托服务测试上下文
type delegationFixture struct {
	db            *gorm.DB
	hierarchy     service.HierarchyService
	delegationSvc service.DelegationService
	capability    *stubCapability
	notifier      *recordingNotifier
}

// newDelegationFixture 组装委托服务及其依赖
func newDelegationFixture(t *testing.T) *delegationFixture {
	t.Helper()

	db := setupServiceTestDB(t)
	hierarchy := service.NewHierarchyService(repository.NewWorkspaceRepository(db))
	capability := &stubCapability{admin: true}
	notifier := &recordingNotifier{}
	delegationSvc := service.NewDelegationService(
		repository.NewDelegationRepository(db),
		hierarchy,
		capability,
		nil,
		notifier,
	)

	return &delegationFixture{
		db:            db,
		hierarchy:     hierarchy,
		delegationSvc: delegationSvc,
		capability:    capability,
		notifier:      notifier,
	}
}

// allPermissions 全量权限集
func allPermissions() service.DelegationPermissions {
	return service.DelegationPermissions{
		CanDesignTemplates: true,
		CanDefineCriteria:  true,
		CanGenerate:        true,
		CanDistribute:      true,
	}
}

// TestDelegationService_Create 测试创建委托
func TestDelegationService_Create(t *testing.T) {
	f := newDelegationFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")

	grant, err := f.delegationSvc.Create(context.Background(), &service.CreateDelegationRequest{
		RootWorkspaceID:      "ws-root",
		DelegatedWorkspaceID: "ws-dept",
		Permissions: service.DelegationPermissions{
			CanDesignTemplates: true,
		},
		Notes:   "委托市场部设计证书模板",
		ActorID: "user-001",
	})
	require.NoError(t, err)
	assert.Equal(t, "event-001", grant.EventID)
	assert.True(t, grant.CanDesignTemplates)
	assert.False(t, grant.CanGenerate)
	assert.Equal(t, "user-001", grant.DelegatedBy)
	assert.Contains(t, f.notifier.typesOf(), model.EventTypeDelegationCreated)
}

// TestDelegationService_Create_TargetValidation 测试委托目标校验
func TestDelegationService_Create_TargetValidation(t *testing.T) {
	f := newDelegationFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")
	// 另一棵树,不在 ws-root 的后代里
	mustSyncWorkspace(t, f.hierarchy, "ws-other-root", "event-002", model.WorkspaceTypeRoot, nil)
	otherRootID := "ws-other-root"
	mustSyncWorkspace(t, f.hierarchy, "ws-other-dept", "event-002", model.WorkspaceTypeDepartment, &otherRootID)

	// 目标等于授权方自己: 严格后代语义下无效
	_, err := f.delegationSvc.Create(context.Background(), &service.CreateDelegationRequest{
		RootWorkspaceID:      "ws-root",
		DelegatedWorkspaceID: "ws-root",
		Permissions:          allPermissions(),
		ActorID:              "user-001",
	})
	assert.ErrorIs(t, err, service.ErrInvalidTarget)

	// 目标不在授权方的后代里
	_, err = f.delegationSvc.Create(context.Background(), &service.CreateDelegationRequest{
		RootWorkspaceID:      "ws-root",
		DelegatedWorkspaceID: "ws-other-dept",
		Permissions:          allPermissions(),
		ActorID:              "user-001",
	})
	assert.ErrorIs(t, err, service.ErrInvalidTarget)

	// 空权限集
	_, err = f.delegationSvc.Create(context.Background(), &service.CreateDelegationRequest{
		RootWorkspaceID:      "ws-root",
		DelegatedWorkspaceID: "ws-dept",
		Permissions:          service.DelegationPermissions{},
		ActorID:              "user-001",
	})
	assert.ErrorIs(t, err, service.ErrEmptyPermissionSet)

	// 目标工作区不存在
	_, err = f.delegationSvc.Create(context.Background(), &service.CreateDelegationRequest{
		RootWorkspaceID:      "ws-root",
		DelegatedWorkspaceID: "ws-missing",
		Permissions:          allPermissions(),
		ActorID:              "user-001",
	})
	assert.ErrorIs(t, err, service.ErrNotFound)

	// 无管理权限
	f.capability.admin = false
	_, err = f.delegationSvc.Create(context.Background(), &service.CreateDelegationRequest{
		RootWorkspaceID:      "ws-root",
		DelegatedWorkspaceID: "ws-dept",
		Permissions:          allPermissions(),
		ActorID:              "user-001",
	})
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

// TestDelegationService_Create_UpsertSamePair 测试同一授权对重复创建走原地更新
func TestDelegationService_Create_UpsertSamePair(t *testing.T) {
	f := newDelegationFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")

	first, err := f.delegationSvc.Create(context.Background(), &service.CreateDelegationRequest{
		RootWorkspaceID:      "ws-root",
		DelegatedWorkspaceID: "ws-dept",
		Permissions: service.DelegationPermissions{
			CanDesignTemplates: true,
			CanGenerate:        true,
		},
		ActorID: "user-001",
	})
	require.NoError(t, err)

	// 再次授权同一目标: 权限集整体替换,记录 ID 不变
	second, err := f.delegationSvc.Create(context.Background(), &service.CreateDelegationRequest{
		RootWorkspaceID:      "ws-root",
		DelegatedWorkspaceID: "ws-dept",
		Permissions: service.DelegationPermissions{
			CanDistribute: true,
		},
		ActorID: "user-002",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.CanDesignTemplates)
	assert.False(t, second.CanGenerate)
	assert.True(t, second.CanDistribute)

	grants, err := f.delegationSvc.List("ws-root")
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

// TestDelegationService_Update 测试更新委托权限集
func TestDelegationService_Update(t *testing.T) {
	f := newDelegationFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")

	grant, err := f.delegationSvc.Create(context.Background(), &service.CreateDelegationRequest{
		RootWorkspaceID:      "ws-root",
		DelegatedWorkspaceID: "ws-dept",
		Permissions:          allPermissions(),
		ActorID:              "user-001",
	})
	require.NoError(t, err)

	updated, err := f.delegationSvc.Update(context.Background(), grant.ID, &service.UpdateDelegationRequest{
		Permissions: service.DelegationPermissions{CanGenerate: true},
		Notes:       "只保留生成权限",
		ActorID:     "user-001",
	})
	require.NoError(t, err)
	assert.True(t, updated.CanGenerate)
	assert.False(t, updated.CanDesignTemplates)
	assert.Equal(t, "只保留生成权限", updated.Notes)

	// 更新也不允许空权限集
	_, err = f.delegationSvc.Update(context.Background(), grant.ID, &service.UpdateDelegationRequest{
		Permissions: service.DelegationPermissions{},
		ActorID:     "user-001",
	})
	assert.ErrorIs(t, err, service.ErrEmptyPermissionSet)

	// 不存在的委托
	_, err = f.delegationSvc.Update(context.Background(), "missing", &service.UpdateDelegationRequest{
		Permissions: allPermissions(),
		ActorID:     "user-001",
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

// TestDelegationService_Revoke 测试撤销委托
func TestDelegationService_Revoke(t *testing.T) {
	f := newDelegationFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")

	grant, err := f.delegationSvc.Create(context.Background(), &service.CreateDelegationRequest{
		RootWorkspaceID:      "ws-root",
		DelegatedWorkspaceID: "ws-dept",
		Permissions:          allPermissions(),
		ActorID:              "user-001",
	})
	require.NoError(t, err)

	ctx := service.WithUserID(context.Background(), "user-001")
	require.NoError(t, f.delegationSvc.Revoke(ctx, grant.ID))

	grants, err := f.delegationSvc.List("ws-root")
	require.NoError(t, err)
	assert.Empty(t, grants)

	// 撤销后再次授权产生新记录
	again, err := f.delegationSvc.Create(context.Background(), &service.CreateDelegationRequest{
		RootWorkspaceID:      "ws-root",
		DelegatedWorkspaceID: "ws-dept",
		Permissions:          allPermissions(),
		ActorID:              "user-001",
	})
	require.NoError(t, err)
	assert.NotEqual(t, grant.ID, again.ID)

	// 不存在的委托
	err = f.delegationSvc.Revoke(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

// TestDelegationService_EligibleTargets 测试可选目标投影
func TestDelegationService_EligibleTargets(t *testing.T) {
	f := newDelegationFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")
	deptID := "ws-dept"
	mustSyncWorkspace(t, f.hierarchy, "ws-committee", "event-001", model.WorkspaceTypeCommittee, &deptID)

	// TEAM 层级不在候选里,DEPARTMENT/COMMITTEE 在
	targets, err := f.delegationSvc.EligibleTargets("ws-root", "")
	require.NoError(t, err)
	require.Len(t, targets, 2)
	ids := []string{targets[0].ID, targets[1].ID}
	assert.Contains(t, ids, "ws-dept")
	assert.Contains(t, ids, "ws-committee")

	// 已持有授权的工作区被排除
	_, err = f.delegationSvc.Create(context.Background(), &service.CreateDelegationRequest{
		RootWorkspaceID:      "ws-root",
		DelegatedWorkspaceID: "ws-dept",
		Permissions:          allPermissions(),
		ActorID:              "user-001",
	})
	require.NoError(t, err)

	targets, err = f.delegationSvc.EligibleTargets("ws-root", "")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "ws-committee", targets[0].ID)

	// 按活动过滤
	targets, err = f.delegationSvc.EligibleTargets("ws-root", "event-002")
	require.NoError(t, err)
	assert.Empty(t, targets)
}
