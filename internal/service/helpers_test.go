package service_test

import (
	"testing"
	"time"

	"github.com/mautops/workspace-gin/internal/database"
	"github.com/mautops/workspace-gin/internal/model"
	"github.com/mautops/workspace-gin/internal/repository"
	"github.com/mautops/workspace-gin/internal/service"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupServiceTestDB 创建服务测试数据库,建表并创建唯一索引
func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	err = database.Migrate(db)
	require.NoError(t, err)

	return db
}

// mustSyncWorkspace 同步一条工作区记录,失败时终止测试
func mustSyncWorkspace(t *testing.T, hierarchy service.HierarchyService, id string, eventID string, wsType string, parentID *string) {
	t.Helper()

	now := time.Now()
	err := hierarchy.Sync(&model.WorkspaceModel{
		ID:        id,
		EventID:   eventID,
		Name:      "workspace " + id,
		Type:      wsType,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
}

// seedWorkspaceTree 构建 ROOT -> DEPARTMENT -> TEAM 三级树
func seedWorkspaceTree(t *testing.T, hierarchy service.HierarchyService, eventID string) {
	t.Helper()

	mustSyncWorkspace(t, hierarchy, "ws-root", eventID, model.WorkspaceTypeRoot, nil)
	rootID := "ws-root"
	mustSyncWorkspace(t, hierarchy, "ws-dept", eventID, model.WorkspaceTypeDepartment, &rootID)
	deptID := "ws-dept"
	mustSyncWorkspace(t, hierarchy, "ws-team", eventID, model.WorkspaceTypeTeam, &deptID)
}

// stubCapability 固定返回值的工作区管理权限检查桩
type stubCapability struct {
	admin bool
	err   error
}

func (s *stubCapability) IsWorkspaceAdmin(userID string, workspaceID string) (bool, error) {
	return s.admin, s.err
}

// recordingNotifier 记录发布事件的通知桩
type recordingNotifier struct {
	events []*service.TransitionEvent
}

func (n *recordingNotifier) Publish(event *service.TransitionEvent) {
	n.events = append(n.events, event)
}

// typesOf 提取事件类型列表,便于断言发布顺序
func (n *recordingNotifier) typesOf() []string {
	types := make([]string, 0, len(n.events))
	for _, e := range n.events {
		types = append(types, e.Type)
	}
	return types
}

// approvalFixture 审批服务测试上下文
type approvalFixture struct {
	db          *gorm.DB
	hierarchy   service.HierarchyService
	policySvc   service.PolicyService
	approvalSvc service.ApprovalService
	capability  *stubCapability
	notifier    *recordingNotifier
}

// newApprovalFixture 组装审批服务及其依赖
func newApprovalFixture(t *testing.T) *approvalFixture {
	t.Helper()

	db := setupServiceTestDB(t)
	hierarchy := service.NewHierarchyService(repository.NewWorkspaceRepository(db))
	capability := &stubCapability{admin: true}
	policySvc := service.NewPolicyService(repository.NewPolicyRepository(db), hierarchy, capability, nil)
	notifier := &recordingNotifier{}
	approvalSvc := service.NewApprovalService(
		db,
		repository.NewRequestRepository(db),
		repository.NewDecisionRepository(db),
		repository.NewStateHistoryRepository(db),
		policySvc,
		service.NewEligibilityEvaluator(nil),
		capability,
		nil,
		notifier,
	)

	return &approvalFixture{
		db:          db,
		hierarchy:   hierarchy,
		policySvc:   policySvc,
		approvalSvc: approvalSvc,
		capability:  capability,
		notifier:    notifier,
	}
}

// twoLevelChain 两级审批链: TEAM_LEAD -> DEPARTMENT_HEAD
func twoLevelChain() model.ApprovalChain {
	return model.ApprovalChain{
		{LevelNumber: 1, RequiredRole: "TEAM_LEAD"},
		{LevelNumber: 2, RequiredRole: "DEPARTMENT_HEAD"},
	}
}
