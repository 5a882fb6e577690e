package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/mautops/workspace-gin/internal/model"
	"github.com/mautops/workspace-gin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustCreatePolicy 创建审批策略,失败时终止测试
func mustCreatePolicy(t *testing.T, f *approvalFixture, workspaceID string, chain model.ApprovalChain, allowSelf bool) *model.ApprovalPolicyModel {
	t.Helper()

	ctx := service.WithUserID(context.Background(), "admin-001")
	policy, err := f.policySvc.Create(ctx, &service.CreatePolicyRequest{
		WorkspaceID:       workspaceID,
		ResourceCategory:  model.ResourceCategoryTask,
		Chain:             chain,
		AllowSelfApproval: allowSelf,
	})
	require.NoError(t, err)
	return policy
}

// mustCreateRequest 创建审批请求,失败时终止测试
func mustCreateRequest(t *testing.T, f *approvalFixture, workspaceID string, requesterID string) *model.ApprovalRequestModel {
	t.Helper()

	request, err := f.approvalSvc.Create(context.Background(), &service.CreateRequestRequest{
		WorkspaceID:      workspaceID,
		ResourceCategory: model.ResourceCategoryTask,
		SubjectRef:       "task-001",
		RequesterID:      requesterID,
	})
	require.NoError(t, err)
	return request
}

// TestApprovalService_Create 测试创建审批请求并快照策略
func TestApprovalService_Create(t *testing.T) {
	f := newApprovalFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")
	mustCreatePolicy(t, f, "ws-root", twoLevelChain(), false)

	// 策略配置在 ROOT,TEAM 工作区通过祖先链继承
	request := mustCreateRequest(t, f, "ws-team", "user-001")
	assert.Equal(t, model.RequestStatusPending, request.Status)
	assert.Equal(t, 1, request.CurrentLevel)
	assert.Equal(t, "ws-team", request.WorkspaceID)
	assert.False(t, request.AllowSelfApproval)

	chain, err := model.UnmarshalChain(request.Chain)
	require.NoError(t, err)
	assert.Len(t, chain, 2)

	// 创建即落一条状态历史
	history, err := f.approvalSvc.History(request.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.RequestStatusPending, history[0].ToStatus)

	// 创建事件已发布
	assert.Contains(t, f.notifier.typesOf(), model.EventTypeRequestCreated)
}

// TestApprovalService_Create_NoPolicyConfigured 测试无策略时的自动通过语义
func TestApprovalService_Create_NoPolicyConfigured(t *testing.T) {
	f := newApprovalFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")

	// 整条祖先链上都没有策略: 返回 ErrPolicyNotConfigured,不产生请求记录
	_, err := f.approvalSvc.Create(context.Background(), &service.CreateRequestRequest{
		WorkspaceID:      "ws-team",
		ResourceCategory: model.ResourceCategoryTask,
		SubjectRef:       "task-001",
		RequesterID:      "user-001",
	})
	assert.ErrorIs(t, err, service.ErrPolicyNotConfigured)
	assert.Empty(t, f.notifier.events)
}

// TestApprovalService_Create_SnapshotIsolation 测试策略变更不影响在途请求
func TestApprovalService_Create_SnapshotIsolation(t *testing.T) {
	f := newApprovalFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")
	mustCreatePolicy(t, f, "ws-root", twoLevelChain(), false)

	request := mustCreateRequest(t, f, "ws-team", "user-001")

	// 请求创建后把策略改成一级链
	mustCreatePolicy(t, f, "ws-root", model.ApprovalChain{
		{LevelNumber: 1, RequiredRole: "ROOT_ADMIN"},
	}, false)

	// 在途请求仍按创建时快照的两级链走
	reloaded, err := f.approvalSvc.Get(request.ID)
	require.NoError(t, err)
	chain, err := model.UnmarshalChain(reloaded.Chain)
	require.NoError(t, err)
	assert.Len(t, chain, 2)
	assert.Equal(t, "TEAM_LEAD", chain[0].RequiredRole)
}

// TestApprovalService_SubmitDecision_ApproveThroughChain 测试逐级同意直到终态
func TestApprovalService_SubmitDecision_ApproveThroughChain(t *testing.T) {
	f := newApprovalFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")
	mustCreatePolicy(t, f, "ws-root", twoLevelChain(), false)
	request := mustCreateRequest(t, f, "ws-team", "user-001")

	// 第一级同意: 升级到第二级
	updated, err := f.approvalSvc.SubmitDecision(context.Background(), request.ID, &service.SubmitDecisionRequest{
		Level:        1,
		ApproverID:   "lead-001",
		ApproverRole: "TEAM_LEAD",
		Decision:     model.DecisionApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, updated.Status)
	assert.Equal(t, 2, updated.CurrentLevel)

	// 最后一级同意: 整体通过
	updated, err = f.approvalSvc.SubmitDecision(context.Background(), request.ID, &service.SubmitDecisionRequest{
		Level:        2,
		ApproverID:   "head-001",
		ApproverRole: "DEPARTMENT_HEAD",
		Decision:     model.DecisionApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)

	decisions, err := f.approvalSvc.Decisions(request.ID)
	require.NoError(t, err)
	assert.Len(t, decisions, 2)

	// 创建 + 两次决定 + 升级 + 终态
	types := f.notifier.typesOf()
	assert.Contains(t, types, model.EventTypeRequestEscalated)
	assert.Contains(t, types, model.EventTypeRequestResolved)
}

// TestApprovalService_SubmitDecision_RejectFreezesLevel 测试任一级拒绝即整体拒绝
func TestApprovalService_SubmitDecision_RejectFreezesLevel(t *testing.T) {
	f := newApprovalFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")
	mustCreatePolicy(t, f, "ws-root", twoLevelChain(), false)
	request := mustCreateRequest(t, f, "ws-team", "user-001")

	updated, err := f.approvalSvc.SubmitDecision(context.Background(), request.ID, &service.SubmitDecisionRequest{
		Level:        1,
		ApproverID:   "lead-001",
		ApproverRole: "TEAM_LEAD",
		Decision:     model.DecisionRejected,
		Notes:        "预算不足",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRejected, updated.Status)
	// 拒绝时级别冻结,不再推进
	assert.Equal(t, 1, updated.CurrentLevel)
	require.NotNil(t, updated.ResolvedAt)

	// 终态请求不再接受决定
	_, err = f.approvalSvc.SubmitDecision(context.Background(), request.ID, &service.SubmitDecisionRequest{
		Level:        1,
		ApproverID:   "head-001",
		ApproverRole: "TEAM_LEAD",
		Decision:     model.DecisionApproved,
	})
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

// TestApprovalService_SubmitDecision_OutOfOrderLevel 测试跨级提交被拒绝
func TestApprovalService_SubmitDecision_OutOfOrderLevel(t *testing.T) {
	f := newApprovalFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")
	mustCreatePolicy(t, f, "ws-root", twoLevelChain(), false)
	request := mustCreateRequest(t, f, "ws-team", "user-001")

	// 当前在第一级,直接提交第二级
	_, err := f.approvalSvc.SubmitDecision(context.Background(), request.ID, &service.SubmitDecisionRequest{
		Level:        2,
		ApproverID:   "head-001",
		ApproverRole: "DEPARTMENT_HEAD",
		Decision:     model.DecisionApproved,
	})
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

// TestApprovalService_SubmitDecision_SelfApproval 测试自审批限制
func TestApprovalService_SubmitDecision_SelfApproval(t *testing.T) {
	f := newApprovalFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")
	mustCreatePolicy(t, f, "ws-root", twoLevelChain(), false)
	request := mustCreateRequest(t, f, "ws-team", "user-001")

	// 请求人自己提交决定,策略不允许自审批
	_, err := f.approvalSvc.SubmitDecision(context.Background(), request.ID, &service.SubmitDecisionRequest{
		Level:        1,
		ApproverID:   "user-001",
		ApproverRole: "TEAM_LEAD",
		Decision:     model.DecisionApproved,
	})
	assert.ErrorIs(t, err, service.ErrNotEligible)

	// 策略允许自审批时放行
	mustCreatePolicy(t, f, "ws-dept", twoLevelChain(), true)
	selfRequest := mustCreateRequest(t, f, "ws-dept", "user-001")
	updated, err := f.approvalSvc.SubmitDecision(context.Background(), selfRequest.ID, &service.SubmitDecisionRequest{
		Level:        1,
		ApproverID:   "user-001",
		ApproverRole: "TEAM_LEAD",
		Decision:     model.DecisionApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentLevel)
}

// TestApprovalService_SubmitDecision_RoleMismatch 测试角色不满足级别要求
func TestApprovalService_SubmitDecision_RoleMismatch(t *testing.T) {
	f := newApprovalFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")
	mustCreatePolicy(t, f, "ws-root", twoLevelChain(), false)
	request := mustCreateRequest(t, f, "ws-team", "user-001")

	_, err := f.approvalSvc.SubmitDecision(context.Background(), request.ID, &service.SubmitDecisionRequest{
		Level:        1,
		ApproverID:   "member-001",
		ApproverRole: "MEMBER",
		Decision:     model.DecisionApproved,
	})
	assert.ErrorIs(t, err, service.ErrNotEligible)
}

// TestApprovalService_SubmitDecision_DuplicateLevel 测试同级重复决定被唯一索引拒绝
func TestApprovalService_SubmitDecision_DuplicateLevel(t *testing.T) {
	f := newApprovalFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")
	mustCreatePolicy(t, f, "ws-root", twoLevelChain(), false)
	request := mustCreateRequest(t, f, "ws-team", "user-001")

	// 模拟并发竞争: 另一条决定已经抢先落库,但请求状态还没推进
	existing := &model.ApprovalDecisionModel{
		ID:           "decision-racer",
		RequestID:    request.ID,
		Level:        1,
		ApproverID:   "lead-000",
		ApproverRole: "TEAM_LEAD",
		Decision:     model.DecisionApproved,
		DecidedAt:    time.Now(),
	}
	require.NoError(t, f.db.Create(existing).Error)

	_, err := f.approvalSvc.SubmitDecision(context.Background(), request.ID, &service.SubmitDecisionRequest{
		Level:        1,
		ApproverID:   "lead-001",
		ApproverRole: "TEAM_LEAD",
		Decision:     model.DecisionApproved,
	})
	assert.ErrorIs(t, err, service.ErrDuplicateDecision)

	// 事务回滚,请求仍停留在第一级
	reloaded, err := f.approvalSvc.Get(request.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.CurrentLevel)
	assert.Equal(t, model.RequestStatusPending, reloaded.Status)
}

// TestApprovalService_Cancel 测试取消授权规则
func TestApprovalService_Cancel(t *testing.T) {
	f := newApprovalFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")
	mustCreatePolicy(t, f, "ws-root", twoLevelChain(), false)

	// 请求人自己可以取消
	request := mustCreateRequest(t, f, "ws-team", "user-001")
	err := f.approvalSvc.Cancel(context.Background(), request.ID, &service.CancelRequest{
		ByUserID: "user-001",
		Reason:   "流程重新发起",
	})
	require.NoError(t, err)

	reloaded, err := f.approvalSvc.Get(request.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusCancelled, reloaded.Status)
	require.NotNil(t, reloaded.ResolvedAt)

	// 终态请求不能重复取消
	err = f.approvalSvc.Cancel(context.Background(), request.ID, &service.CancelRequest{ByUserID: "user-001"})
	assert.ErrorIs(t, err, service.ErrInvalidState)

	// 非请求人且无管理权限: 拒绝
	f.capability.admin = false
	second := mustCreateRequest(t, f, "ws-team", "user-001")
	err = f.approvalSvc.Cancel(context.Background(), second.ID, &service.CancelRequest{ByUserID: "user-002"})
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	// 工作区管理员可以取消他人请求
	f.capability.admin = true
	err = f.approvalSvc.Cancel(context.Background(), second.ID, &service.CancelRequest{ByUserID: "admin-001"})
	assert.NoError(t, err)
}

// TestApprovalService_Eligibility 测试资格评估投影
func TestApprovalService_Eligibility(t *testing.T) {
	f := newApprovalFixture(t)
	seedWorkspaceTree(t, f.hierarchy, "event-001")
	mustCreatePolicy(t, f, "ws-root", twoLevelChain(), false)
	request := mustCreateRequest(t, f, "ws-team", "user-001")

	// 角色匹配的第三方: 可审批
	result, err := f.approvalSvc.Eligibility(request.ID, "lead-001", "TEAM_LEAD")
	require.NoError(t, err)
	assert.True(t, result.CanApprove)
	assert.False(t, result.IsSelfApproval)

	// 请求人自己: 标记自审批且不可审批
	result, err = f.approvalSvc.Eligibility(request.ID, "user-001", "TEAM_LEAD")
	require.NoError(t, err)
	assert.False(t, result.CanApprove)
	assert.True(t, result.IsSelfApproval)

	// 角色不符: 不可审批但也不是自审批
	result, err = f.approvalSvc.Eligibility(request.ID, "member-001", "MEMBER")
	require.NoError(t, err)
	assert.False(t, result.CanApprove)
	assert.False(t, result.IsSelfApproval)
}

// TestApprovalService_Get_NotFound 测试请求不存在时的错误归一化
func TestApprovalService_Get_NotFound(t *testing.T) {
	f := newApprovalFixture(t)

	_, err := f.approvalSvc.Get("missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}
