package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/workspace-gin/internal/metrics"
	"github.com/mautops/workspace-gin/internal/model"
	"github.com/mautops/workspace-gin/internal/repository"
	"gorm.io/gorm"
)

// ApprovalService 审批请求服务接口
// 单个请求的生命周期: 创建、逐级决定、升级、终态
type ApprovalService interface {
	Create(ctx context.Context, req *CreateRequestRequest) (*model.ApprovalRequestModel, error)
	Get(id string) (*model.ApprovalRequestModel, error)
	SubmitDecision(ctx context.Context, id string, req *SubmitDecisionRequest) (*model.ApprovalRequestModel, error)
	Cancel(ctx context.Context, id string, req *CancelRequest) error
	Decisions(id string) ([]*model.ApprovalDecisionModel, error)
	History(id string) ([]*model.StateHistoryModel, error)
	Eligibility(id string, userID string, userRole string) (*EligibilityResult, error)
}

// CreateRequestRequest 创建审批请求的请求参数
// @Description 生产方(任务/预算/资源/证书模块)在动作需要审批时调用
type CreateRequestRequest struct {
	WorkspaceID      string `json:"workspace_id" example:"ws-001" binding:"required"` // 工作区 ID
	ResourceCategory string `json:"resource_category" example:"task" binding:"required"` // 资源类别
	SubjectRef       string `json:"subject_ref" example:"task-001" binding:"required"` // 业务对象引用
	RequesterID      string `json:"requester_id" example:"user-001"` // 请求人,缺省取当前用户
}

// SubmitDecisionRequest 提交审批决定的请求参数
// @Description 审批人在请求的当前级别提交同意/拒绝
type SubmitDecisionRequest struct {
	Level        int    `json:"level" example:"1" binding:"required"` // 目标级别,必须等于请求当前级别
	ApproverID   string `json:"approver_id" example:"user-002"` // 审批人,缺省取当前用户
	ApproverRole string `json:"approver_role" example:"TEAM_LEAD" binding:"required"` // 审批人在工作区内的角色
	Decision     string `json:"decision" example:"approved" binding:"required"` // approved/rejected
	Notes        string `json:"notes" example:"同意"` // 审批意见
}

// CancelRequest 取消审批请求的请求参数
type CancelRequest struct {
	ByUserID string `json:"by_user_id" example:"user-001"` // 操作人,缺省取当前用户
	Reason   string `json:"reason" example:"流程重新发起"` // 取消原因
}

// EligibilityResult 资格评估结果
// @Description 供 UI 区分 "不能自审批" 与 "还没轮到你"
type EligibilityResult struct {
	CanApprove     bool `json:"can_approve"`
	IsSelfApproval bool `json:"is_self_approval"`
}

// approvalService 审批请求服务实现
type approvalService struct {
	db           *gorm.DB
	requestRepo  repository.RequestRepository
	decisionRepo repository.DecisionRepository
	historyRepo  repository.StateHistoryRepository
	policySvc    PolicyService
	evaluator    *EligibilityEvaluator
	capability   CapabilityChecker
	auditLogSvc  AuditLogService
	notifier     Notifier
}

// NewApprovalService 创建审批请求服务
func NewApprovalService(
	db *gorm.DB,
	requestRepo repository.RequestRepository,
	decisionRepo repository.DecisionRepository,
	historyRepo repository.StateHistoryRepository,
	policySvc PolicyService,
	evaluator *EligibilityEvaluator,
	capability CapabilityChecker,
	auditLogSvc AuditLogService,
	notifier Notifier,
) ApprovalService {
	if evaluator == nil {
		evaluator = NewEligibilityEvaluator(nil)
	}
	return &approvalService{
		db:           db,
		requestRepo:  requestRepo,
		decisionRepo: decisionRepo,
		historyRepo:  historyRepo,
		policySvc:    policySvc,
		evaluator:    evaluator,
		capability:   capability,
		auditLogSvc:  auditLogSvc,
		notifier:     notifier,
	}
}

// Create 创建审批请求
// 解析生效策略并按值快照进请求;祖先链上无策略时返回 ErrPolicyNotConfigured,
// 生产方应将动作视为自动通过,不产生请求记录
func (s *approvalService) Create(ctx context.Context, req *CreateRequestRequest) (*model.ApprovalRequestModel, error) {
	requesterID := req.RequesterID
	if requesterID == "" {
		requesterID = getUserIDFromContext(ctx)
	}
	if requesterID == "" {
		return nil, fmt.Errorf("requester ID is required")
	}

	policy, err := s.policySvc.Resolve(req.WorkspaceID, req.ResourceCategory)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	request := &model.ApprovalRequestModel{
		ID:                uuid.New().String(),
		WorkspaceID:       req.WorkspaceID,
		ResourceCategory:  req.ResourceCategory,
		SubjectRef:        req.SubjectRef,
		RequesterID:       requesterID,
		Status:            model.RequestStatusPending,
		CurrentLevel:      1,
		Chain:             policy.Chain,
		AllowSelfApproval: policy.AllowSelfApproval,
		RequestedAt:       now,
		UpdatedAt:         now,
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(request).Error; err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		history := &model.StateHistoryModel{
			ID:        uuid.New().String(),
			RequestID: request.ID,
			ToStatus:  model.RequestStatusPending,
			Level:     1,
			Reason:    "request created",
			Operator:  requesterID,
			CreatedAt: now,
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to record state history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordRequestCreated(req.ResourceCategory)

	if s.auditLogSvc != nil {
		details := fmt.Sprintf(`{"workspace_id":"%s","resource_category":"%s","subject_ref":"%s"}`, req.WorkspaceID, req.ResourceCategory, req.SubjectRef)
		_ = s.auditLogSvc.RecordAction(ctx, requesterID, "create", "request", request.ID, details)
	}
	s.publish(model.EventTypeRequestCreated, request, nil)

	return request, nil
}

// Get 获取审批请求
func (s *approvalService) Get(id string) (*model.ApprovalRequestModel, error) {
	request, err := s.requestRepo.FindByID(id)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, fmt.Errorf("request %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	return request, nil
}

// SubmitDecision 在当前级别提交审批决定
// 决定插入和级别推进在同一事务内完成;(request_id, level) 唯一索引保证
// 同级并发双提交只会有一条落库,第二条以 ErrDuplicateDecision 失败
func (s *approvalService) SubmitDecision(ctx context.Context, id string, req *SubmitDecisionRequest) (*model.ApprovalRequestModel, error) {
	approverID := req.ApproverID
	if approverID == "" {
		approverID = getUserIDFromContext(ctx)
	}
	if approverID == "" {
		return nil, fmt.Errorf("approver ID is required")
	}
	if req.Decision != model.DecisionApproved && req.Decision != model.DecisionRejected {
		return nil, fmt.Errorf("decision must be %q or %q", model.DecisionApproved, model.DecisionRejected)
	}

	var request *model.ApprovalRequestModel
	var eventType string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var current model.ApprovalRequestModel
		if err := tx.Where("id = ?", id).First(&current).Error; err != nil {
			if isRecordNotFound(err) {
				return fmt.Errorf("request %q: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to load request: %w", err)
		}

		if current.Status != model.RequestStatusPending {
			return ErrInvalidState
		}
		// 决定严格按级别顺序提交,跨级提交直接拒绝而不是悄悄重排
		if req.Level != current.CurrentLevel {
			return ErrInvalidState
		}

		chain, err := model.UnmarshalChain(current.Chain)
		if err != nil {
			return err
		}
		if !s.evaluator.CanApprove(&current, chain, approverID, req.ApproverRole) {
			return ErrNotEligible
		}

		now := time.Now()
		decision := &model.ApprovalDecisionModel{
			ID:           uuid.New().String(),
			RequestID:    current.ID,
			Level:        current.CurrentLevel,
			ApproverID:   approverID,
			ApproverRole: req.ApproverRole,
			Decision:     req.Decision,
			Notes:        req.Notes,
			DecidedAt:    now,
		}
		if err := tx.Create(decision).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateDecision
			}
			return fmt.Errorf("failed to record decision: %w", err)
		}

		fromStatus := current.Status
		history := &model.StateHistoryModel{
			ID:         uuid.New().String(),
			RequestID:  current.ID,
			FromStatus: fromStatus,
			Level:      current.CurrentLevel,
			Operator:   approverID,
			CreatedAt:  now,
		}

		if req.Decision == model.DecisionRejected {
			// 任何一级拒绝即整体拒绝,级别冻结
			current.Status = model.RequestStatusRejected
			current.ResolvedAt = &now
			history.ToStatus = model.RequestStatusRejected
			history.Reason = fmt.Sprintf("rejected at level %d", decision.Level)
			eventType = model.EventTypeRequestResolved
		} else if current.CurrentLevel == len(chain) {
			current.Status = model.RequestStatusApproved
			current.ResolvedAt = &now
			history.ToStatus = model.RequestStatusApproved
			history.Reason = fmt.Sprintf("approved at final level %d", decision.Level)
			eventType = model.EventTypeRequestResolved
		} else {
			current.CurrentLevel++
			history.ToStatus = model.RequestStatusPending
			history.Reason = fmt.Sprintf("escalated to level %d", current.CurrentLevel)
			eventType = model.EventTypeRequestEscalated
		}
		current.UpdatedAt = now

		if err := tx.Save(&current).Error; err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to record state history: %w", err)
		}

		request = &current
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDecision(req.Decision)
	if request.IsTerminal() {
		metrics.RecordRequestResolved(request.Status)
	}

	if s.auditLogSvc != nil {
		details := fmt.Sprintf(`{"request_id":"%s","level":%d,"decision":"%s"}`, id, req.Level, req.Decision)
		_ = s.auditLogSvc.RecordAction(ctx, approverID, "decide", "request", id, details)
	}
	s.publish(model.EventTypeDecisionRecorded, request, map[string]interface{}{
		"level":    req.Level,
		"decision": req.Decision,
	})
	s.publish(eventType, request, nil)

	return request, nil
}

// Cancel 取消审批请求
// 任意 pending 级别均可取消;仅限原请求人或持有工作区管理权限的用户
func (s *approvalService) Cancel(ctx context.Context, id string, req *CancelRequest) error {
	byUserID := req.ByUserID
	if byUserID == "" {
		byUserID = getUserIDFromContext(ctx)
	}
	if byUserID == "" {
		return fmt.Errorf("cancelling user ID is required")
	}

	var request *model.ApprovalRequestModel

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var current model.ApprovalRequestModel
		if err := tx.Where("id = ?", id).First(&current).Error; err != nil {
			if isRecordNotFound(err) {
				return fmt.Errorf("request %q: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to load request: %w", err)
		}

		if current.Status != model.RequestStatusPending {
			return ErrInvalidState
		}

		if byUserID != current.RequesterID {
			if s.capability == nil {
				return ErrUnauthorized
			}
			isAdmin, err := s.capability.IsWorkspaceAdmin(byUserID, current.WorkspaceID)
			if err != nil {
				return fmt.Errorf("failed to check capability: %w", err)
			}
			if !isAdmin {
				return ErrUnauthorized
			}
		}

		now := time.Now()
		fromStatus := current.Status
		current.Status = model.RequestStatusCancelled
		current.ResolvedAt = &now
		current.UpdatedAt = now
		if err := tx.Save(&current).Error; err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}

		history := &model.StateHistoryModel{
			ID:         uuid.New().String(),
			RequestID:  current.ID,
			FromStatus: fromStatus,
			ToStatus:   model.RequestStatusCancelled,
			Level:      current.CurrentLevel,
			Reason:     req.Reason,
			Operator:   byUserID,
			CreatedAt:  now,
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to record state history: %w", err)
		}

		request = &current
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordRequestResolved(model.RequestStatusCancelled)

	if s.auditLogSvc != nil {
		details := fmt.Sprintf(`{"request_id":"%s","reason":"%s"}`, id, req.Reason)
		_ = s.auditLogSvc.RecordAction(ctx, byUserID, "cancel", "request", id, details)
	}
	s.publish(model.EventTypeRequestResolved, request, map[string]interface{}{"reason": req.Reason})

	return nil
}

// Decisions 获取请求的决定列表
func (s *approvalService) Decisions(id string) ([]*model.ApprovalDecisionModel, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	return s.decisionRepo.FindByRequestID(id)
}

// History 获取请求的状态历史
func (s *approvalService) History(id string) ([]*model.StateHistoryModel, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	return s.historyRepo.FindByRequestID(id)
}

// Eligibility 评估某用户在请求当前级别的审批资格
func (s *approvalService) Eligibility(id string, userID string, userRole string) (*EligibilityResult, error) {
	request, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	chain, err := model.UnmarshalChain(request.Chain)
	if err != nil {
		return nil, err
	}
	return &EligibilityResult{
		CanApprove:     s.evaluator.CanApprove(request, chain, userID, userRole),
		IsSelfApproval: s.evaluator.IsSelfApproval(request, userID),
	}, nil
}

// publish 发布状态转换通知,尽力而为
func (s *approvalService) publish(eventType string, request *model.ApprovalRequestModel, extra map[string]interface{}) {
	if s.notifier == nil || eventType == "" {
		return
	}
	payload := map[string]interface{}{
		"request_id":        request.ID,
		"workspace_id":      request.WorkspaceID,
		"resource_category": request.ResourceCategory,
		"subject_ref":       request.SubjectRef,
		"status":            request.Status,
		"current_level":     request.CurrentLevel,
	}
	for k, v := range extra {
		payload[k] = v
	}
	s.notifier.Publish(&TransitionEvent{
		Type:         eventType,
		ResourceType: "request",
		ResourceID:   request.ID,
		Payload:      payload,
	})
}
