package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/workspace-gin/internal/model"
	"github.com/mautops/workspace-gin/internal/repository"
)

// PolicyService 审批策略服务接口
type PolicyService interface {
	Create(ctx context.Context, req *CreatePolicyRequest) (*model.ApprovalPolicyModel, error)
	Get(id string) (*model.ApprovalPolicyModel, error)
	ListByWorkspace(workspaceID string) ([]*model.ApprovalPolicyModel, error)
	Delete(ctx context.Context, id string) error
	// Resolve 沿祖先链解析生效策略,链上无任何策略时返回 ErrPolicyNotConfigured,
	// 调用方应把对应动作视为自动通过
	Resolve(workspaceID string, category string) (*model.ApprovalPolicyModel, error)
}

// CreatePolicyRequest 创建审批策略请求
// @Description 创建审批策略的请求参数
type CreatePolicyRequest struct {
	WorkspaceID       string              `json:"workspace_id" example:"ws-001" binding:"required"` // 工作区 ID
	ResourceCategory  string              `json:"resource_category" example:"task" binding:"required"` // 资源类别
	Chain             model.ApprovalChain `json:"chain" binding:"required"` // 有序审批链
	AllowSelfApproval bool                `json:"allow_self_approval"` // 是否允许自审批
}

// policyService 审批策略服务实现
type policyService struct {
	policyRepo  repository.PolicyRepository
	hierarchy   HierarchyService
	capability  CapabilityChecker
	auditLogSvc AuditLogService
}

// NewPolicyService 创建审批策略服务
func NewPolicyService(policyRepo repository.PolicyRepository, hierarchy HierarchyService, capability CapabilityChecker, auditLogSvc AuditLogService) PolicyService {
	return &policyService{
		policyRepo:  policyRepo,
		hierarchy:   hierarchy,
		capability:  capability,
		auditLogSvc: auditLogSvc,
	}
}

// Create 创建审批策略
// 拒绝空链、级别号重复或不连续的链;操作者须持有工作区管理权限
func (s *policyService) Create(ctx context.Context, req *CreatePolicyRequest) (*model.ApprovalPolicyModel, error) {
	if !model.IsValidResourceCategory(req.ResourceCategory) {
		return nil, fmt.Errorf("invalid resource category %q", req.ResourceCategory)
	}
	if err := req.Chain.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.hierarchy.Get(req.WorkspaceID); err != nil {
		return nil, err
	}

	userID := getUserIDFromContext(ctx)
	if s.capability != nil && userID != "" {
		isAdmin, err := s.capability.IsWorkspaceAdmin(userID, req.WorkspaceID)
		if err != nil {
			return nil, fmt.Errorf("failed to check capability: %w", err)
		}
		if !isAdmin {
			return nil, ErrUnauthorized
		}
	}

	chainData, err := req.Chain.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal approval chain: %w", err)
	}

	now := time.Now()
	policy := &model.ApprovalPolicyModel{
		ID:                uuid.New().String(),
		WorkspaceID:       req.WorkspaceID,
		ResourceCategory:  req.ResourceCategory,
		Chain:             chainData,
		AllowSelfApproval: req.AllowSelfApproval,
		CreatedAt:         now,
		UpdatedAt:         now,
		CreatedBy:         userID,
	}

	// 同一 (workspace, category) 已有策略时覆盖更新而不是新增
	if existing, err := s.policyRepo.FindByWorkspaceAndCategory(req.WorkspaceID, req.ResourceCategory); err == nil {
		policy.ID = existing.ID
		policy.CreatedAt = existing.CreatedAt
		policy.CreatedBy = existing.CreatedBy
	} else if !isRecordNotFound(err) {
		return nil, fmt.Errorf("failed to look up existing policy: %w", err)
	}

	if err := s.policyRepo.Save(policy); err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}

	if s.auditLogSvc != nil && userID != "" {
		details := fmt.Sprintf(`{"workspace_id":"%s","resource_category":"%s","levels":%d}`, req.WorkspaceID, req.ResourceCategory, len(req.Chain))
		_ = s.auditLogSvc.RecordAction(ctx, userID, "create", "policy", policy.ID, details)
	}

	return policy, nil
}

// Get 根据 ID 获取审批策略
func (s *policyService) Get(id string) (*model.ApprovalPolicyModel, error) {
	policy, err := s.policyRepo.FindByID(id)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, fmt.Errorf("policy %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	return policy, nil
}

// ListByWorkspace 列出工作区自身配置的策略(不含继承)
func (s *policyService) ListByWorkspace(workspaceID string) ([]*model.ApprovalPolicyModel, error) {
	return s.policyRepo.FindByWorkspace(workspaceID)
}

// Delete 删除审批策略
func (s *policyService) Delete(ctx context.Context, id string) error {
	policy, err := s.Get(id)
	if err != nil {
		return err
	}

	userID := getUserIDFromContext(ctx)
	if s.capability != nil && userID != "" {
		isAdmin, err := s.capability.IsWorkspaceAdmin(userID, policy.WorkspaceID)
		if err != nil {
			return fmt.Errorf("failed to check capability: %w", err)
		}
		if !isAdmin {
			return ErrUnauthorized
		}
	}

	if err := s.policyRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}

	if s.auditLogSvc != nil && userID != "" {
		details := fmt.Sprintf(`{"workspace_id":"%s","resource_category":"%s"}`, policy.WorkspaceID, policy.ResourceCategory)
		_ = s.auditLogSvc.RecordAction(ctx, userID, "delete", "policy", id, details)
	}

	return nil
}

// Resolve 解析工作区在某资源类别下的生效策略
// 本工作区没有显式策略时沿祖先链向上取最近的一条
func (s *policyService) Resolve(workspaceID string, category string) (*model.ApprovalPolicyModel, error) {
	if !model.IsValidResourceCategory(category) {
		return nil, fmt.Errorf("invalid resource category %q", category)
	}

	policy, err := s.policyRepo.FindByWorkspaceAndCategory(workspaceID, category)
	if err == nil {
		return policy, nil
	}
	if !isRecordNotFound(err) {
		return nil, fmt.Errorf("failed to look up policy: %w", err)
	}

	ancestors, err := s.hierarchy.AncestorsOf(workspaceID)
	if err != nil {
		return nil, err
	}
	for _, ancestor := range ancestors {
		policy, err := s.policyRepo.FindByWorkspaceAndCategory(ancestor.ID, category)
		if err == nil {
			return policy, nil
		}
		if !isRecordNotFound(err) {
			return nil, fmt.Errorf("failed to look up policy: %w", err)
		}
	}

	return nil, ErrPolicyNotConfigured
}
