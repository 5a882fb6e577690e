package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/workspace-gin/internal/metrics"
	"github.com/mautops/workspace-gin/internal/model"
	"github.com/mautops/workspace-gin/internal/repository"
)

// DelegationService 证书权限委托服务接口
type DelegationService interface {
	Create(ctx context.Context, req *CreateDelegationRequest) (*model.DelegationGrantModel, error)
	Update(ctx context.Context, id string, req *UpdateDelegationRequest) (*model.DelegationGrantModel, error)
	Revoke(ctx context.Context, id string) error
	List(rootWorkspaceID string) ([]*model.DelegationGrantModel, error)
	EligibleTargets(rootWorkspaceID string, eventID string) ([]*DelegationTarget, error)
}

// DelegationPermissions 委托权限集
// @Description 四项独立布尔开关,至少一项为真
type DelegationPermissions struct {
	CanDesignTemplates bool `json:"can_design_templates"`
	CanDefineCriteria  bool `json:"can_define_criteria"`
	CanGenerate        bool `json:"can_generate"`
	CanDistribute      bool `json:"can_distribute"`
}

// Any 判断权限集是否非空
func (p DelegationPermissions) Any() bool {
	return p.CanDesignTemplates || p.CanDefineCriteria || p.CanGenerate || p.CanDistribute
}

// CreateDelegationRequest 创建委托的请求参数
// @Description 再次授权同一目标时按 (root, delegated) 原地更新,权限集整体替换
type CreateDelegationRequest struct {
	RootWorkspaceID      string                `json:"root_workspace_id" example:"ws-001" binding:"required"` // 授权方工作区
	DelegatedWorkspaceID string                `json:"delegated_workspace_id" example:"ws-010" binding:"required"` // 被授权工作区
	Permissions          DelegationPermissions `json:"permissions"` // 权限集
	Notes                string                `json:"notes" example:"委托市场部设计证书模板"` // 备注
	ActorID              string                `json:"actor_id" example:"user-001"` // 操作人,缺省取当前用户
}

// UpdateDelegationRequest 更新委托的请求参数
// @Description 授权对在创建后不可变,只更新权限集与备注
type UpdateDelegationRequest struct {
	Permissions DelegationPermissions `json:"permissions"` // 新权限集,整体替换
	Notes       string                `json:"notes"` // 备注
	ActorID     string                `json:"actor_id"` // 操作人,缺省取当前用户
}

// DelegationTarget 可选委托目标
// @Description 供选择界面展示: DEPARTMENT/COMMITTEE 层级且尚未持有本工作区授权的后代
type DelegationTarget struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level string `json:"level"` // DEPARTMENT 或 COMMITTEE
}

// delegationService 委托服务实现
type delegationService struct {
	delegationRepo repository.DelegationRepository
	hierarchy      HierarchyService
	capability     CapabilityChecker
	auditLogSvc    AuditLogService
	notifier       Notifier
}

// NewDelegationService 创建委托服务
func NewDelegationService(
	delegationRepo repository.DelegationRepository,
	hierarchy HierarchyService,
	capability CapabilityChecker,
	auditLogSvc AuditLogService,
	notifier Notifier,
) DelegationService {
	return &delegationService{
		delegationRepo: delegationRepo,
		hierarchy:      hierarchy,
		capability:     capability,
		auditLogSvc:    auditLogSvc,
		notifier:       notifier,
	}
}

// Create 创建或更新委托
// 目标必须是授权方的严格后代(自反不算),权限集非空,操作者持有授权方管理权限;
// 同一授权对重复创建走原地更新,不产生重复记录
func (s *delegationService) Create(ctx context.Context, req *CreateDelegationRequest) (*model.DelegationGrantModel, error) {
	actorID := req.ActorID
	if actorID == "" {
		actorID = getUserIDFromContext(ctx)
	}
	if actorID == "" {
		return nil, fmt.Errorf("actor ID is required")
	}

	if !req.Permissions.Any() {
		return nil, ErrEmptyPermissionSet
	}

	root, err := s.hierarchy.Get(req.RootWorkspaceID)
	if err != nil {
		return nil, err
	}
	target, err := s.hierarchy.Get(req.DelegatedWorkspaceID)
	if err != nil {
		return nil, err
	}
	// 委托校验用严格祖先语义: 目标等于授权方本身时无效
	ok, err := s.hierarchy.IsAncestor(req.RootWorkspaceID, req.DelegatedWorkspaceID, false)
	if err != nil {
		return nil, err
	}
	if !ok || root.EventID != target.EventID {
		return nil, ErrInvalidTarget
	}

	if err := s.checkAdmin(actorID, req.RootWorkspaceID); err != nil {
		return nil, err
	}

	now := time.Now()
	grant := &model.DelegationGrantModel{
		ID:                   uuid.New().String(),
		EventID:              root.EventID,
		RootWorkspaceID:      req.RootWorkspaceID,
		DelegatedWorkspaceID: req.DelegatedWorkspaceID,
		CanDesignTemplates:   req.Permissions.CanDesignTemplates,
		CanDefineCriteria:    req.Permissions.CanDefineCriteria,
		CanGenerate:          req.Permissions.CanGenerate,
		CanDistribute:        req.Permissions.CanDistribute,
		Notes:                req.Notes,
		DelegatedBy:          actorID,
		DelegatedAt:          now,
		UpdatedAt:            now,
	}
	if err := grant.Validate(); err != nil {
		return nil, err
	}

	saved, err := s.delegationRepo.Upsert(grant)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert delegation: %w", err)
	}

	metrics.RecordDelegationGranted()

	if s.auditLogSvc != nil {
		details := fmt.Sprintf(`{"root_workspace_id":"%s","delegated_workspace_id":"%s"}`, req.RootWorkspaceID, req.DelegatedWorkspaceID)
		_ = s.auditLogSvc.RecordAction(ctx, actorID, "delegate", "delegation", saved.ID, details)
	}
	s.publish(model.EventTypeDelegationCreated, saved)

	return saved, nil
}

// Update 更新委托的权限集与备注
// 授权对创建时已校验且不可变,这里不再做祖先检查
func (s *delegationService) Update(ctx context.Context, id string, req *UpdateDelegationRequest) (*model.DelegationGrantModel, error) {
	actorID := req.ActorID
	if actorID == "" {
		actorID = getUserIDFromContext(ctx)
	}
	if actorID == "" {
		return nil, fmt.Errorf("actor ID is required")
	}

	if !req.Permissions.Any() {
		return nil, ErrEmptyPermissionSet
	}

	grant, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := s.checkAdmin(actorID, grant.RootWorkspaceID); err != nil {
		return nil, err
	}

	grant.CanDesignTemplates = req.Permissions.CanDesignTemplates
	grant.CanDefineCriteria = req.Permissions.CanDefineCriteria
	grant.CanGenerate = req.Permissions.CanGenerate
	grant.CanDistribute = req.Permissions.CanDistribute
	grant.Notes = req.Notes
	grant.UpdatedAt = time.Now()

	if err := s.delegationRepo.Save(grant); err != nil {
		return nil, fmt.Errorf("failed to update delegation: %w", err)
	}

	if s.auditLogSvc != nil {
		details := fmt.Sprintf(`{"delegation_id":"%s"}`, id)
		_ = s.auditLogSvc.RecordAction(ctx, actorID, "update", "delegation", id, details)
	}
	s.publish(model.EventTypeDelegationUpdated, grant)

	return grant, nil
}

// Revoke 撤销委托(硬删除)
func (s *delegationService) Revoke(ctx context.Context, id string) error {
	actorID := getUserIDFromContext(ctx)
	if actorID == "" {
		return fmt.Errorf("actor ID is required")
	}

	grant, err := s.get(id)
	if err != nil {
		return err
	}
	if err := s.checkAdmin(actorID, grant.RootWorkspaceID); err != nil {
		return err
	}

	if err := s.delegationRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to revoke delegation: %w", err)
	}

	metrics.RecordDelegationRevoked()

	if s.auditLogSvc != nil {
		details := fmt.Sprintf(`{"root_workspace_id":"%s","delegated_workspace_id":"%s"}`, grant.RootWorkspaceID, grant.DelegatedWorkspaceID)
		_ = s.auditLogSvc.RecordAction(ctx, actorID, "revoke", "delegation", id, details)
	}
	s.publish(model.EventTypeDelegationRevoked, grant)

	return nil
}

// List 列出某工作区发出的委托,按授权时间倒序
func (s *delegationService) List(rootWorkspaceID string) ([]*model.DelegationGrantModel, error) {
	return s.delegationRepo.FindByRootWorkspace(rootWorkspaceID)
}

// EligibleTargets 枚举可选委托目标
// 只提供 DEPARTMENT/COMMITTEE 层级的后代,排除已持有授权的工作区;
// 这是选择界面的便利投影,真正的防重复由 Upsert 保证
func (s *delegationService) EligibleTargets(rootWorkspaceID string, eventID string) ([]*DelegationTarget, error) {
	descendants, err := s.hierarchy.DescendantsOf(rootWorkspaceID, 0)
	if err != nil {
		return nil, err
	}

	granted := make(map[string]bool)
	grants, err := s.delegationRepo.FindByRootWorkspace(rootWorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list existing delegations: %w", err)
	}
	for _, g := range grants {
		granted[g.DelegatedWorkspaceID] = true
	}

	var targets []*DelegationTarget
	for _, ws := range descendants {
		if eventID != "" && ws.EventID != eventID {
			continue
		}
		if ws.Type != model.WorkspaceTypeDepartment && ws.Type != model.WorkspaceTypeCommittee {
			continue
		}
		if granted[ws.ID] {
			continue
		}
		targets = append(targets, &DelegationTarget{
			ID:    ws.ID,
			Name:  ws.Name,
			Level: ws.Type,
		})
	}
	return targets, nil
}

// get 加载委托记录,不存在时归一化为 ErrNotFound
func (s *delegationService) get(id string) (*model.DelegationGrantModel, error) {
	grant, err := s.delegationRepo.FindByID(id)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, fmt.Errorf("delegation %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load delegation: %w", err)
	}
	return grant, nil
}

// checkAdmin 校验操作者在授权方工作区的管理权限
func (s *delegationService) checkAdmin(actorID string, workspaceID string) error {
	if s.capability == nil {
		return nil
	}
	isAdmin, err := s.capability.IsWorkspaceAdmin(actorID, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to check capability: %w", err)
	}
	if !isAdmin {
		return ErrUnauthorized
	}
	return nil
}

// publish 发布委托变更通知,尽力而为
func (s *delegationService) publish(eventType string, grant *model.DelegationGrantModel) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(&TransitionEvent{
		Type:         eventType,
		ResourceType: "delegation",
		ResourceID:   grant.ID,
		Payload: map[string]interface{}{
			"root_workspace_id":      grant.RootWorkspaceID,
			"delegated_workspace_id": grant.DelegatedWorkspaceID,
			"permissions": DelegationPermissions{
				CanDesignTemplates: grant.CanDesignTemplates,
				CanDefineCriteria:  grant.CanDefineCriteria,
				CanGenerate:        grant.CanGenerate,
				CanDistribute:      grant.CanDistribute,
			},
		},
	})
}
