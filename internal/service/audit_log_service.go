package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/workspace-gin/internal/model"
	"github.com/mautops/workspace-gin/internal/repository"
)

// AuditLogService 审计日志服务接口
type AuditLogService interface {
	RecordAction(ctx context.Context, userID string, action string, resourceType string, resourceID string, details string) error
	GetByResource(resourceType string, resourceID string) ([]*model.AuditLogModel, error)
}

// auditLogService 审计日志服务实现
type auditLogService struct {
	auditLogRepo repository.AuditLogRepository
}

// NewAuditLogService 创建审计日志服务
func NewAuditLogService(auditLogRepo repository.AuditLogRepository) AuditLogService {
	return &auditLogService{auditLogRepo: auditLogRepo}
}

// RecordAction 记录一次操作
func (s *auditLogService) RecordAction(ctx context.Context, userID string, action string, resourceType string, resourceID string, details string) error {
	log := &model.AuditLogModel{
		ID:           uuid.New().String(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		CreatedAt:    time.Now(),
	}
	if details != "" {
		log.Details = []byte(details)
	}
	// 请求 ID / IP / UA 由中间件写入 context,缺失时留空
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		log.RequestID = requestID
	}
	if ip, ok := ctx.Value(clientIPKey).(string); ok {
		log.IP = ip
	}
	if ua, ok := ctx.Value(userAgentKey).(string); ok {
		log.UserAgent = ua
	}

	if err := log.Validate(); err != nil {
		return fmt.Errorf("invalid audit log: %w", err)
	}
	return s.auditLogRepo.Save(log)
}

// GetByResource 查询某资源的审计日志
func (s *auditLogService) GetByResource(resourceType string, resourceID string) ([]*model.AuditLogModel, error) {
	return s.auditLogRepo.FindByResource(resourceType, resourceID)
}
