package repository

import (
	"github.com/mautops/workspace-gin/internal/model"
	"gorm.io/gorm"
)

// DecisionRepository 审批决定仓储接口
type DecisionRepository interface {
	Create(decision *model.ApprovalDecisionModel) error
	FindByRequestID(requestID string) ([]*model.ApprovalDecisionModel, error)
	FindByApprover(approverID string) ([]*model.ApprovalDecisionModel, error)
	ExistsForLevel(requestID string, level int) (bool, error)
}

// decisionRepository 审批决定仓储实现
type decisionRepository struct {
	db *gorm.DB
}

// NewDecisionRepository 创建审批决定仓储
func NewDecisionRepository(db *gorm.DB) DecisionRepository {
	return &decisionRepository{db: db}
}

// Create 插入审批决定
// 使用 Create 而非 Save: (request_id, level) 的唯一索引必须在并发双提交时
// 让第二次插入失败,而不是覆盖已有记录
func (r *decisionRepository) Create(decision *model.ApprovalDecisionModel) error {
	return r.db.Create(decision).Error
}

// FindByRequestID 查找请求的全部决定,按级别升序
func (r *decisionRepository) FindByRequestID(requestID string) ([]*model.ApprovalDecisionModel, error) {
	var decisions []*model.ApprovalDecisionModel
	err := r.db.Where("request_id = ?", requestID).Order("level ASC").Find(&decisions).Error
	return decisions, err
}

// FindByApprover 查找某审批人的全部决定
func (r *decisionRepository) FindByApprover(approverID string) ([]*model.ApprovalDecisionModel, error) {
	var decisions []*model.ApprovalDecisionModel
	err := r.db.Where("approver_id = ?", approverID).Order("decided_at DESC").Find(&decisions).Error
	return decisions, err
}

// ExistsForLevel 判断某级别是否已有决定
func (r *decisionRepository) ExistsForLevel(requestID string, level int) (bool, error) {
	var count int64
	err := r.db.Model(&model.ApprovalDecisionModel{}).
		Where("request_id = ? AND level = ?", requestID, level).
		Count(&count).Error
	return count > 0, err
}
