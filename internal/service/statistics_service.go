package service

import (
	"fmt"

	"github.com/mautops/workspace-gin/internal/model"
	"gorm.io/gorm"
)

// StatisticsService 审批统计服务接口
// 管理后台的仪表盘数据源
type StatisticsService interface {
	RequestStatistics(workspaceID string) (*RequestStatistics, error)
}

// RequestStatistics 审批请求统计
// @Description 按状态与资源类别的计数
type RequestStatistics struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByCategory map[string]int64 `json:"by_category"`
}

// statisticsService 统计服务实现
type statisticsService struct {
	db *gorm.DB
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// RequestStatistics 统计审批请求,workspaceID 为空时统计全量
func (s *statisticsService) RequestStatistics(workspaceID string) (*RequestStatistics, error) {
	stats := &RequestStatistics{
		ByStatus:   make(map[string]int64),
		ByCategory: make(map[string]int64),
	}

	base := s.db.Model(&model.ApprovalRequestModel{})
	if workspaceID != "" {
		base = base.Where("workspace_id = ?", workspaceID)
	}

	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var byStatus []bucket
	if err := base.Session(&gorm.Session{}).
		Select("status AS key, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to group by status: %w", err)
	}
	for _, b := range byStatus {
		stats.ByStatus[b.Key] = b.Count
	}

	var byCategory []bucket
	if err := base.Session(&gorm.Session{}).
		Select("resource_category AS key, COUNT(*) AS count").
		Group("resource_category").
		Scan(&byCategory).Error; err != nil {
		return nil, fmt.Errorf("failed to group by category: %w", err)
	}
	for _, b := range byCategory {
		stats.ByCategory[b.Key] = b.Count
	}

	return stats, nil
}
