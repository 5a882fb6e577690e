package service

import (
	"fmt"

	"github.com/mautops/workspace-gin/internal/model"
	"github.com/mautops/workspace-gin/internal/repository"
)

// QueryService 审批请求查询服务接口
// 只读查询与分页,不触碰状态机
type QueryService interface {
	ListRequests(filter *repository.RequestFilter) ([]*RequestSummary, int64, error)
}

// RequestSummary 请求列表项
// @Description 列表视图的精简投影,不含链快照
type RequestSummary struct {
	ID               string `json:"id"`
	WorkspaceID      string `json:"workspace_id"`
	ResourceCategory string `json:"resource_category"`
	SubjectRef       string `json:"subject_ref"`
	RequesterID      string `json:"requester_id"`
	Status           string `json:"status"`
	CurrentLevel     int    `json:"current_level"`
	ChainLength      int    `json:"chain_length"`
	RequestedAt      string `json:"requested_at"`
}

// queryService 查询服务实现
type queryService struct {
	requestRepo repository.RequestRepository
}

// NewQueryService 创建查询服务
func NewQueryService(requestRepo repository.RequestRepository) QueryService {
	return &queryService{requestRepo: requestRepo}
}

// ListRequests 分页查询审批请求
func (s *queryService) ListRequests(filter *repository.RequestFilter) ([]*RequestSummary, int64, error) {
	requests, total, err := s.requestRepo.FindByFilter(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query requests: %w", err)
	}

	summaries := make([]*RequestSummary, 0, len(requests))
	for _, r := range requests {
		chain, err := model.UnmarshalChain(r.Chain)
		if err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, &RequestSummary{
			ID:               r.ID,
			WorkspaceID:      r.WorkspaceID,
			ResourceCategory: r.ResourceCategory,
			SubjectRef:       r.SubjectRef,
			RequesterID:      r.RequesterID,
			Status:           r.Status,
			CurrentLevel:     r.CurrentLevel,
			ChainLength:      len(chain),
			RequestedAt:      r.RequestedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return summaries, total, nil
}
