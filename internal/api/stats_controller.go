package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/workspace-gin/internal/service"
	"github.com/mautops/workspace-gin/internal/utils"
)

// StatsController 统计控制器
type StatsController struct {
	statisticsService service.StatisticsService
}

// NewStatsController 创建统计控制器
func NewStatsController(statisticsService service.StatisticsService) *StatsController {
	return &StatsController{
		statisticsService: statisticsService,
	}
}

// Requests 审批请求统计
// @Summary      审批请求统计
// @Description  按状态和资源类别统计,workspace_id 缺省时统计全量
// @Tags         统计
// @Produce      json
// @Param        workspace_id query string false "工作区 ID"
// @Success      200  {object}  Response
// @Router       /stats/requests [get]
// @Security     BearerAuth
func (c *StatsController) Requests(ctx *gin.Context) {
	workspaceID := ctx.Query("workspace_id")
	if workspaceID != "" {
		if err := utils.ValidateResourceID(workspaceID); err != nil {
			Error(ctx, http.StatusBadRequest, "invalid workspace ID", err.Error())
			return
		}
	}

	stats, err := c.statisticsService.RequestStatistics(workspaceID)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, stats)
}
