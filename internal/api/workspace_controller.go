package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mautops/workspace-gin/internal/model"
	"github.com/mautops/workspace-gin/internal/service"
	"github.com/mautops/workspace-gin/internal/utils"
)

// WorkspaceController 工作区控制器
// 工作区树的结构由外部目录服务维护,这里只提供同步入口和只读的层级查询
type WorkspaceController struct {
	hierarchyService service.HierarchyService
}

// NewWorkspaceController 创建工作区控制器
func NewWorkspaceController(hierarchyService service.HierarchyService) *WorkspaceController {
	return &WorkspaceController{
		hierarchyService: hierarchyService,
	}
}

// SyncWorkspaceRequest 同步工作区的请求参数
type SyncWorkspaceRequest struct {
	ID       string  `json:"id" binding:"required"`
	EventID  string  `json:"event_id" binding:"required"`
	Name     string  `json:"name" binding:"required"`
	Type     string  `json:"type" binding:"required"` // ROOT/DEPARTMENT/COMMITTEE/TEAM
	ParentID *string `json:"parent_id"`
}

// Sync 同步工作区节点
// @Summary      同步工作区节点
// @Description  从工作区目录服务同步单个节点,已存在时原地更新
// @Tags         工作区
// @Accept       json
// @Produce      json
// @Param        request body SyncWorkspaceRequest true "工作区信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Router       /workspaces/sync [post]
// @Security     BearerAuth
func (c *WorkspaceController) Sync(ctx *gin.Context) {
	var req SyncWorkspaceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if err := utils.ValidateResourceID(req.ID); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid workspace ID", err.Error())
		return
	}
	if err := utils.ValidateWorkspaceName(req.Name); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid workspace name", err.Error())
		return
	}

	workspace := &model.WorkspaceModel{
		ID:       req.ID,
		EventID:  req.EventID,
		Name:     req.Name,
		Type:     req.Type,
		ParentID: req.ParentID,
	}

	if err := c.hierarchyService.Sync(workspace); err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, workspace)
}

// Get 获取工作区
// @Summary      获取工作区详情
// @Tags         工作区
// @Produce      json
// @Param        id path string true "工作区 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /workspaces/{id} [get]
// @Security     BearerAuth
func (c *WorkspaceController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateResourceID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid workspace ID", err.Error())
		return
	}

	workspace, err := c.hierarchyService.Get(id)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, workspace)
}

// Ancestors 获取祖先链
// @Summary      获取工作区的祖先链
// @Description  从直接父节点到 ROOT 的有序列表
// @Tags         工作区
// @Produce      json
// @Param        id path string true "工作区 ID"
// @Success      200  {object}  Response
// @Router       /workspaces/{id}/ancestors [get]
// @Security     BearerAuth
func (c *WorkspaceController) Ancestors(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateResourceID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid workspace ID", err.Error())
		return
	}

	ancestors, err := c.hierarchyService.AncestorsOf(id)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, ancestors)
}

// Descendants 获取后代
// @Summary      获取工作区的后代
// @Description  levels 限制向下遍历的层数,0 或缺省表示不限
// @Tags         工作区
// @Produce      json
// @Param        id path string true "工作区 ID"
// @Param        levels query int false "向下层数"
// @Success      200  {object}  Response
// @Router       /workspaces/{id}/descendants [get]
// @Security     BearerAuth
func (c *WorkspaceController) Descendants(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateResourceID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid workspace ID", err.Error())
		return
	}

	levels, _ := strconv.Atoi(ctx.DefaultQuery("levels", "0"))

	descendants, err := c.hierarchyService.DescendantsOf(id, levels)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, descendants)
}
