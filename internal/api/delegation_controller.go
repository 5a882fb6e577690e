package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/workspace-gin/internal/service"
	"github.com/mautops/workspace-gin/internal/utils"
)

// DelegationController 委托控制器
type DelegationController struct {
	delegationService service.DelegationService
}

// NewDelegationController 创建委托控制器
func NewDelegationController(delegationService service.DelegationService) *DelegationController {
	return &DelegationController{
		delegationService: delegationService,
	}
}

// Create 创建委托
// @Summary      创建权限委托
// @Description  目标必须是授权方的严格后代且属于同一活动;同一授权对重复创建走原地更新
// @Tags         权限委托
// @Accept       json
// @Produce      json
// @Param        request body service.CreateDelegationRequest true "委托信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /delegations [post]
// @Security     BearerAuth
func (c *DelegationController) Create(ctx *gin.Context) {
	var req service.CreateDelegationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	grant, err := c.delegationService.Create(ctx.Request.Context(), &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Created(ctx, grant)
}

// Update 更新委托
// @Summary      更新权限委托
// @Description  授权对不可变,权限集整体替换
// @Tags         权限委托
// @Accept       json
// @Produce      json
// @Param        id path string true "委托 ID"
// @Param        request body service.UpdateDelegationRequest true "更新信息"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /delegations/{id} [put]
// @Security     BearerAuth
func (c *DelegationController) Update(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateResourceID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid delegation ID", err.Error())
		return
	}

	var req service.UpdateDelegationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	grant, err := c.delegationService.Update(ctx.Request.Context(), id, &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, grant)
}

// Revoke 撤销委托
// @Summary      撤销权限委托
// @Description  硬删除委托记录,被授权工作区立即失去全部被委托权限
// @Tags         权限委托
// @Produce      json
// @Param        id path string true "委托 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /delegations/{id} [delete]
// @Security     BearerAuth
func (c *DelegationController) Revoke(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateResourceID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid delegation ID", err.Error())
		return
	}

	if err := c.delegationService.Revoke(ctx.Request.Context(), id); err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// List 查询工作区发出的委托
// @Summary      查询工作区发出的委托列表
// @Tags         权限委托
// @Produce      json
// @Param        root_workspace_id query string true "授权方工作区 ID"
// @Success      200  {object}  Response
// @Router       /delegations [get]
// @Security     BearerAuth
func (c *DelegationController) List(ctx *gin.Context) {
	rootWorkspaceID := ctx.Query("root_workspace_id")
	if err := utils.ValidateResourceID(rootWorkspaceID); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid workspace ID", err.Error())
		return
	}

	grants, err := c.delegationService.List(rootWorkspaceID)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, grants)
}

// EligibleTargets 查询可选委托目标
// @Summary      查询可选的委托目标工作区
// @Description  返回 DEPARTMENT/COMMITTEE 层级且尚未持有本工作区授权的后代
// @Tags         权限委托
// @Produce      json
// @Param        root_workspace_id query string true "授权方工作区 ID"
// @Param        event_id query string false "活动 ID 过滤"
// @Success      200  {object}  Response
// @Router       /delegations/targets [get]
// @Security     BearerAuth
func (c *DelegationController) EligibleTargets(ctx *gin.Context) {
	rootWorkspaceID := ctx.Query("root_workspace_id")
	if err := utils.ValidateResourceID(rootWorkspaceID); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid workspace ID", err.Error())
		return
	}

	targets, err := c.delegationService.EligibleTargets(rootWorkspaceID, ctx.Query("event_id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, targets)
}
