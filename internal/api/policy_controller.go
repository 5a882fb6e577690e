package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/workspace-gin/internal/model"
	"github.com/mautops/workspace-gin/internal/service"
	"github.com/mautops/workspace-gin/internal/utils"
)

// PolicyController 审批策略控制器
type PolicyController struct {
	policyService service.PolicyService
}

// NewPolicyController 创建审批策略控制器
func NewPolicyController(policyService service.PolicyService) *PolicyController {
	return &PolicyController{
		policyService: policyService,
	}
}

// Create 创建或覆盖审批策略
// @Summary      配置审批策略
// @Description  同一 (工作区, 资源类别) 重复配置时整体覆盖原策略,不影响在途请求
// @Tags         审批策略
// @Accept       json
// @Produce      json
// @Param        request body service.CreatePolicyRequest true "策略信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /policies [post]
// @Security     BearerAuth
func (c *PolicyController) Create(ctx *gin.Context) {
	var req service.CreatePolicyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if !model.IsValidResourceCategory(req.ResourceCategory) {
		Error(ctx, http.StatusBadRequest, "invalid request", "invalid resource category")
		return
	}
	if err := req.Chain.Validate(); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid approval chain", err.Error())
		return
	}

	policy, err := c.policyService.Create(ctx.Request.Context(), &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Created(ctx, policy)
}

// Get 获取审批策略
// @Summary      获取审批策略详情
// @Tags         审批策略
// @Produce      json
// @Param        id path string true "策略 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /policies/{id} [get]
// @Security     BearerAuth
func (c *PolicyController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateResourceID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid policy ID", err.Error())
		return
	}

	policy, err := c.policyService.Get(id)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, policy)
}

// ListByWorkspace 获取工作区的全部策略
// @Summary      获取工作区直接配置的审批策略
// @Tags         审批策略
// @Produce      json
// @Param        workspace_id query string true "工作区 ID"
// @Success      200  {object}  Response
// @Router       /policies [get]
// @Security     BearerAuth
func (c *PolicyController) ListByWorkspace(ctx *gin.Context) {
	workspaceID := ctx.Query("workspace_id")
	if err := utils.ValidateResourceID(workspaceID); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid workspace ID", err.Error())
		return
	}

	policies, err := c.policyService.ListByWorkspace(workspaceID)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, policies)
}

// Delete 删除审批策略
// @Summary      删除审批策略
// @Description  删除后该工作区回退到最近祖先的策略,在途请求不受影响
// @Tags         审批策略
// @Produce      json
// @Param        id path string true "策略 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /policies/{id} [delete]
// @Security     BearerAuth
func (c *PolicyController) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateResourceID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid policy ID", err.Error())
		return
	}

	if err := c.policyService.Delete(ctx.Request.Context(), id); err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// Resolve 解析生效策略
// @Summary      解析工作区对某资源类别的生效策略
// @Description  沿祖先链向上查找最近的策略;整条链上都没有时返回未配置标记
// @Tags         审批策略
// @Produce      json
// @Param        workspace_id query string true "工作区 ID"
// @Param        resource_category query string true "资源类别"
// @Success      200  {object}  Response
// @Router       /policies/resolve [get]
// @Security     BearerAuth
func (c *PolicyController) Resolve(ctx *gin.Context) {
	workspaceID := ctx.Query("workspace_id")
	if err := utils.ValidateResourceID(workspaceID); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid workspace ID", err.Error())
		return
	}

	category := ctx.Query("resource_category")
	if !model.IsValidResourceCategory(category) {
		Error(ctx, http.StatusBadRequest, "invalid request", "invalid resource category")
		return
	}

	policy, err := c.policyService.Resolve(workspaceID, category)
	if err != nil {
		if errors.Is(err, service.ErrPolicyNotConfigured) {
			Success(ctx, gin.H{
				"configured": false,
				"policy":     nil,
			})
			return
		}
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, gin.H{
		"configured": true,
		"policy":     policy,
	})
}
