package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mautops/workspace-gin/internal/model"
	"github.com/mautops/workspace-gin/internal/repository"
	"github.com/mautops/workspace-gin/internal/service"
	"github.com/mautops/workspace-gin/internal/utils"
)

// RequestController 审批请求控制器
type RequestController struct {
	approvalService service.ApprovalService
	queryService    service.QueryService
}

// NewRequestController 创建审批请求控制器
func NewRequestController(approvalService service.ApprovalService, queryService service.QueryService) *RequestController {
	return &RequestController{
		approvalService: approvalService,
		queryService:    queryService,
	}
}

// validateRequestID 验证请求 ID 并返回错误响应（如果无效）
func (c *RequestController) validateRequestID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateResourceID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request ID", err.Error())
		return false
	}
	return true
}

// Create 创建审批请求
// @Summary      创建审批请求
// @Description  解析生效策略并快照审批链;祖先链上无策略时返回自动通过标记,不产生请求记录
// @Tags         审批请求
// @Accept       json
// @Produce      json
// @Param        request body service.CreateRequestRequest true "请求信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /requests [post]
// @Security     BearerAuth
func (c *RequestController) Create(ctx *gin.Context) {
	var req service.CreateRequestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if !model.IsValidResourceCategory(req.ResourceCategory) {
		Error(ctx, http.StatusBadRequest, "invalid request", "invalid resource category")
		return
	}

	request, err := c.approvalService.Create(ctx.Request.Context(), &req)
	if err != nil {
		// 无策略配置: 动作自动通过,不产生审批请求
		if errors.Is(err, service.ErrPolicyNotConfigured) {
			Success(ctx, gin.H{
				"auto_approved": true,
				"request":       nil,
			})
			return
		}
		HandleServiceError(ctx, err)
		return
	}

	Created(ctx, gin.H{
		"auto_approved": false,
		"request":       request,
	})
}

// Get 获取审批请求
// @Summary      获取审批请求详情
// @Tags         审批请求
// @Produce      json
// @Param        id path string true "请求 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /requests/{id} [get]
// @Security     BearerAuth
func (c *RequestController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	request, err := c.approvalService.Get(id)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, request)
}

// List 查询审批请求列表
// @Summary      查询审批请求列表
// @Description  支持按工作区、状态、类别、请求人、业务引用和时间范围过滤,分页返回
// @Tags         审批请求
// @Produce      json
// @Param        workspace_id query string false "工作区 ID"
// @Param        status query string false "请求状态"
// @Param        resource_category query string false "资源类别"
// @Param        requester_id query string false "请求人 ID"
// @Param        subject_ref query string false "业务对象引用"
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200  {object}  PaginatedResponse
// @Router       /requests [get]
// @Security     BearerAuth
func (c *RequestController) List(ctx *gin.Context) {
	filter := &repository.RequestFilter{}

	if v := ctx.Query("workspace_id"); v != "" {
		filter.WorkspaceID = &v
	}
	if v := ctx.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := ctx.Query("resource_category"); v != "" {
		filter.ResourceCategory = &v
	}
	if v := ctx.Query("requester_id"); v != "" {
		filter.RequesterID = &v
	}
	if v := ctx.Query("subject_ref"); v != "" {
		filter.SubjectRef = &v
	}
	if v := ctx.Query("start_time"); v != "" {
		filter.StartTime = &v
	}
	if v := ctx.Query("end_time"); v != "" {
		filter.EndTime = &v
	}

	filter.Page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(ctx.DefaultQuery("page_size", "20"))

	summaries, total, err := c.queryService.ListRequests(filter)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Paginated(ctx, summaries, NewPagination(filter.Page, filter.PageSize, total))
}

// SubmitDecision 提交审批决定
// @Summary      提交审批决定
// @Description  审批人在请求的当前级别提交同意/拒绝;级别错位、资格不足或重复提交都会被拒绝
// @Tags         审批请求
// @Accept       json
// @Produce      json
// @Param        id path string true "请求 ID"
// @Param        request body service.SubmitDecisionRequest true "决定信息"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /requests/{id}/decisions [post]
// @Security     BearerAuth
func (c *RequestController) SubmitDecision(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	var req service.SubmitDecisionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	request, err := c.approvalService.SubmitDecision(ctx.Request.Context(), id, &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, request)
}

// Cancel 取消审批请求
// @Summary      取消审批请求
// @Description  请求人或工作区管理员可在任意待审批级别取消
// @Tags         审批请求
// @Accept       json
// @Produce      json
// @Param        id path string true "请求 ID"
// @Param        request body service.CancelRequest true "取消信息"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /requests/{id}/cancel [post]
// @Security     BearerAuth
func (c *RequestController) Cancel(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	var req service.CancelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if err := c.approvalService.Cancel(ctx.Request.Context(), id, &req); err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// Decisions 获取审批决定列表
// @Summary      获取请求的审批决定
// @Tags         审批请求
// @Produce      json
// @Param        id path string true "请求 ID"
// @Success      200  {object}  Response
// @Router       /requests/{id}/decisions [get]
// @Security     BearerAuth
func (c *RequestController) Decisions(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	decisions, err := c.approvalService.Decisions(id)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, decisions)
}

// History 获取请求状态历史
// @Summary      获取请求状态历史
// @Tags         审批请求
// @Produce      json
// @Param        id path string true "请求 ID"
// @Success      200  {object}  Response
// @Router       /requests/{id}/history [get]
// @Security     BearerAuth
func (c *RequestController) History(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	history, err := c.approvalService.History(id)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, history)
}

// Eligibility 评估审批资格
// @Summary      评估用户对请求的审批资格
// @Description  纯查询,区分 "不能自审批" 与 "还没轮到该级别"
// @Tags         审批请求
// @Produce      json
// @Param        id path string true "请求 ID"
// @Param        user_id query string true "用户 ID"
// @Param        role query string true "用户角色"
// @Success      200  {object}  Response
// @Router       /requests/{id}/eligibility [get]
// @Security     BearerAuth
func (c *RequestController) Eligibility(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	userID := ctx.Query("user_id")
	role := ctx.Query("role")
	if userID == "" || role == "" {
		Error(ctx, http.StatusBadRequest, "invalid request", "user_id and role are required")
		return
	}

	result, err := c.approvalService.Eligibility(id, userID, role)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, result)
}
