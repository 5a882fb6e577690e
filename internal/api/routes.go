package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/workspace-gin/internal/auth"
	"github.com/mautops/workspace-gin/internal/config"
	"github.com/mautops/workspace-gin/internal/container"
	"github.com/mautops/workspace-gin/internal/websocket"
)

// SetupRoutes 配置路由
func SetupRoutes(c *container.Container, cfg *config.Config) *gin.Engine {
	if config.IsProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(ErrorHandlerMiddleware())
	router.Use(SecurityHeadersMiddleware())
	router.Use(CORSMiddleware(cfg.CORS.AllowedOrigins))
	router.Use(VersionMiddleware())
	if cfg.Tracing.Enabled {
		router.Use(TracingMiddleware())
	}
	if cfg.RateLimit.Enabled {
		router.Use(RateLimitMiddleware(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}

	// 健康检查
	healthController := NewHealthController(c.DB(), c.OpenFGAClient())
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// WebSocket 路由
	if c.Hub() != nil && c.KeycloakValidator() != nil {
		router.GET("/ws/requests/:id", websocket.Handler(c.Hub(), c.KeycloakValidator()))
	}

	// SSE 路由
	if c.KeycloakValidator() != nil {
		router.GET("/sse/requests/:id", SSEHandler(c.KeycloakValidator()))
	}

	// 控制器
	workspaceController := NewWorkspaceController(c.HierarchyService())
	policyController := NewPolicyController(c.PolicyService())
	requestController := NewRequestController(c.ApprovalService(), c.QueryService())
	delegationController := NewDelegationController(c.DelegationService())
	statsController := NewStatsController(c.StatisticsService())

	// API v1 路由组
	v1 := router.Group("/api/v1")
	if cfg.Keycloak.Issuer != "" {
		v1.Use(auth.KeycloakAuthMiddleware(c.KeycloakValidator()))
	}
	{
		// 工作区路由
		workspaces := v1.Group("/workspaces")
		{
			workspaces.POST("/sync", workspaceController.Sync)
			workspaces.GET("/:id", workspaceController.Get)
			workspaces.GET("/:id/ancestors", workspaceController.Ancestors)
			workspaces.GET("/:id/descendants", workspaceController.Descendants)
		}

		// 审批策略路由
		policies := v1.Group("/policies")
		{
			policies.POST("", policyController.Create)
			policies.GET("", policyController.ListByWorkspace)
			policies.GET("/resolve", policyController.Resolve)
			policies.GET("/:id", policyController.Get)
			policies.DELETE("/:id", policyController.Delete)
		}

		// 审批请求路由
		requests := v1.Group("/requests")
		{
			requests.POST("", requestController.Create)
			requests.GET("", requestController.List)
			requests.GET("/:id", requestController.Get)
			requests.POST("/:id/decisions", requestController.SubmitDecision)
			requests.GET("/:id/decisions", requestController.Decisions)
			requests.POST("/:id/cancel", requestController.Cancel)
			requests.GET("/:id/history", requestController.History)
			requests.GET("/:id/eligibility", requestController.Eligibility)
		}

		// 权限委托路由
		delegations := v1.Group("/delegations")
		{
			delegations.POST("", delegationController.Create)
			delegations.GET("", delegationController.List)
			delegations.GET("/targets", delegationController.EligibleTargets)
			delegations.PUT("/:id", delegationController.Update)
			delegations.DELETE("/:id", delegationController.Revoke)
		}

		// 统计路由
		stats := v1.Group("/stats")
		{
			stats.GET("/requests", statsController.Requests)
		}
	}

	// 未匹配路由统一返回 JSON 404
	router.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, ErrorResponse{
			Code:    404,
			Message: "route not found",
		})
	})

	return router
}
