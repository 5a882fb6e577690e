package container

import (
	"fmt"
	"time"

	"github.com/mautops/workspace-gin/internal/auth"
	"github.com/mautops/workspace-gin/internal/config"
	"github.com/mautops/workspace-gin/internal/database"
	"github.com/mautops/workspace-gin/internal/metrics"
	"github.com/mautops/workspace-gin/internal/notify"
	"github.com/mautops/workspace-gin/internal/repository"
	"github.com/mautops/workspace-gin/internal/service"
	"github.com/mautops/workspace-gin/internal/websocket"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、服务、客户端等
type Container struct {
	db                *gorm.DB
	hub               *websocket.Hub
	dispatcher        *notify.Dispatcher
	fgaClient         *auth.OpenFGAClient
	cachedFGA         *auth.CachedOpenFGAClient
	keycloakValidator *auth.KeycloakTokenValidator
	metricsCollector  *metrics.Collector

	hierarchySvc  service.HierarchyService
	policySvc     service.PolicyService
	approvalSvc   service.ApprovalService
	delegationSvc service.DelegationService
	querySvc      service.QueryService
	statisticsSvc service.StatisticsService
	auditLogSvc   service.AuditLogService
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. 初始化数据库（带重试机制）
	// 默认重试 3 次，初始间隔 1 秒，指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. 初始化 OpenFGA 客户端（带重试机制）
	fgaClient, err := auth.NewOpenFGAClientWithRetry(cfg.OpenFGA.APIURL, cfg.OpenFGA.StoreID, cfg.OpenFGA.ModelID, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenFGA client: %w", err)
	}
	cachedFGA := auth.NewCachedOpenFGAClient(fgaClient, auth.NewPermissionCache(5*time.Minute))

	// 3. 初始化 Keycloak Token 验证器
	keycloakValidator := auth.NewKeycloakTokenValidator(cfg.Keycloak.Issuer)

	// 4. 初始化 WebSocket Hub 和事件分发器
	hub := websocket.NewHub()
	go hub.Run()
	dispatcher := notify.NewDispatcher(db, hub, cfg.Notify.Webhooks, cfg.Notify.Workers)

	return newContainerWithDeps(db, hub, dispatcher, fgaClient, cachedFGA, keycloakValidator), nil
}

// newContainerWithDeps 装配仓储与服务
func newContainerWithDeps(
	db *gorm.DB,
	hub *websocket.Hub,
	dispatcher *notify.Dispatcher,
	fgaClient *auth.OpenFGAClient,
	cachedFGA *auth.CachedOpenFGAClient,
	keycloakValidator *auth.KeycloakTokenValidator,
) *Container {
	workspaceRepo := repository.NewWorkspaceRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	decisionRepo := repository.NewDecisionRepository(db)
	delegationRepo := repository.NewDelegationRepository(db)
	historyRepo := repository.NewStateHistoryRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)

	auditLogSvc := service.NewAuditLogService(auditLogRepo)
	hierarchySvc := service.NewHierarchyService(workspaceRepo)
	evaluator := service.NewEligibilityEvaluator(nil)

	policySvc := service.NewPolicyService(policyRepo, hierarchySvc, cachedFGA, auditLogSvc)
	approvalSvc := service.NewApprovalService(
		db,
		requestRepo,
		decisionRepo,
		historyRepo,
		policySvc,
		evaluator,
		cachedFGA,
		auditLogSvc,
		dispatcher,
	)
	delegationSvc := service.NewDelegationService(delegationRepo, hierarchySvc, cachedFGA, auditLogSvc, dispatcher)
	querySvc := service.NewQueryService(requestRepo)
	statisticsSvc := service.NewStatisticsService(db)

	collector := metrics.NewCollector(db, 30*time.Second)
	collector.Start()

	return &Container{
		db:                db,
		hub:               hub,
		dispatcher:        dispatcher,
		fgaClient:         fgaClient,
		cachedFGA:         cachedFGA,
		keycloakValidator: keycloakValidator,
		metricsCollector:  collector,
		hierarchySvc:      hierarchySvc,
		policySvc:         policySvc,
		approvalSvc:       approvalSvc,
		delegationSvc:     delegationSvc,
		querySvc:          querySvc,
		statisticsSvc:     statisticsSvc,
		auditLogSvc:       auditLogSvc,
	}
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Dispatcher 获取事件分发器
func (c *Container) Dispatcher() *notify.Dispatcher {
	return c.dispatcher
}

// OpenFGAClient 获取 OpenFGA 客户端
func (c *Container) OpenFGAClient() *auth.OpenFGAClient {
	return c.fgaClient
}

// CachedFGAClient 获取带缓存的 OpenFGA 客户端
func (c *Container) CachedFGAClient() *auth.CachedOpenFGAClient {
	return c.cachedFGA
}

// KeycloakValidator 获取 Keycloak Token 验证器
func (c *Container) KeycloakValidator() *auth.KeycloakTokenValidator {
	return c.keycloakValidator
}

// HierarchyService 获取工作区层级服务
func (c *Container) HierarchyService() service.HierarchyService {
	return c.hierarchySvc
}

// PolicyService 获取审批策略服务
func (c *Container) PolicyService() service.PolicyService {
	return c.policySvc
}

// ApprovalService 获取审批请求服务
func (c *Container) ApprovalService() service.ApprovalService {
	return c.approvalSvc
}

// DelegationService 获取委托服务
func (c *Container) DelegationService() service.DelegationService {
	return c.delegationSvc
}

// QueryService 获取请求查询服务
func (c *Container) QueryService() service.QueryService {
	return c.querySvc
}

// StatisticsService 获取统计服务
func (c *Container) StatisticsService() service.StatisticsService {
	return c.statisticsSvc
}

// AuditLogService 获取审计日志服务
func (c *Container) AuditLogService() service.AuditLogService {
	return c.auditLogSvc
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.metricsCollector != nil {
		c.metricsCollector.Stop()
	}
	if c.dispatcher != nil {
		c.dispatcher.Stop()
	}
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return nil
}
