package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mautops/workspace-gin/internal/config"
	"github.com/mautops/workspace-gin/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// GetProductionPoolConfig 获取生产环境连接池配置
func GetProductionPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    20,
		MaxOpenConns:    200,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 300,  // 5 分钟
	}
}

// Connect 连接数据库
// TranslateError 必须开启,服务层依赖 gorm.ErrDuplicatedKey 识别唯一索引冲突
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	poolConfig := resolvePoolConfig(cfg, GetPoolConfig())
	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// ConnectProduction 连接数据库（生产环境连接池默认值）
func ConnectProduction(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	poolConfig := resolvePoolConfig(cfg, GetProductionPoolConfig())
	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// resolvePoolConfig 合并配置值与默认值
func resolvePoolConfig(cfg config.DatabaseConfig, defaults *PoolConfig) *PoolConfig {
	if cfg.MaxIdleConns <= 0 && cfg.MaxOpenConns <= 0 {
		return defaults
	}

	poolConfig := &PoolConfig{
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
	if poolConfig.MaxIdleConns == 0 {
		poolConfig.MaxIdleConns = defaults.MaxIdleConns
	}
	if poolConfig.MaxOpenConns == 0 {
		poolConfig.MaxOpenConns = defaults.MaxOpenConns
	}
	if poolConfig.ConnMaxLifetime == 0 {
		poolConfig.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if poolConfig.ConnMaxIdleTime == 0 {
		poolConfig.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
	return poolConfig
}

// ConnectWithRetry 带重试的数据库连接
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		// 如果不是最后一次重试，等待后重试
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	// 检测数据库类型
	dialector := db.Dialector.Name()

	// SQLite 不支持 jsonb，需要手动创建表
	// GORM SQLite dialector 的名称可能是 "sqlite" 或 "sqlite3"
	if dialector == "sqlite" || dialector == "sqlite3" {
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		// PostgreSQL 等其他数据库使用 AutoMigrate
		if err := db.AutoMigrate(
			&model.WorkspaceModel{},
			&model.ApprovalPolicyModel{},
			&model.ApprovalRequestModel{},
			&model.ApprovalDecisionModel{},
			&model.DelegationGrantModel{},
			&model.StateHistoryModel{},
			&model.EventModel{},
			&model.AuditLogModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	// 创建索引
	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteTables 为 SQLite 手动创建表（使用 TEXT 替代 jsonb）
func createSQLiteTables(db *gorm.DB) error {
	// 创建 workspaces 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS workspaces (
			id VARCHAR(64) PRIMARY KEY,
			event_id VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL,
			type VARCHAR(32) NOT NULL,
			parent_id VARCHAR(64),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create workspaces table: %w", err)
	}

	// 创建 approval_policies 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS approval_policies (
			id VARCHAR(64) PRIMARY KEY,
			workspace_id VARCHAR(64) NOT NULL,
			resource_category VARCHAR(32) NOT NULL,
			chain TEXT NOT NULL,
			allow_self_approval BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			created_by VARCHAR(64)
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create approval_policies table: %w", err)
	}

	// 创建 approval_requests 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS approval_requests (
			id VARCHAR(64) PRIMARY KEY,
			workspace_id VARCHAR(64) NOT NULL,
			resource_category VARCHAR(32) NOT NULL,
			subject_ref VARCHAR(128) NOT NULL,
			requester_id VARCHAR(64) NOT NULL,
			status VARCHAR(32) NOT NULL,
			current_level INTEGER NOT NULL DEFAULT 1,
			chain TEXT NOT NULL,
			allow_self_approval BOOLEAN NOT NULL DEFAULT 0,
			requested_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			resolved_at DATETIME
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create approval_requests table: %w", err)
	}

	// 创建 approval_decisions 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS approval_decisions (
			id VARCHAR(64) PRIMARY KEY,
			request_id VARCHAR(64) NOT NULL,
			level INTEGER NOT NULL,
			approver_id VARCHAR(64) NOT NULL,
			approver_role VARCHAR(64) NOT NULL,
			decision VARCHAR(32) NOT NULL,
			notes TEXT,
			decided_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create approval_decisions table: %w", err)
	}

	// 创建 delegation_grants 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS delegation_grants (
			id VARCHAR(64) PRIMARY KEY,
			event_id VARCHAR(64) NOT NULL,
			root_workspace_id VARCHAR(64) NOT NULL,
			delegated_workspace_id VARCHAR(64) NOT NULL,
			can_design_templates BOOLEAN NOT NULL DEFAULT 0,
			can_define_criteria BOOLEAN NOT NULL DEFAULT 0,
			can_generate BOOLEAN NOT NULL DEFAULT 0,
			can_distribute BOOLEAN NOT NULL DEFAULT 0,
			notes TEXT,
			delegated_by VARCHAR(64) NOT NULL,
			delegated_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create delegation_grants table: %w", err)
	}

	// 创建 state_history 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS state_history (
			id VARCHAR(64) PRIMARY KEY,
			request_id VARCHAR(64) NOT NULL,
			from_status VARCHAR(32),
			to_status VARCHAR(32) NOT NULL,
			level INTEGER,
			reason TEXT,
			operator VARCHAR(64) NOT NULL,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create state_history table: %w", err)
	}

	// 创建 events 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id VARCHAR(64) PRIMARY KEY,
			resource_type VARCHAR(32) NOT NULL,
			resource_id VARCHAR(64) NOT NULL,
			type VARCHAR(32) NOT NULL,
			data TEXT NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			retry_count INTEGER DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}

	// 创建 audit_logs 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			action VARCHAR(64) NOT NULL,
			resource_type VARCHAR(32) NOT NULL,
			resource_id VARCHAR(64) NOT NULL,
			request_id VARCHAR(64),
			ip VARCHAR(45),
			user_agent TEXT,
			details TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create audit_logs table: %w", err)
	}

	return nil
}

// CreateIndexes 创建数据库索引
// 两个唯一索引承载并发正确性: 同级重复决定和同一对工作区的重复委托都会被拒绝
func CreateIndexes(db *gorm.DB) error {
	// workspaces 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_workspaces_event_id ON workspaces(event_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_workspaces_event_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_workspaces_parent_id ON workspaces(parent_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_workspaces_parent_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_workspaces_type ON workspaces(type)").Error; err != nil {
		return fmt.Errorf("failed to create idx_workspaces_type: %w", err)
	}

	// approval_policies 表索引
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS uq_policies_workspace_category ON approval_policies(workspace_id, resource_category)").Error; err != nil {
		return fmt.Errorf("failed to create uq_policies_workspace_category: %w", err)
	}

	// approval_requests 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_requests_workspace_status ON approval_requests(workspace_id, status)").Error; err != nil {
		return fmt.Errorf("failed to create idx_requests_workspace_status: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_requests_requester ON approval_requests(requester_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_requests_requester: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_requests_requested_at ON approval_requests(requested_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_requests_requested_at: %w", err)
	}

	// approval_decisions 表索引
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS uq_decisions_request_level ON approval_decisions(request_id, level)").Error; err != nil {
		return fmt.Errorf("failed to create uq_decisions_request_level: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_decisions_approver ON approval_decisions(approver_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_decisions_approver: %w", err)
	}

	// delegation_grants 表索引
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS uq_delegations_pair ON delegation_grants(root_workspace_id, delegated_workspace_id)").Error; err != nil {
		return fmt.Errorf("failed to create uq_delegations_pair: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_delegations_event_id ON delegation_grants(event_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_delegations_event_id: %w", err)
	}

	// state_history 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_history_request_id ON state_history(request_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_history_request_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_history_created_at ON state_history(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_history_created_at: %w", err)
	}

	// events 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_status ON events(status)").Error; err != nil {
		return fmt.Errorf("failed to create idx_events_status: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_resource ON events(resource_type, resource_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_events_resource: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_events_created_at: %w", err)
	}

	// audit_logs 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs(resource_type, resource_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_resource: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_logs(user_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_user_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_logs(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_created_at: %w", err)
	}

	// PostgreSQL 特定的 GIN 索引
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_requests_chain_gin ON approval_requests USING GIN (chain)").Error; err != nil {
			return fmt.Errorf("failed to create idx_requests_chain_gin: %w", err)
		}
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_policies_chain_gin ON approval_policies USING GIN (chain)").Error; err != nil {
			return fmt.Errorf("failed to create idx_policies_chain_gin: %w", err)
		}
	}

	return nil
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return false
	}

	return true
}

// Reconnect 重新连接数据库
func Reconnect(cfg config.DatabaseConfig, oldDB *gorm.DB) (*gorm.DB, error) {
	// 关闭旧连接
	if oldDB != nil {
		if sqlDB, err := oldDB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	// 重新连接
	return Connect(cfg)
}
