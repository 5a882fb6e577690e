package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 审批请求创建数
	approvalRequestsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_requests_created_total",
			Help: "Total number of approval requests created",
		},
		[]string{"category"},
	)

	// 审批决定数
	approvalDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_decisions_total",
			Help: "Total number of approval decisions recorded",
		},
		[]string{"decision"}, // approved, rejected
	)

	// 请求终态数
	approvalRequestsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_requests_resolved_total",
			Help: "Total number of approval requests reaching a terminal state",
		},
		[]string{"status"}, // approved, rejected, cancelled
	)

	// 委托授权/撤销数
	delegationsGrantedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "delegations_granted_total",
			Help: "Total number of delegation grants created or updated",
		},
	)
	delegationsRevokedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "delegations_revoked_total",
			Help: "Total number of delegation grants revoked",
		},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)
	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// 请求状态分布
	requestsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "approval_requests_by_status",
			Help: "Number of approval requests by status",
		},
		[]string{"status"},
	)

	registerOnce sync.Once
)

// Register 注册全部指标,重复调用只生效一次
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			apiRequestsTotal,
			apiRequestDuration,
			approvalRequestsCreatedTotal,
			approvalDecisionsTotal,
			approvalRequestsResolvedTotal,
			delegationsGrantedTotal,
			delegationsRevokedTotal,
			databaseConnectionsActive,
			databaseConnectionsIdle,
			requestsByStatus,
		)
	})
}

// RecordAPIRequest 记录一次 API 请求
func RecordAPIRequest(method string, path string, status int, durationSeconds float64) {
	apiRequestsTotal.WithLabelValues(method, path, fmt.Sprintf("%d", status)).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(durationSeconds)
}

// RecordRequestCreated 记录审批请求创建
func RecordRequestCreated(category string) {
	approvalRequestsCreatedTotal.WithLabelValues(category).Inc()
}

// RecordDecision 记录审批决定
func RecordDecision(decision string) {
	approvalDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordRequestResolved 记录请求进入终态
func RecordRequestResolved(status string) {
	approvalRequestsResolvedTotal.WithLabelValues(status).Inc()
}

// RecordDelegationGranted 记录委托授权
func RecordDelegationGranted() {
	delegationsGrantedTotal.Inc()
}

// RecordDelegationRevoked 记录委托撤销
func RecordDelegationRevoked() {
	delegationsRevokedTotal.Inc()
}

// UpdateDBStats 更新数据库连接池指标
func UpdateDBStats(db *gorm.DB) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.InUse))
	databaseConnectionsIdle.Set(float64(stats.Idle))
}

// UpdateRequestsByStatus 更新请求状态分布指标
func UpdateRequestsByStatus(counts map[string]int64) {
	for status, count := range counts {
		requestsByStatus.WithLabelValues(status).Set(float64(count))
	}
}

// Handler 返回 Prometheus 指标的 HTTP 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
