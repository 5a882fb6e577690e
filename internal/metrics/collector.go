package metrics

import (
	"time"

	"github.com/mautops/workspace-gin/internal/model"
	"gorm.io/gorm"
)

// Collector 周期性采集数据库与请求状态指标
type Collector struct {
	db       *gorm.DB
	interval time.Duration
	stop     chan struct{}
}

// NewCollector 创建指标采集器,interval 非正时默认 30 秒
func NewCollector(db *gorm.DB, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Collector{
		db:       db,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start 启动采集循环
func (c *Collector) Start() {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop 停止采集
func (c *Collector) Stop() {
	close(c.stop)
}

// collect 执行一轮采集
func (c *Collector) collect() {
	UpdateDBStats(c.db)

	type bucket struct {
		Status string
		Count  int64
	}
	var buckets []bucket
	if err := c.db.Model(&model.ApprovalRequestModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&buckets).Error; err != nil {
		return
	}
	counts := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		counts[b.Status] = b.Count
	}
	UpdateRequestsByStatus(counts)
}
