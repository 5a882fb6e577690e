package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/workspace-gin/internal/model"
	"github.com/mautops/workspace-gin/internal/repository"
	"github.com/mautops/workspace-gin/internal/service"
	"github.com/mautops/workspace-gin/internal/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WebhookAuth Webhook 认证配置
type WebhookAuth struct {
	Type  string `mapstructure:"type"` // bearer/basic/header
	Key   string `mapstructure:"key"`
	Token string `mapstructure:"token"`
}

// WebhookConfig Webhook 推送配置
type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Method  string            `mapstructure:"method"`
	Headers map[string]string `mapstructure:"headers"`
	Auth    *WebhookAuth      `mapstructure:"auth"`
}

// Dispatcher 出站事件分发器
// 事件先落库再异步推送: Webhook 走 worker 池带重试, WebSocket 按资源广播
// 任一投递失败都不影响已提交的状态转换
type Dispatcher struct {
	db         *gorm.DB
	eventRepo  repository.EventRepository
	hub        *websocket.Hub
	webhooks   []WebhookConfig
	httpClient *http.Client
	queue      chan *model.EventModel
	workers    int
	stop       chan struct{}
}

// NewDispatcher 创建事件分发器并启动 worker goroutines
func NewDispatcher(db *gorm.DB, hub *websocket.Hub, webhooks []WebhookConfig, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}

	d := &Dispatcher{
		db:         db,
		eventRepo:  repository.NewEventRepository(db),
		hub:        hub,
		webhooks:   webhooks,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		queue:      make(chan *model.EventModel, 1000),
		workers:    workers,
		stop:       make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		go d.worker()
	}

	return d
}

var _ service.Notifier = (*Dispatcher)(nil)

// Publish 发布状态转换事件
func (d *Dispatcher) Publish(evt *service.TransitionEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal transition event")
		return
	}

	// 1. 持久化事件到数据库
	eventModel := &model.EventModel{
		ID:           uuid.New().String(),
		ResourceType: evt.ResourceType,
		ResourceID:   evt.ResourceID,
		Type:         evt.Type,
		Data:         data,
		Status:       "pending",
		RetryCount:   0,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := d.eventRepo.Save(eventModel); err != nil {
		logrus.WithError(err).WithField("type", evt.Type).Error("failed to save event")
		return
	}

	// 2. 广播给订阅该资源的 WebSocket 客户端
	if d.hub != nil {
		d.hub.BroadcastToResource(evt.ResourceID, data)
	}

	// 3. 异步推送到 Webhook
	select {
	case d.queue <- eventModel:
		// 事件成功入队
	default:
		// 队列满时记录日志,不阻塞
		logrus.WithFields(logrus.Fields{
			"type":        evt.Type,
			"resource_id": evt.ResourceID,
		}).Warn("event queue full, dropping webhook push")
	}
}

// Replay 重新入队待推送事件,服务重启后恢复未完成的推送
func (d *Dispatcher) Replay(limit int) error {
	events, err := d.eventRepo.FindPending(limit)
	if err != nil {
		return fmt.Errorf("failed to load pending events: %w", err)
	}
	for _, evt := range events {
		select {
		case d.queue <- evt:
		default:
			return nil
		}
	}
	return nil
}

// Stop 停止事件分发器
func (d *Dispatcher) Stop() {
	close(d.stop)
}

// worker 事件推送 worker
func (d *Dispatcher) worker() {
	for {
		select {
		case evt := <-d.queue:
			d.pushToWebhooks(evt)
		case <-d.stop:
			return
		}
	}
}

// pushToWebhooks 带指数退避重试地推送到全部 Webhook
func (d *Dispatcher) pushToWebhooks(eventModel *model.EventModel) {
	// 没有 Webhook 配置时无需推送
	if len(d.webhooks) == 0 {
		eventModel.Status = "success"
		eventModel.UpdatedAt = time.Now()
		d.eventRepo.Save(eventModel)
		return
	}

	maxRetries := 3
	backoff := time.Second

	for i := 0; i < maxRetries; i++ {
		success := true
		for idx := range d.webhooks {
			if err := d.sendWebhookRequest(&d.webhooks[idx], eventModel.Data); err != nil {
				success = false
				logrus.WithError(err).WithField("url", d.webhooks[idx].URL).
					Warn("failed to send webhook request")
			}
		}

		if success {
			eventModel.Status = "success"
			eventModel.UpdatedAt = time.Now()
			d.eventRepo.Save(eventModel)
			return
		}

		// 推送失败,增加重试计数
		eventModel.RetryCount++
		eventModel.UpdatedAt = time.Now()
		d.eventRepo.Save(eventModel)

		if i < maxRetries-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	eventModel.Status = "failed"
	eventModel.UpdatedAt = time.Now()
	d.eventRepo.Save(eventModel)
}

// sendWebhookRequest 发送单个 Webhook 请求
func (d *Dispatcher) sendWebhookRequest(webhook *WebhookConfig, body []byte) error {
	method := webhook.Method
	if method == "" {
		method = "POST"
	}

	req, err := http.NewRequest(method, webhook.URL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range webhook.Headers {
		req.Header.Set(key, value)
	}

	if webhook.Auth != nil {
		switch webhook.Auth.Type {
		case "bearer":
			req.Header.Set("Authorization", "Bearer "+webhook.Auth.Token)
		case "basic":
			req.SetBasicAuth(webhook.Auth.Key, webhook.Auth.Token)
		case "header":
			req.Header.Set(webhook.Auth.Key, webhook.Auth.Token)
		}
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status code: %d", resp.StatusCode)
	}

	return nil
}
