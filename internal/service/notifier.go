package service

// TransitionEvent 状态转换通知
type TransitionEvent struct {
	Type         string      `json:"type"`
	ResourceType string      `json:"resource_type"` // request/delegation
	ResourceID   string      `json:"resource_id"`
	Payload      interface{} `json:"payload,omitempty"`
}

// Notifier 通知分发器接口
// 尽力而为: 投递失败绝不回滚核心状态转换,实现方自行落库/重试
type Notifier interface {
	Publish(event *TransitionEvent)
}

// CapabilityChecker 工作区管理权限检查接口
// 权限关系由外部授权系统维护,核心只问 "该用户是否管理该工作区"
type CapabilityChecker interface {
	IsWorkspaceAdmin(userID string, workspaceID string) (bool, error)
}
