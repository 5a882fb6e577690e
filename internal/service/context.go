package service

import "context"

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	userRolesKey contextKey = "user_roles"
	requestIDKey contextKey = "request_id"
	clientIPKey  contextKey = "client_ip"
	userAgentKey contextKey = "user_agent"
)

// WithRequestMeta 把 HTTP 请求元信息写入 context,供审计日志使用
func WithRequestMeta(ctx context.Context, requestID string, clientIP string, userAgent string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	ctx = context.WithValue(ctx, clientIPKey, clientIP)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

// WithUserID 把用户 ID 写入 context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// WithUserRoles 把用户角色列表写入 context
func WithUserRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, userRolesKey, roles)
}

// getUserIDFromContext 从 context 获取用户 ID,没有则返回空串
func getUserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// getUserRolesFromContext 从 context 获取用户角色列表
func getUserRolesFromContext(ctx context.Context) []string {
	if v, ok := ctx.Value(userRolesKey).([]string); ok {
		return v
	}
	return nil
}
