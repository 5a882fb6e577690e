package auth_test

import (
	"testing"
	"time"

	"github.com/mautops/workspace-gin/internal/auth"
	"github.com/stretchr/testify/assert"
)

// TestPermissionCache_GetSet 测试缓存读写
func TestPermissionCache_GetSet(t *testing.T) {
	cache := auth.NewPermissionCache(time.Minute)

	// 未命中
	_, found := cache.Get("user:u1:admin:workspace:ws-001")
	assert.False(t, found)

	cache.Set("user:u1:admin:workspace:ws-001", true)
	value, found := cache.Get("user:u1:admin:workspace:ws-001")
	assert.True(t, found)
	assert.True(t, value)

	// false 值也会被缓存
	cache.Set("user:u2:admin:workspace:ws-001", false)
	value, found = cache.Get("user:u2:admin:workspace:ws-001")
	assert.True(t, found)
	assert.False(t, value)
}

// TestPermissionCache_Expiry 测试 TTL 过期
func TestPermissionCache_Expiry(t *testing.T) {
	cache := auth.NewPermissionCache(10 * time.Millisecond)

	cache.Set("key", true)
	_, found := cache.Get("key")
	assert.True(t, found)

	time.Sleep(20 * time.Millisecond)
	_, found = cache.Get("key")
	assert.False(t, found)
}

// TestPermissionCache_Invalidate 测试缓存失效
func TestPermissionCache_Invalidate(t *testing.T) {
	cache := auth.NewPermissionCache(time.Minute)

	cache.Set("key-1", true)
	cache.Set("key-2", true)

	cache.Invalidate("key-1")
	_, found := cache.Get("key-1")
	assert.False(t, found)
	_, found = cache.Get("key-2")
	assert.True(t, found)

	cache.Clear()
	_, found = cache.Get("key-2")
	assert.False(t, found)
}
