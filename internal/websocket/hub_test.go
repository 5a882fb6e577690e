package websocket_test

import (
	"testing"
	"time"

	"github.com/mautops/workspace-gin/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForClientCount 等待 Hub 中的客户端数量达到期望值
func waitForClientCount(t *testing.T, hub *websocket.Hub, expected int) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.GetClientCount() == expected {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, expected, hub.GetClientCount())
}

// TestHub_RegisterUnregister 测试客户端注册与注销
func TestHub_RegisterUnregister(t *testing.T) {
	hub := websocket.NewHub()
	go hub.Run()

	client := websocket.NewClient("client-1", "user-001", "request-001", hub, nil)
	hub.Register <- client
	waitForClientCount(t, hub, 1)

	hub.Unregister <- client
	waitForClientCount(t, hub, 0)

	// 注销后 Send channel 被关闭
	_, open := <-client.Send
	assert.False(t, open)
}

// TestHub_BroadcastToResource 测试按资源定向广播
func TestHub_BroadcastToResource(t *testing.T) {
	hub := websocket.NewHub()
	go hub.Run()

	subscriber := websocket.NewClient("client-1", "user-001", "request-001", hub, nil)
	other := websocket.NewClient("client-2", "user-002", "request-002", hub, nil)
	hub.Register <- subscriber
	hub.Register <- other
	waitForClientCount(t, hub, 2)

	hub.BroadcastToResource("request-001", []byte(`{"status":"approved"}`))

	select {
	case msg := <-subscriber.Send:
		assert.JSONEq(t, `{"status":"approved"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive broadcast")
	}

	// 订阅其他资源的客户端不收到消息
	select {
	case msg := <-other.Send:
		t.Fatalf("unexpected message for other client: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestHub_BroadcastToUser 测试按用户定向广播
func TestHub_BroadcastToUser(t *testing.T) {
	hub := websocket.NewHub()
	go hub.Run()

	first := websocket.NewClient("client-1", "user-001", "request-001", hub, nil)
	second := websocket.NewClient("client-2", "user-001", "request-002", hub, nil)
	hub.Register <- first
	hub.Register <- second
	waitForClientCount(t, hub, 2)

	hub.BroadcastToUser("user-001", []byte("ping"))

	for _, client := range []*websocket.Client{first, second} {
		select {
		case msg := <-client.Send:
			assert.Equal(t, "ping", string(msg))
		case <-time.After(time.Second):
			t.Fatalf("client %s did not receive message", client.ID)
		}
	}
}
