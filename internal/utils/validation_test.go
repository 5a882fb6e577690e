package utils_test

import (
	"strings"
	"testing"

	"github.com/mautops/workspace-gin/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidateResourceID 测试资源 ID 校验规则
func TestValidateResourceID(t *testing.T) {
	assert.NoError(t, utils.ValidateResourceID("ws-001"))
	assert.NoError(t, utils.ValidateResourceID("request_ABC_123"))

	assert.ErrorIs(t, utils.ValidateResourceID(""), utils.ErrEmptyID)
	assert.ErrorIs(t, utils.ValidateResourceID("ws 001"), utils.ErrInvalidIDFormat)
	assert.ErrorIs(t, utils.ValidateResourceID("ws/001"), utils.ErrInvalidIDFormat)
	assert.ErrorIs(t, utils.ValidateResourceID("ws';drop"), utils.ErrInvalidIDFormat)
	assert.ErrorIs(t, utils.ValidateResourceID(strings.Repeat("a", 65)), utils.ErrIDTooLong)
}

// TestValidateWorkspaceName 测试工作区名称校验
func TestValidateWorkspaceName(t *testing.T) {
	assert.NoError(t, utils.ValidateWorkspaceName("市场部"))
	assert.NoError(t, utils.ValidateWorkspaceName("Annual Gala Committee"))

	assert.ErrorIs(t, utils.ValidateWorkspaceName(""), utils.ErrEmptyName)
	assert.ErrorIs(t, utils.ValidateWorkspaceName("   "), utils.ErrEmptyName)
	assert.ErrorIs(t, utils.ValidateWorkspaceName(strings.Repeat("a", 256)), utils.ErrNameTooLong)
	assert.ErrorIs(t, utils.ValidateWorkspaceName("<script>alert(1)</script>"), utils.ErrDangerousChars)
	assert.ErrorIs(t, utils.ValidateWorkspaceName("x'; DROP TABLE workspaces"), utils.ErrDangerousChars)
}

// TestSanitizeString 测试字符串清理
func TestSanitizeString(t *testing.T) {
	// HTML 转义
	assert.Equal(t, "&lt;b&gt;bold&lt;/b&gt;", utils.SanitizeString("<b>bold</b>"))

	// 控制字符被移除,换行和制表符保留
	assert.Equal(t, "a\nb\tc", utils.SanitizeString("a\nb\tc\x00\x07"))
}

// TestTrimAndValidate 测试清理并验证
func TestTrimAndValidate(t *testing.T) {
	result, err := utils.TrimAndValidate("  hello  ", 10)
	require.NoError(t, err)
	assert.Equal(t, "hello", result)

	_, err = utils.TrimAndValidate("   ", 10)
	assert.ErrorIs(t, err, utils.ErrEmptyString)

	_, err = utils.TrimAndValidate("toolongvalue", 5)
	assert.ErrorIs(t, err, utils.ErrStringTooLong)
}
