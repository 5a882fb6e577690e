package utils_test

import (
	"testing"

	"github.com/mautops/workspace-gin/internal/utils"
	"github.com/stretchr/testify/assert"
)

// TestValidateSortField 测试排序字段校验
func TestValidateSortField(t *testing.T) {
	assert.NoError(t, utils.ValidateSortField("requested_at"))
	assert.NoError(t, utils.ValidateSortField("approval_requests.status"))

	assert.Error(t, utils.ValidateSortField(""))
	assert.Error(t, utils.ValidateSortField("name; DROP TABLE"))
	assert.Error(t, utils.ValidateSortField("name UNION"))
	assert.Error(t, utils.ValidateSortField("select"))
}

// TestValidateSortOrder 测试排序方向校验
func TestValidateSortOrder(t *testing.T) {
	assert.NoError(t, utils.ValidateSortOrder("ASC"))
	assert.NoError(t, utils.ValidateSortOrder("desc"))
	assert.NoError(t, utils.ValidateSortOrder(" Desc "))

	assert.Error(t, utils.ValidateSortOrder(""))
	assert.Error(t, utils.ValidateSortOrder("ascending"))
}

// TestSanitizeSortField 测试排序字段清理
func TestSanitizeSortField(t *testing.T) {
	assert.Equal(t, "requested_at", utils.SanitizeSortField("requested_at"))
	assert.Equal(t, "nameDROPTABLE", utils.SanitizeSortField("name; DROP TABLE"))
}

// TestSanitizeSortOrder 测试排序方向清理
func TestSanitizeSortOrder(t *testing.T) {
	assert.Equal(t, "ASC", utils.SanitizeSortOrder("asc"))
	assert.Equal(t, "DESC", utils.SanitizeSortOrder("desc"))
	assert.Equal(t, "DESC", utils.SanitizeSortOrder("bogus"))
}
