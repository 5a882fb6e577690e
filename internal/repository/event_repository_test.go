package repository_test

import (
	"testing"
	"time"

	"github.com/mautops/workspace-gin/internal/model"
	"github.com/mautops/workspace-gin/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(id string, status string, createdAt time.Time) *model.EventModel {
	return &model.EventModel{
		ID:           id,
		ResourceType: "request",
		ResourceID:   "request-001",
		Type:         model.EventTypeRequestCreated,
		Data:         []byte(`{"request_id":"request-001"}`),
		Status:       status,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

// TestEventRepository_FindPending 测试待推送事件按创建时间升序返回
func TestEventRepository_FindPending(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := repository.NewEventRepository(db)

	base := time.Now().Add(-time.Hour)
	require.NoError(t, repo.Save(newEvent("evt-002", "pending", base.Add(2*time.Minute))))
	require.NoError(t, repo.Save(newEvent("evt-001", "pending", base.Add(time.Minute))))
	require.NoError(t, repo.Save(newEvent("evt-003", "success", base)))

	pending, err := repo.FindPending(0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "evt-001", pending[0].ID)
	assert.Equal(t, "evt-002", pending[1].ID)

	// limit 生效
	pending, err = repo.FindPending(1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "evt-001", pending[0].ID)
}

// TestEventRepository_FindByResource 测试按资源查询事件
func TestEventRepository_FindByResource(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := repository.NewEventRepository(db)

	require.NoError(t, repo.Save(newEvent("evt-001", "pending", time.Now())))
	other := newEvent("evt-002", "pending", time.Now())
	other.ResourceID = "request-002"
	require.NoError(t, repo.Save(other))

	events, err := repo.FindByResource("request", "request-001")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-001", events[0].ID)
}
