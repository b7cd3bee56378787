package requests_test

import (
	"context"
	"testing"

	"github.com/fastorc/requestshub/pkg/requests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_IsOpen(t *testing.T) {
	t.Parallel()

	assert.True(t, requests.StatusOpen.IsOpen())
	assert.True(t, requests.StatusAssigned.IsOpen())
	assert.True(t, requests.StatusInProgress.IsOpen())
	assert.False(t, requests.StatusResolved.IsOpen())
	assert.False(t, requests.Status("archived").IsOpen())
}

func TestMemoryRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := requests.NewMemoryRepository(requests.Request{
		ID: "42", Title: "Printer on fire", Type: "incident", Priority: "low", Status: requests.StatusOpen,
	})

	req, err := repo.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Printer on fire", req.Title)

	require.NoError(t, repo.RaisePriority(ctx, "42", requests.PriorityUrgent))
	require.NoError(t, repo.RaisePriority(ctx, "42", requests.PriorityUrgent))

	req, err = repo.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, requests.PriorityUrgent, req.Priority)

	_, err = repo.Get(ctx, "missing")
	require.Error(t, err)
	assert.True(t, requests.IsRequestNotFound(err))

	var reqErr *requests.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "Get", reqErr.Op)
	assert.Equal(t, "missing", reqErr.RequestID)

	err = repo.RaisePriority(ctx, "missing", requests.PriorityUrgent)
	assert.True(t, requests.IsRequestNotFound(err))
}
