package repository

import (
	"context"
	"testing"
	"time"

	"validationlake/internal/model"
	"validationlake/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRepository_Lifecycle(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	repo := NewOutboxRepository(db)
	ctx := context.Background()

	first := &model.OutboxMessage{MessageKey: "k1", Topic: "t", Payload: "{}", Status: model.OutboxStatusPending}
	second := &model.OutboxMessage{MessageKey: "k2", Topic: "t", Payload: "{}", Status: model.OutboxStatusPending}
	require.NoError(t, repo.Create(ctx, nil, first))
	require.NoError(t, repo.Create(ctx, nil, second))

	pending, err := repo.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "k1", pending[0].MessageKey)

	require.NoError(t, repo.MarkSent(ctx, first.ID))

	parked, err := repo.RecordFailure(ctx, pending[1], 2)
	require.NoError(t, err)
	assert.False(t, parked)

	pending, err = repo.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)

	parked, err = repo.RecordFailure(ctx, pending[0], 2)
	require.NoError(t, err)
	assert.True(t, parked)

	n, err := repo.CountByStatus(ctx, model.OutboxStatusFailed)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	deleted, err := repo.DeleteSentBefore(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = repo.DeleteSentBefore(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	n, err = repo.CountByStatus(ctx, model.OutboxStatusSent)
	require.NoError(t, err)
	assert.Zero(t, n)
}
