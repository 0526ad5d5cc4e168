package mysql

import (
	"context"
	"testing"

	"Circle_Community/internal/model"
	"Circle_Community/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRetryAndSuccess(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	ids := testutil.CreateUsers(t, db, "alice", "bob", "carol")
	follows := &FollowRepository{DB: db}
	_, err := follows.CreateRequest(ctx, ids[0], ids[1])
	require.NoError(t, err)
	_, err = follows.CreateRequest(ctx, ids[0], ids[2])
	require.NoError(t, err)

	repo := &OutboxRepository{DB: db}
	rows, err := repo.List(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Less(t, rows[0].ID, rows[1].ID)

	require.NoError(t, repo.SuccessUpdate(ctx, rows[0].ID))
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.RetryUpdate(ctx, rows[1].ID))
	}

	var failed model.SocialOutbox
	require.NoError(t, db.First(&failed, rows[1].ID).Error)
	assert.EqualValues(t, model.OutboxFailed, failed.Status)
	assert.Equal(t, 3, failed.Retry)

	rows, err = repo.List(ctx, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, rows, "sent rows and exhausted retries are skipped")

	rows, err = repo.List(ctx, 10, 4)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
