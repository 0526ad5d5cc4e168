package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
	"Circle_Community/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRequestValidation(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	ids := testutil.CreateUsers(t, db, "alice")
	svc := NewFollowService(db)

	err := svc.SendRequest(ctx, ids[0], ids[0])
	assert.ErrorIs(t, err, pkg.ErrValidation)

	err = svc.SendRequest(ctx, 0, ids[0])
	assert.ErrorIs(t, err, pkg.ErrValidation)
}

func TestFollowLifecycle(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	ids := testutil.CreateUsers(t, db, "alice", "bob", "carol")
	alice, bob, carol := ids[0], ids[1], ids[2]
	svc := NewFollowService(db)

	require.NoError(t, svc.SendRequest(ctx, alice, bob))
	assert.ErrorIs(t, svc.SendRequest(ctx, alice, bob), pkg.ErrConflict)

	sent, _, err := svc.GetSentRequests(ctx, alice, 0, 0)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, bob, sent[0].ToID)

	assert.ErrorIs(t, svc.AcceptRequest(ctx, carol, bob), pkg.ErrNotFound)
	assert.ErrorIs(t, svc.RejectRequest(ctx, carol, bob), pkg.ErrNotFound)

	require.NoError(t, svc.AcceptRequest(ctx, alice, bob))
	assert.ErrorIs(t, svc.AcceptRequest(ctx, alice, bob), pkg.ErrNotFound)
	assert.ErrorIs(t, svc.SendRequest(ctx, alice, bob), pkg.ErrConflict, "already following")

	rel, err := svc.Relation(ctx, bob, alice)
	require.NoError(t, err)
	assert.Equal(t, model.Relation{FollowedBy: true}, *rel)

	// 拒绝后没有关注边
	require.NoError(t, svc.SendRequest(ctx, carol, bob))
	require.NoError(t, svc.RejectRequest(ctx, carol, bob))
	followers, _, err := svc.GetFollowers(ctx, bob, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{alice}, followers)

	// 撤回自己的请求
	require.NoError(t, svc.SendRequest(ctx, carol, alice))
	rel, err = svc.Relation(ctx, alice, carol)
	require.NoError(t, err)
	assert.True(t, rel.RequestReceived)
	require.NoError(t, svc.RemoveRequest(ctx, carol, alice))
	assert.ErrorIs(t, svc.RemoveRequest(ctx, carol, alice), pkg.ErrNotFound)

	require.NoError(t, svc.RemoveFollower(ctx, bob, alice))
	assert.ErrorIs(t, svc.RemoveFollower(ctx, bob, alice), pkg.ErrNotFound)
	assert.ErrorIs(t, svc.RemoveFollowing(ctx, alice, bob), pkg.ErrNotFound)

	following, _, err := svc.GetFollowing(ctx, alice, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, following)
}

func TestConcurrentSendRequestCreatesOneRow(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	ids := testutil.CreateUsers(t, db, "alice", "bob")
	svc := NewFollowService(db)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.SendRequest(ctx, ids[0], ids[1])
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, pkg.ErrConflict)
	}
	assert.Equal(t, 1, ok)

	var rows int64
	require.NoError(t, db.Model(&model.FollowRequest{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestAcceptRejectRaceHasOneWinner(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	ids := testutil.CreateUsers(t, db, "alice", "bob")
	svc := NewFollowService(db)
	require.NoError(t, svc.SendRequest(ctx, ids[0], ids[1]))

	var wg sync.WaitGroup
	results := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				results[i] = svc.AcceptRequest(ctx, ids[0], ids[1])
			} else {
				results[i] = svc.RejectRequest(ctx, ids[0], ids[1])
			}
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.True(t, errors.Is(err, pkg.ErrNotFound))
		}
	}
	assert.Equal(t, 1, winners)

	var requests int64
	require.NoError(t, db.Model(&model.FollowRequest{}).Count(&requests).Error)
	assert.Zero(t, requests)
}

func TestFollowEndToEnd(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	ids := testutil.CreateUsers(t, db, "alice", "bob")
	alice, bob := ids[0], ids[1]
	svc := NewFollowService(db)
	users := NewUserService(db, newMemTokens(), "")

	require.NoError(t, svc.SendRequest(ctx, alice, bob))

	inbox, _, err := svc.GetRequests(ctx, bob, 0, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	names, err := users.UsernamesByIDs(ctx, []uint64{inbox[0].FromID})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, names)

	require.NoError(t, svc.AcceptRequest(ctx, alice, bob))

	followers, _, err := svc.GetFollowers(ctx, bob, 0, 0)
	require.NoError(t, err)
	names, err = users.UsernamesByIDs(ctx, followers)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, names)

	following, _, err := svc.GetFollowing(ctx, alice, 0, 0)
	require.NoError(t, err)
	names, err = users.UsernamesByIDs(ctx, following)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, names)

	inbox, _, err = svc.GetRequests(ctx, bob, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, inbox)
}
