package service

import (
	"context"
	"sync"
	"testing"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
	"Circle_Community/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	tokens := newMemTokens()
	svc := NewUserService(db, tokens, "s3cret")

	_, err := svc.Register(ctx, "", "password", "", "")
	assert.ErrorIs(t, err, pkg.ErrValidation)
	_, err = svc.Register(ctx, "alice", "123", "", "")
	assert.ErrorIs(t, err, pkg.ErrValidation)
	_, err = svc.Register(ctx, "root", "password", "", "wrong")
	assert.ErrorIs(t, err, pkg.ErrForbidden)

	alice, err := svc.Register(ctx, "alice", "password", "alice@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, alice.Role)
	_, err = svc.Register(ctx, "alice", "password", "", "")
	assert.ErrorIs(t, err, pkg.ErrConflict)

	root, err := svc.Register(ctx, "root", "password", "", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, root.Role)

	_, err = svc.Login(ctx, "alice", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	pair, err := svc.Login(ctx, "root", "password")
	require.NoError(t, err)
	stored, ok := tokens.get(root.ID)
	require.True(t, ok)
	assert.Equal(t, pair.AccessToken, stored)

	claims, err := pkg.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "root", claims.Username)
	assert.Equal(t, model.RoleAdmin, claims.Role)

	refreshed, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	stored, _ = tokens.get(root.ID)
	assert.Equal(t, refreshed.AccessToken, stored)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, pkg.ErrRefreshInvalid)

	require.NoError(t, svc.Logout(ctx, root.ID))
	_, ok = tokens.get(root.ID)
	assert.False(t, ok)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	tokens := newMemTokens()
	svc := NewUserService(db, tokens, "")

	u, err := svc.Register(ctx, "alice", "password", "", "")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "alice", "password")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "wrong", "newpassword"), pkg.ErrValidation)
	require.NoError(t, svc.ChangePassword(ctx, u.ID, "password", "newpassword"))
	_, ok := tokens.get(u.ID)
	assert.False(t, ok, "password change logs the user out")

	_, err = svc.Login(ctx, "alice", "password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "alice", "newpassword")
	require.NoError(t, err)
}

func TestUsernameResolution(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	ids := testutil.CreateUsers(t, db, "alice", "bob", "carol")
	svc := NewUserService(db, newMemTokens(), "")

	id, err := svc.ResolveUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, ids[1], id)

	_, err = svc.ResolveUsername(ctx, "dave")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
	_, err = svc.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	names, err := svc.UsernamesByIDs(ctx, []uint64{ids[2], 9999, ids[0]})
	require.NoError(t, err)
	assert.Equal(t, []string{"carol", "alice"}, names)

	names, err = svc.UsernamesByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, names)
}

// 并发注册同名账号：只有一个成功，其余返回 ErrConflict 而不是内部错误
func TestRegisterConcurrentSameName(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	svc := NewUserService(db, newMemTokens(), "")

	const n = 6
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, "alice", "password", "", "")
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, pkg.ErrConflict)
	}
	assert.Equal(t, 1, ok)
}

// MySQL 唯一索引冲突（1062）经 TranslateError 映射为 ErrConflict
func TestRegisterDuplicateKeyOnMySQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE username = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice' for key 'users.idx_users_username'"})
	mock.ExpectRollback()

	svc := NewUserService(db, newMemTokens(), "")
	_, err = svc.Register(context.Background(), "alice", "password", "", "")
	assert.ErrorIs(t, err, pkg.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUsernameKeepsRelations(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	ids := testutil.CreateUsers(t, db, "alice", "bob", "carol")
	alice, bob := ids[0], ids[1]
	tokens := newMemTokens()
	users := NewUserService(db, tokens, "")
	follows := NewFollowService(db)
	messages := NewMessageService(db)

	require.NoError(t, follows.SendRequest(ctx, alice, bob))
	require.NoError(t, follows.AcceptRequest(ctx, alice, bob))
	require.NoError(t, follows.SendRequest(ctx, bob, alice))
	_, err := messages.Send(ctx, alice, bob, "hi bob")
	require.NoError(t, err)
	_, err = messages.Send(ctx, bob, alice, "hi alice")
	require.NoError(t, err)

	actor := model.Actor{UserID: alice, Username: "alice"}
	_, err = users.UpdateUsername(ctx, actor, "carol")
	assert.ErrorIs(t, err, pkg.ErrConflict)
	_, err = users.UpdateUsername(ctx, actor, "  ")
	assert.ErrorIs(t, err, pkg.ErrValidation)
	_, err = users.UpdateUsername(ctx, actor, "alice")
	assert.ErrorIs(t, err, pkg.ErrValidation)

	pair, err := users.UpdateUsername(ctx, actor, "alicia")
	require.NoError(t, err)
	claims, err := pkg.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alicia", claims.Username)
	stored, _ := tokens.get(alice)
	assert.Equal(t, pair.AccessToken, stored)

	_, err = users.ResolveUsername(ctx, "alice")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
	id, err := users.ResolveUsername(ctx, "alicia")
	require.NoError(t, err)
	assert.Equal(t, alice, id)

	followers, _, err := follows.GetFollowers(ctx, bob, 0, 0)
	require.NoError(t, err)
	names, err := users.UsernamesByIDs(ctx, followers)
	require.NoError(t, err)
	assert.Equal(t, []string{"alicia"}, names)

	rel, err := follows.Relation(ctx, id, bob)
	require.NoError(t, err)
	assert.True(t, rel.Following)
	assert.True(t, rel.RequestReceived)

	thread, err := messages.ListBetween(ctx, bob, id)
	require.NoError(t, err)
	assert.Len(t, thread, 2)
}

func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	ids := testutil.CreateUsers(t, db, "root", "alice", "bob", "carol")
	root, alice, bob, carol := ids[0], ids[1], ids[2], ids[3]
	tokens := newMemTokens()
	users := NewUserService(db, tokens, "")
	follows := NewFollowService(db)
	messages := NewMessageService(db)
	log, _ := quietLogger()
	verifications := NewVerificationService(db, nil, log)

	// alice <-> bob 互相关注，carol 关注 alice，alice 向 carol 发出请求
	require.NoError(t, follows.SendRequest(ctx, alice, bob))
	require.NoError(t, follows.AcceptRequest(ctx, alice, bob))
	require.NoError(t, follows.SendRequest(ctx, bob, alice))
	require.NoError(t, follows.AcceptRequest(ctx, bob, alice))
	require.NoError(t, follows.SendRequest(ctx, carol, alice))
	require.NoError(t, follows.AcceptRequest(ctx, carol, alice))
	require.NoError(t, follows.SendRequest(ctx, alice, carol))
	_, err := messages.Send(ctx, alice, bob, "bye")
	require.NoError(t, err)
	_, err = messages.Send(ctx, bob, carol, "still here")
	require.NoError(t, err)
	aliceActor := model.Actor{UserID: alice, Username: "alice"}
	_, err = verifications.CreateRequest(ctx, aliceActor, "id card")
	require.NoError(t, err)
	require.NoError(t, verifications.Approve(ctx, model.Actor{UserID: root, Username: "root", Role: model.RoleAdmin}, alice))
	require.NoError(t, tokens.Save(ctx, alice, "session"))

	require.NoError(t, users.Delete(ctx, alice))
	assert.ErrorIs(t, users.Delete(ctx, alice), pkg.ErrNotFound)
	_, ok := tokens.get(alice)
	assert.False(t, ok, "delete ends the session")

	_, err = users.GetByID(ctx, alice)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
	assert.False(t, verifications.IsVerified(ctx, alice))

	b, err := users.GetByID(ctx, bob)
	require.NoError(t, err)
	assert.Zero(t, b.FollowerCount)
	assert.Zero(t, b.FollowingCount)
	c, err := users.GetByID(ctx, carol)
	require.NoError(t, err)
	assert.Zero(t, c.FollowingCount)

	reqs, _, err := follows.GetRequests(ctx, carol, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, reqs)
	msgs, err := messages.ListForUser(ctx, bob)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, carol, msgs[0].RecipientID)

	var events []string
	require.NoError(t, db.Model(&model.SocialOutbox{}).Where("event_type = ?", model.EventUserDelete).Pluck("event_type", &events).Error)
	assert.Len(t, events, 1)
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	testutil.CreateUsers(t, db, "alice", "bob", "carol")
	svc := NewUserService(db, newMemTokens(), "")

	page, next, err := svc.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "carol", page[0].Username)
	assert.Empty(t, page[0].Password)
	require.NotZero(t, next)

	page, next, err = svc.List(ctx, next, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "alice", page[0].Username)
	assert.Zero(t, next)
}
