package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Circle_Community/internal/model"
	"Circle_Community/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
	hdrs []map[string]string
}

func (p *fakePublisher) Send(_ context.Context, key string, _ []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.hdrs = append(p.hdrs, headers)
	return nil
}

type fakeMailer struct {
	enabled bool
	sent    []string
}

func (m *fakeMailer) Enabled() bool { return m.enabled }

func (m *fakeMailer) Send(to, _, _ string) error {
	m.sent = append(m.sent, to)
	return nil
}

func TestOutboxDrainRetriesFailures(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	ids := testutil.CreateUsers(t, db, "alice", "bob", "carol")
	follows := NewFollowService(db)
	require.NoError(t, follows.SendRequest(ctx, ids[0], ids[1]))
	require.NoError(t, follows.SendRequest(ctx, ids[0], ids[2]))

	fail := true
	var delivered []string
	sender := func(_ context.Context, ob *model.SocialOutbox) error {
		if ob.TargetID == ids[2] && fail {
			return errors.New("broker down")
		}
		delivered = append(delivered, ob.EventType)
		return nil
	}
	log, hook := quietLogger()
	relayer := NewOutboxRelayer(db, sender, 10, time.Second, log)

	assert.Equal(t, 1, relayer.drainOnce(ctx))
	assert.NotEmpty(t, hook.AllEntries())

	var failed model.SocialOutbox
	require.NoError(t, db.Where("target_id = ?", ids[2]).First(&failed).Error)
	assert.EqualValues(t, model.OutboxFailed, failed.Status)
	assert.Equal(t, 1, failed.Retry)

	fail = false
	assert.Equal(t, 1, relayer.drainOnce(ctx))
	assert.Equal(t, 0, relayer.drainOnce(ctx))
	assert.Equal(t, []string{model.EventFollowRequest, model.EventFollowRequest}, delivered)
}

func TestOutboxGivesUpAfterMaxRetry(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	ids := testutil.CreateUsers(t, db, "alice", "bob")
	require.NoError(t, NewFollowService(db).SendRequest(ctx, ids[0], ids[1]))

	calls := 0
	sender := func(context.Context, *model.SocialOutbox) error {
		calls++
		return errors.New("nope")
	}
	log, _ := quietLogger()
	relayer := NewOutboxRelayer(db, sender, 10, time.Second, log)
	for i := 0; i < DefaultOutboxMaxRetry+2; i++ {
		relayer.drainOnce(ctx)
	}
	assert.Equal(t, DefaultOutboxMaxRetry, calls)
}

func TestChainSendersKafkaAndMail(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	ids := testutil.CreateUsers(t, db, "root", "carol")
	log, _ := quietLogger()
	admin := model.Actor{UserID: ids[0], Username: "root", Role: model.RoleAdmin}
	carol := model.Actor{UserID: ids[1], Username: "carol"}

	verifications := NewVerificationService(db, nil, log)
	_, err := verifications.CreateRequest(ctx, carol, "id card")
	require.NoError(t, err)
	require.NoError(t, verifications.Approve(ctx, admin, carol.UserID))
	require.NoError(t, NewFollowService(db).SendRequest(ctx, carol.UserID, admin.UserID))

	pub := &fakePublisher{}
	mailer := &fakeMailer{enabled: true}
	sender := ChainSenders(LogSender(log), KafkaSender(pub), VerificationMailSender(db, mailer))
	relayer := NewOutboxRelayer(db, sender, 10, time.Second, log)

	assert.Equal(t, 2, relayer.drainOnce(ctx))
	require.Len(t, pub.keys, 2)
	assert.Equal(t, model.EventVerificationApprove, pub.hdrs[0]["event"])
	assert.Equal(t, model.EventFollowRequest, pub.hdrs[1]["event"])
	assert.Equal(t, []string{"carol@example.com"}, mailer.sent, "only verification outcomes are mailed")

	disabled := &fakeMailer{}
	require.NoError(t, VerificationMailSender(db, disabled)(ctx, &model.SocialOutbox{EventType: model.EventVerificationReject, TargetID: carol.UserID}))
	assert.Empty(t, disabled.sent)
}
