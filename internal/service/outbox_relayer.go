package service

import (
	"context"
	"errors"
	"time"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
	"Circle_Community/internal/repository/mysql"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const DefaultOutboxMaxRetry = 5

type Sender func(ctx context.Context, ob *model.SocialOutbox) error

// OutboxRelayer outbox表相关服务，至少投递一次
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	maxRetry  int
	interval  time.Duration
	sender    Sender
	log       logrus.FieldLogger
}

func NewOutboxRelayer(db *gorm.DB, sender Sender, batchSize int, interval time.Duration, log logrus.FieldLogger) *OutboxRelayer {
	if batchSize <= 0 {
		batchSize = 200
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &OutboxRelayer{
		repo:      &mysql.OutboxRepository{DB: db},
		batchSize: batchSize,
		maxRetry:  DefaultOutboxMaxRetry,
		interval:  interval,
		sender:    sender,
		log:       log,
	}
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

// drainOnce 从数据库读取一批事件交给 sender，返回成功条数
func (r *OutboxRelayer) drainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		r.log.WithError(err).Error("outbox query failed")
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{"id": ob.ID, "event": ob.EventType, "retry": ob.Retry}).Warn("outbox send failed")
			if uerr := r.repo.RetryUpdate(ctx, ob.ID); uerr != nil {
				r.log.WithError(uerr).WithField("id", ob.ID).Error("outbox retry update failed")
			}
			continue
		}
		if uerr := r.repo.SuccessUpdate(ctx, ob.ID); uerr != nil {
			r.log.WithError(uerr).WithField("id", ob.ID).Error("outbox success update failed")
			continue
		}
		sent++
	}
	return sent
}

// ChainSenders 依次调用，任意一个失败即整体失败并等待重试
func ChainSenders(senders ...Sender) Sender {
	return func(ctx context.Context, ob *model.SocialOutbox) error {
		var errs []error
		for _, s := range senders {
			if err := s(ctx, ob); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// LogSender 未配置 kafka 时的默认 sender
func LogSender(log logrus.FieldLogger) Sender {
	return func(ctx context.Context, ob *model.SocialOutbox) error {
		log.WithFields(logrus.Fields{
			"event":  ob.EventType,
			"actor":  ob.ActorID,
			"target": ob.TargetID,
		}).Info(ob.Payload)
		return nil
	}
}

// Publisher 消息队列生产者，*pkg.KafkaProducer 实现
type Publisher interface {
	Send(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// KafkaSender 以 actor id 作为 key 投递
func KafkaSender(p Publisher) Sender {
	return func(ctx context.Context, ob *model.SocialOutbox) error {
		return p.Send(ctx, pkg.MakeKeyFromID(ob.ActorID), []byte(ob.Payload), map[string]string{
			"event": ob.EventType,
		})
	}
}

// Mailer 发信接口，*pkg.Mailer 实现
type Mailer interface {
	Enabled() bool
	Send(to, subject, htmlBody string) error
}

// VerificationMailSender 认证审核结果通知邮件，其他事件忽略
func VerificationMailSender(db *gorm.DB, mailer Mailer) Sender {
	users := &mysql.UserRepository{DB: db}
	return func(ctx context.Context, ob *model.SocialOutbox) error {
		if mailer == nil || !mailer.Enabled() {
			return nil
		}
		var approved bool
		switch ob.EventType {
		case model.EventVerificationApprove:
			approved = true
		case model.EventVerificationReject:
		default:
			return nil
		}
		user, err := users.FindByID(ctx, ob.TargetID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if user.Email == "" {
			return nil
		}
		return mailer.Send(user.Email, "身份认证审核结果", pkg.VerificationResultHTML(user.Username, approved))
	}
}
