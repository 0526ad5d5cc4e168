package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
	"Circle_Community/internal/repository/mysql"

	"gorm.io/gorm"
)

const MaxMessageLength = 4000

type MessageService struct {
	repo *mysql.MessageRepository
	now  func() time.Time
}

func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{
		repo: &mysql.MessageRepository{DB: db},
		now:  time.Now,
	}
}

// 统一精度到微秒，和 datetime(6) 一致，按时间戳精确查找时才能命中
func (s *MessageService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Send 追加一条私信
func (s *MessageService) Send(ctx context.Context, senderID, recipientID uint64, content string) (*model.Message, error) {
	if senderID == 0 || recipientID == 0 {
		return nil, fmt.Errorf("%w: invalid user id", pkg.ErrValidation)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty message", pkg.ErrValidation)
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, fmt.Errorf("%w: message too long", pkg.ErrValidation)
	}
	msg := &model.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		CreatedAt:   s.timestamp(),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListForUser 收发的全部私信
func (s *MessageService) ListForUser(ctx context.Context, userID uint64) ([]model.Message, error) {
	return s.repo.ListForUser(ctx, userID)
}

// ListBetween 两人之间的会话
func (s *MessageService) ListBetween(ctx context.Context, a, b uint64) ([]model.Message, error) {
	return s.repo.ListBetween(ctx, a, b)
}

// Delete 发送者按 id 删除
func (s *MessageService) Delete(ctx context.Context, senderID, messageID uint64) error {
	ok, err := s.repo.Delete(ctx, senderID, messageID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no such message", pkg.ErrNotFound)
	}
	return nil
}

// DeleteAt 按 (sender, recipient, timestamp) 定位后按 id 删除
func (s *MessageService) DeleteAt(ctx context.Context, senderID, recipientID uint64, at time.Time) error {
	msg, err := s.repo.FindExact(ctx, senderID, recipientID, at.UTC())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: no such message", pkg.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return s.Delete(ctx, senderID, msg.ID)
}
