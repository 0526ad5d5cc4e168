package mysql

import (
	"context"
	"errors"
	"time"

	"Circle_Community/internal/model"

	"gorm.io/gorm"
)

type MessageRepository struct {
	DB *gorm.DB
}

// Create 追加一条私信，id 由数据库分配
func (r *MessageRepository) Create(ctx context.Context, msg *model.Message) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return insertOutbox(tx, model.EventMessageSend, msg.SenderID, msg.RecipientID, map[string]any{
			"message_id": msg.ID,
		})
	})
}

// ListForUser 与用户相关的全部私信，按发送顺序
func (r *MessageRepository) ListForUser(ctx context.Context, userID uint64) ([]model.Message, error) {
	var list []model.Message
	err := r.DB.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	return list, err
}

// ListBetween 两个用户之间的会话
func (r *MessageRepository) ListBetween(ctx context.Context, a, b uint64) ([]model.Message, error) {
	var list []model.Message
	err := r.DB.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", a, b, b, a).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	return list, err
}

// FindExact 按 (sender, recipient, timestamp) 精确查找，多条时取 id 最小的
func (r *MessageRepository) FindExact(ctx context.Context, senderID, recipientID uint64, at time.Time) (*model.Message, error) {
	var msg model.Message
	err := r.DB.WithContext(ctx).
		Where("sender_id = ? AND recipient_id = ? AND created_at = ?", senderID, recipientID, at).
		Order("id ASC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &msg, err
}

// Delete 只有发送者可以删除
func (r *MessageRepository) Delete(ctx context.Context, senderID, messageID uint64) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND sender_id = ?", messageID, senderID).
		Delete(&model.Message{})
	return res.RowsAffected > 0, res.Error
}
