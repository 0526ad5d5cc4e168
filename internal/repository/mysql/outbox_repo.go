package mysql

import (
	"context"
	"encoding/json"
	"time"

	"Circle_Community/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

// 插入outbox事件表，必须在业务事务内调用
func insertOutbox(tx *gorm.DB, event string, actor, target uint64, extra map[string]any) error {
	body := map[string]any{
		"event_id":   uuid.NewString(),
		"event":      event,
		"event_time": time.Now().UTC().Format(time.RFC3339Nano),
		"actor":      actor,
		"target":     target,
	}
	for k, v := range extra {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	ob := &model.SocialOutbox{
		EventType: event,
		ActorID:   actor,
		TargetID:  target,
		Payload:   string(payload),
		Status:    model.OutboxPending,
	}
	return tx.Create(ob).Error
}

// List 查询待投递（含可重试的失败）事件
func (r *OutboxRepository) List(ctx context.Context, batchSize, maxRetry int) ([]model.SocialOutbox, error) {
	var list []model.SocialOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = ? OR (status = ? AND retry < ?)", model.OutboxPending, model.OutboxFailed, maxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate outbox记录消息失败重试
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.SocialOutbox{}).Where("id=?", id).
		Updates(map[string]any{"status": model.OutboxFailed, "retry": gorm.Expr("retry + 1")}).Error
}

// SuccessUpdate outbox成功记录消息更新
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.SocialOutbox{}).Where("id=?", id).
		Update("status", model.OutboxSent).Error
}
