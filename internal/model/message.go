package model

import "time"

// Message 私信，只追加不修改
type Message struct {
	ID          uint64    `gorm:"primaryKey"`
	SenderID    uint64    `gorm:"not null;index:idx_message_sender_time,priority:1"`
	RecipientID uint64    `gorm:"not null;index:idx_message_recipient_time,priority:1"`
	Content     string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"precision:6;index:idx_message_sender_time,priority:2;index:idx_message_recipient_time,priority:2"`
}
