package model

import "time"

// FollowRequest 待处理的关注请求，处理后直接删除
type FollowRequest struct {
	ID        uint64 `gorm:"primaryKey"`
	FromID    uint64 `gorm:"not null;uniqueIndex:uk_request_pair,priority:1"`
	ToID      uint64 `gorm:"not null;uniqueIndex:uk_request_pair,priority:2;index:idx_request_to"`
	CreatedAt time.Time
}

func (FollowRequest) TableName() string {
	return "follow_request"
}

// Follow 关注边 follower -> followee
type Follow struct {
	ID         uint64 `gorm:"primaryKey"`
	FollowerID uint64 `gorm:"not null;uniqueIndex:uk_follow_pair,priority:1"`
	FolloweeID uint64 `gorm:"not null;uniqueIndex:uk_follow_pair,priority:2;index:idx_followee_id"`
	CreatedAt  time.Time
}

// TableName sets table name for Follow
func (Follow) TableName() string {
	return "follow"
}

// Relation 两个用户之间的关系视图
type Relation struct {
	Following       bool `json:"following"`
	FollowedBy      bool `json:"followed_by"`
	Requested       bool `json:"requested"`
	RequestReceived bool `json:"request_received"`
}

const (
	EventFollowRequest       = "follow_request"
	EventFollowAccept        = "follow_accept"
	EventUnfollow            = "unfollow"
	EventVerificationApprove = "verify_approve"
	EventVerificationReject  = "verify_reject"
	EventVerificationRevoke  = "verify_revoke"
	EventMessageSend         = "message_send"
	EventUserRename          = "user_rename"
	EventUserDelete          = "user_delete"
)

const (
	OutboxPending = 0
	OutboxSent    = 1
	OutboxFailed  = 2
)

// SocialOutbox 社交事件表，与业务写入同事务
type SocialOutbox struct {
	ID        uint64 `gorm:"primaryKey"`
	EventType string `gorm:"size:16;not null"`
	ActorID   uint64 `gorm:"not null"`
	TargetID  uint64 `gorm:"not null"`
	Payload   string `gorm:"type:text;not null"`
	Status    int8   `gorm:"not null;default:0;index:idx_outbox_status"`
	Retry     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SocialOutbox) TableName() string { return "social_outbox" }
