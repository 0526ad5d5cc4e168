package model

import "time"

const (
	RoleUser  = 0
	RoleAdmin = 1
)

type User struct {
	ID             uint64 `gorm:"primaryKey"`
	Username       string `gorm:"uniqueIndex;size:32;not null"`
	Password       string `gorm:"size:255;not null"`
	Role           int    `gorm:"not null;default:0"`
	Email          string `gorm:"size:64"`
	FollowerCount  int64  `gorm:"not null;default:0"`
	FollowingCount int64  `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Actor 当前请求的操作者，由会话中间件解析后显式传入各业务调用
type Actor struct {
	UserID   uint64
	Username string
	Role     int
}

func (a Actor) IsAdmin() bool {
	return a.Role >= RoleAdmin
}

// All 需要建表的模型
func All() []any {
	return []any{
		&User{},
		&FollowRequest{},
		&Follow{},
		&VerificationRequest{},
		&VerifiedRecord{},
		&Message{},
		&SocialOutbox{},
	}
}
