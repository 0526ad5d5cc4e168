package model

import "time"

const (
	VerificationPending  = "pending"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

// VerificationRequest 每个用户至多一条，处理后保留终态，重新申请时覆盖
type VerificationRequest struct {
	ID          uint64 `gorm:"primaryKey"`
	UserID      uint64 `gorm:"not null;uniqueIndex:uk_verification_user"`
	Credentials string `gorm:"type:text;not null"`
	Status      string `gorm:"size:16;not null;default:'pending';index:idx_verification_status"`
	ReviewerID  uint64 `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// VerifiedRecord 存在即已认证
type VerifiedRecord struct {
	ID         uint64 `gorm:"primaryKey"`
	UserID     uint64 `gorm:"not null;uniqueIndex:uk_verified_user"`
	ApprovedBy uint64 `gorm:"not null"`
	CreatedAt  time.Time
}
