package mysql

import (
	"context"
	"errors"

	"Circle_Community/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VerificationRepository struct {
	DB *gorm.DB
}

// UpsertPending 新建或把终态申请重置为 pending；已有 pending 或已认证时 created=false
func (r *VerificationRepository) UpsertPending(ctx context.Context, userID uint64, credentials string) (bool, error) {
	db := r.DB.WithContext(ctx)
	req := model.VerificationRequest{
		UserID:      userID,
		Credentials: credentials,
		Status:      model.VerificationPending,
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&req)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	// 覆盖旧的 approved/rejected 申请；不覆盖 pending，已认证（存在 verified 记录）时也不覆盖
	verified := db.Model(&model.VerifiedRecord{}).Select("1").Where("user_id=?", userID)
	upd := db.Model(&model.VerificationRequest{}).
		Where("user_id=? AND status<>?", userID, model.VerificationPending).
		Where("NOT EXISTS (?)", verified).
		Updates(map[string]any{
			"credentials": credentials,
			"status":      model.VerificationPending,
			"reviewer_id": 0,
		})
	return upd.RowsAffected > 0, upd.Error
}

// Resolve pending -> approved/rejected，同一用户并发审核只有一个成功
func (r *VerificationRepository) Resolve(ctx context.Context, userID, reviewerID uint64, approve bool) (bool, error) {
	status := model.VerificationRejected
	event := model.EventVerificationReject
	if approve {
		status = model.VerificationApproved
		event = model.EventVerificationApprove
	}
	var resolved bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.VerificationRequest{}).
			Where("user_id=? AND status=?", userID, model.VerificationPending).
			Updates(map[string]any{"status": status, "reviewer_id": reviewerID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		resolved = true
		if approve {
			rec := model.VerifiedRecord{UserID: userID, ApprovedBy: reviewerID}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoNothing: true,
			}).Create(&rec).Error; err != nil {
				return err
			}
		}
		return insertOutbox(tx, event, reviewerID, userID, nil)
	})
	return resolved, err
}

// DeleteVerified 撤销认证
func (r *VerificationRepository) DeleteVerified(ctx context.Context, userID, operatorID uint64) (bool, error) {
	var removed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id=?", userID).Delete(&model.VerifiedRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return insertOutbox(tx, model.EventVerificationRevoke, operatorID, userID, nil)
	})
	return removed, err
}

func (r *VerificationRepository) IsVerified(ctx context.Context, userID uint64) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.VerifiedRecord{}).Where("user_id=?", userID).Count(&n).Error
	return n > 0, err
}

// FindRequest 查询用户的申请，不存在时返回 gorm.ErrRecordNotFound
func (r *VerificationRepository) FindRequest(ctx context.Context, userID uint64) (*model.VerificationRequest, error) {
	var req model.VerificationRequest
	err := r.DB.WithContext(ctx).Where("user_id=?", userID).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &req, err
}

// ListPending 待审核申请，游标分页
func (r *VerificationRepository) ListPending(ctx context.Context, cursor uint64, limit int) ([]model.VerificationRequest, uint64, error) {
	q := r.DB.WithContext(ctx).Model(&model.VerificationRequest{}).Where("status=?", model.VerificationPending)
	return pageByID(q, cursor, limit, func(v model.VerificationRequest) uint64 { return v.ID })
}

// ListVerified 已认证用户，游标分页
func (r *VerificationRepository) ListVerified(ctx context.Context, cursor uint64, limit int) ([]model.VerifiedRecord, uint64, error) {
	q := r.DB.WithContext(ctx).Model(&model.VerifiedRecord{})
	return pageByID(q, cursor, limit, func(v model.VerifiedRecord) uint64 { return v.ID })
}
