package mysql

import (
	"context"

	"Circle_Community/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

// FindByIDs 批量查询，用于 id -> username 转换
func (r *UserRepository) FindByIDs(ctx context.Context, ids []uint64) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []model.User
	err := r.DB.WithContext(ctx).Select("id", "username").Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// List 用户目录，游标分页，不返回密码
func (r *UserRepository) List(ctx context.Context, cursor uint64, limit int) ([]model.User, uint64, error) {
	q := r.DB.WithContext(ctx).Model(&model.User{}).
		Select("id", "username", "role", "follower_count", "following_count", "created_at")
	return pageByID(q, cursor, limit, func(u model.User) uint64 { return u.ID })
}

func (r *UserRepository) UpdatePassword(ctx context.Context, user *model.User, newPassword string) error {
	return r.DB.WithContext(ctx).Model(user).Update("password", newPassword).Error
}

// UpdateUsername 改名；关系数据都按 id 存储，不需要迁移
func (r *UserRepository) UpdateUsername(ctx context.Context, userID uint64, username string) (bool, error) {
	var updated bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).Where("id = ?", userID).Update("username", username)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		updated = true
		return insertOutbox(tx, model.EventUserRename, userID, userID, map[string]any{"username": username})
	})
	return updated, err
}

// Delete 注销用户，同事务清理关注、请求、认证和私信，并修正对方的计数
func (r *UserRepository) Delete(ctx context.Context, userID uint64) (bool, error) {
	var deleted bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", userID).Delete(&model.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true

		if err := tx.Model(&model.User{}).
			Where("id IN (?)", tx.Model(&model.Follow{}).Select("followee_id").Where("follower_id = ?", userID)).
			UpdateColumn("follower_count", gorm.Expr("CASE WHEN follower_count > 0 THEN follower_count - 1 ELSE 0 END")).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.User{}).
			Where("id IN (?)", tx.Model(&model.Follow{}).Select("follower_id").Where("followee_id = ?", userID)).
			UpdateColumn("following_count", gorm.Expr("CASE WHEN following_count > 0 THEN following_count - 1 ELSE 0 END")).Error; err != nil {
			return err
		}

		cleanup := []struct {
			model any
			where string
		}{
			{&model.Follow{}, "follower_id = ? OR followee_id = ?"},
			{&model.FollowRequest{}, "from_id = ? OR to_id = ?"},
			{&model.Message{}, "sender_id = ? OR recipient_id = ?"},
		}
		for _, c := range cleanup {
			if err := tx.Where(c.where, userID, userID).Delete(c.model).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.VerificationRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.VerifiedRecord{}).Error; err != nil {
			return err
		}
		return insertOutbox(tx, model.EventUserDelete, userID, userID, nil)
	})
	return deleted, err
}
