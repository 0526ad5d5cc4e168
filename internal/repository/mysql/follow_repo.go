package mysql

import (
	"context"

	"Circle_Community/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FollowRepository struct {
	DB *gorm.DB
}

type FollowCountReconcilerRepo struct {
	DB *gorm.DB
}

// Pair 对账消息结构体
type Pair struct {
	ID             uint64
	FollowingCount int64
	FollowerCount  int64
}

// CreateRequest 条件插入关注请求，(from,to) 已存在时 created=false
func (r *FollowRepository) CreateRequest(ctx context.Context, fromID, toID uint64) (bool, error) {
	var created bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req := model.FollowRequest{FromID: fromID, ToID: toID}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "from_id"}, {Name: "to_id"}},
			DoNothing: true,
		}).Create(&req)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return insertOutbox(tx, model.EventFollowRequest, fromID, toID, nil)
	})
	return created, err
}

// AcceptRequest 删除请求并建立关注边；请求不存在时 accepted=false
func (r *FollowRepository) AcceptRequest(ctx context.Context, fromID, toID uint64) (bool, error) {
	var accepted bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 删除成功者唯一，并发的 accept/reject/cancel 只有一个能拿到这一行
		res := tx.Where("from_id=? AND to_id=?", fromID, toID).Delete(&model.FollowRequest{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		accepted = true

		edge := model.Follow{FollowerID: fromID, FolloweeID: toID}
		ins := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "follower_id"}, {Name: "followee_id"}},
			DoNothing: true,
		}).Create(&edge)
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected > 0 {
			if err := r.adjustCounts(tx, fromID, toID, +1); err != nil {
				return err
			}
		}
		return insertOutbox(tx, model.EventFollowAccept, fromID, toID, nil)
	})
	return accepted, err
}

// DeleteRequest 拒绝或撤回请求
func (r *FollowRepository) DeleteRequest(ctx context.Context, fromID, toID uint64) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("from_id=? AND to_id=?", fromID, toID).
		Delete(&model.FollowRequest{})
	return res.RowsAffected > 0, res.Error
}

// DeleteEdge 删除关注边 follower -> followee
func (r *FollowRepository) DeleteEdge(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	var removed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id=? AND followee_id=?", followerID, followeeID).Delete(&model.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		if err := r.adjustCounts(tx, followerID, followeeID, -1); err != nil {
			return err
		}
		return insertOutbox(tx, model.EventUnfollow, followerID, followeeID, nil)
	})
	return removed, err
}

// IsFollowing 判断是否关注
func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id=? AND followee_id=?", followerID, followeeID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasRequest 判断是否存在待处理请求
func (r *FollowRepository) HasRequest(ctx context.Context, fromID, toID uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).
		Model(&model.FollowRequest{}).
		Where("from_id=? AND to_id=?", fromID, toID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListFollowings 获取关注的人
func (r *FollowRepository) ListFollowings(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	q := r.DB.WithContext(ctx).Model(&model.Follow{}).Where("follower_id=?", userID)
	return pageByID(q, cursor, limit, func(f model.Follow) uint64 { return f.ID })
}

// ListFollowers 获取粉丝列表
func (r *FollowRepository) ListFollowers(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	q := r.DB.WithContext(ctx).Model(&model.Follow{}).Where("followee_id=?", userID)
	return pageByID(q, cursor, limit, func(f model.Follow) uint64 { return f.ID })
}

// ListRequestsTo 收到的待处理请求
func (r *FollowRepository) ListRequestsTo(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.FollowRequest, uint64, error) {
	q := r.DB.WithContext(ctx).Model(&model.FollowRequest{}).Where("to_id=?", userID)
	return pageByID(q, cursor, limit, func(f model.FollowRequest) uint64 { return f.ID })
}

// ListRequestsFrom 发出的待处理请求
func (r *FollowRepository) ListRequestsFrom(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.FollowRequest, uint64, error) {
	q := r.DB.WithContext(ctx).Model(&model.FollowRequest{}).Where("from_id=?", userID)
	return pageByID(q, cursor, limit, func(f model.FollowRequest) uint64 { return f.ID })
}

// adjustCounts 自动调整关注者或粉丝数量，不低于 0
func (r *FollowRepository) adjustCounts(tx *gorm.DB, followerID, followeeID uint64, delta int64) error {
	if err := tx.Model(&model.User{}).
		Where("id=?", followerID).
		UpdateColumn("following_count", gorm.Expr("CASE WHEN following_count + ? < 0 THEN 0 ELSE following_count + ? END", delta, delta)).Error; err != nil {
		return err
	}
	return tx.Model(&model.User{}).
		Where("id=?", followeeID).
		UpdateColumn("follower_count", gorm.Expr("CASE WHEN follower_count + ? < 0 THEN 0 ELSE follower_count + ? END", delta, delta)).Error
}

// ReconcileList 异步对账用户批量查询
func (r *FollowCountReconcilerRepo) ReconcileList(ctx context.Context, batchSize int, lastID uint64) ([]Pair, uint64, error) {
	var list []Pair
	if err := r.DB.WithContext(ctx).Model(&model.User{}).
		Select("id", "following_count", "follower_count").
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, lastID, err
	}
	if len(list) == 0 {
		return nil, lastID, nil
	}
	return list, list[len(list)-1].ID, nil
}

// RealFollowers 真实粉丝数量
func (r *FollowCountReconcilerRepo) RealFollowers(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Follow{}).Where("followee_id=?", userID).Count(&n).Error
	return n, err
}

// RealFollowings 真实关注的人数量
func (r *FollowCountReconcilerRepo) RealFollowings(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Follow{}).Where("follower_id=?", userID).Count(&n).Error
	return n, err
}

// FixCounts 修正计数
func (r *FollowCountReconcilerRepo) FixCounts(ctx context.Context, userID uint64, following, followers int64) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id=?", userID).
		UpdateColumns(map[string]any{"following_count": following, "follower_count": followers}).Error
}
