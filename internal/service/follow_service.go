package service

import (
	"context"
	"fmt"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
	"Circle_Community/internal/repository/mysql"

	"gorm.io/gorm"
)

type FollowService struct {
	repo *mysql.FollowRepository
}

func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{
		repo: &mysql.FollowRepository{DB: db},
	}
}

func checkPair(a, b uint64) error {
	if a == 0 || b == 0 {
		return fmt.Errorf("%w: invalid user id", pkg.ErrValidation)
	}
	if a == b {
		return fmt.Errorf("%w: cannot follow self", pkg.ErrValidation)
	}
	return nil
}

// SendRequest from 向 to 发送关注请求
func (s *FollowService) SendRequest(ctx context.Context, fromID, toID uint64) error {
	if err := checkPair(fromID, toID); err != nil {
		return err
	}
	following, err := s.repo.IsFollowing(ctx, fromID, toID)
	if err != nil {
		return err
	}
	if following {
		return fmt.Errorf("%w: already following", pkg.ErrConflict)
	}
	created, err := s.repo.CreateRequest(ctx, fromID, toID)
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("%w: follow request already pending", pkg.ErrConflict)
	}
	return nil
}

// AcceptRequest 由 to 接受 from 的请求
func (s *FollowService) AcceptRequest(ctx context.Context, fromID, toID uint64) error {
	if err := checkPair(fromID, toID); err != nil {
		return err
	}
	ok, err := s.repo.AcceptRequest(ctx, fromID, toID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no pending follow request", pkg.ErrNotFound)
	}
	return nil
}

// RejectRequest 由 to 拒绝 from 的请求
func (s *FollowService) RejectRequest(ctx context.Context, fromID, toID uint64) error {
	return s.deleteRequest(ctx, fromID, toID)
}

// RemoveRequest 由 from 撤回自己发出的请求
func (s *FollowService) RemoveRequest(ctx context.Context, fromID, toID uint64) error {
	return s.deleteRequest(ctx, fromID, toID)
}

func (s *FollowService) deleteRequest(ctx context.Context, fromID, toID uint64) error {
	if err := checkPair(fromID, toID); err != nil {
		return err
	}
	ok, err := s.repo.DeleteRequest(ctx, fromID, toID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no pending follow request", pkg.ErrNotFound)
	}
	return nil
}

// RemoveFollower 移除粉丝 other -> user
func (s *FollowService) RemoveFollower(ctx context.Context, userID, otherID uint64) error {
	return s.removeEdge(ctx, otherID, userID, "not a follower")
}

// RemoveFollowing 取消关注 user -> other
func (s *FollowService) RemoveFollowing(ctx context.Context, userID, otherID uint64) error {
	return s.removeEdge(ctx, userID, otherID, "not following")
}

func (s *FollowService) removeEdge(ctx context.Context, followerID, followeeID uint64, msg string) error {
	if err := checkPair(followerID, followeeID); err != nil {
		return err
	}
	ok, err := s.repo.DeleteEdge(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", pkg.ErrNotFound, msg)
	}
	return nil
}

// GetFollowers 粉丝 id 列表
func (s *FollowService) GetFollowers(ctx context.Context, userID, cursor uint64, limit int) ([]uint64, uint64, error) {
	rows, next, err := s.repo.ListFollowers(ctx, userID, cursor, limit)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uint64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.FollowerID)
	}
	return ids, next, nil
}

// GetFollowing 关注的人 id 列表
func (s *FollowService) GetFollowing(ctx context.Context, userID, cursor uint64, limit int) ([]uint64, uint64, error) {
	rows, next, err := s.repo.ListFollowings(ctx, userID, cursor, limit)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uint64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.FolloweeID)
	}
	return ids, next, nil
}

// GetRequests 收件箱：发给 user 的待处理请求
func (s *FollowService) GetRequests(ctx context.Context, userID, cursor uint64, limit int) ([]model.FollowRequest, uint64, error) {
	return s.repo.ListRequestsTo(ctx, userID, cursor, limit)
}

// GetSentRequests user 发出且未处理的请求
func (s *FollowService) GetSentRequests(ctx context.Context, userID, cursor uint64, limit int) ([]model.FollowRequest, uint64, error) {
	return s.repo.ListRequestsFrom(ctx, userID, cursor, limit)
}

// Relation a 视角下与 b 的关系
func (s *FollowService) Relation(ctx context.Context, a, b uint64) (*model.Relation, error) {
	if err := checkPair(a, b); err != nil {
		return nil, err
	}
	var rel model.Relation
	var err error
	if rel.Following, err = s.repo.IsFollowing(ctx, a, b); err != nil {
		return nil, err
	}
	if rel.FollowedBy, err = s.repo.IsFollowing(ctx, b, a); err != nil {
		return nil, err
	}
	if rel.Requested, err = s.repo.HasRequest(ctx, a, b); err != nil {
		return nil, err
	}
	if rel.RequestReceived, err = s.repo.HasRequest(ctx, b, a); err != nil {
		return nil, err
	}
	return &rel, nil
}
