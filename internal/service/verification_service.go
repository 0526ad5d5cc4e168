package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
	"Circle_Community/internal/repository/mysql"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// VerifiedCache 认证状态缓存，redis 实现见 repository/redis
type VerifiedCache interface {
	Get(ctx context.Context, userID uint64) (verified bool, hit bool, err error)
	// Fill 仅在缺失时写入（SETNX）
	Fill(ctx context.Context, userID uint64, verified bool) error
	Set(ctx context.Context, userID uint64, verified bool) error
	Invalidate(ctx context.Context, userID uint64) error
}

// VerificationService 身份认证流程，管理员校验在本层完成
type VerificationService struct {
	repo  *mysql.VerificationRepository
	cache VerifiedCache
	log   logrus.FieldLogger
}

func NewVerificationService(db *gorm.DB, cache VerifiedCache, log logrus.FieldLogger) *VerificationService {
	return &VerificationService{
		repo:  &mysql.VerificationRepository{DB: db},
		cache: cache,
		log:   log,
	}
}

func requireAdmin(actor model.Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin only", pkg.ErrForbidden)
	}
	return nil
}

// CreateRequest 提交认证申请；被拒或被撤销后允许重新申请
func (s *VerificationService) CreateRequest(ctx context.Context, actor model.Actor, credentials string) (*model.VerificationRequest, error) {
	credentials = strings.TrimSpace(credentials)
	if credentials == "" {
		return nil, fmt.Errorf("%w: missing credentials", pkg.ErrValidation)
	}
	verified, err := s.repo.IsVerified(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if verified {
		return nil, fmt.Errorf("%w: user is already verified", pkg.ErrConflict)
	}
	created, err := s.repo.UpsertPending(ctx, actor.UserID, credentials)
	if err != nil {
		return nil, err
	}
	if !created {
		// 条件更新失败：可能是并发审核刚刚通过
		if verified, _ = s.repo.IsVerified(ctx, actor.UserID); verified {
			return nil, fmt.Errorf("%w: user is already verified", pkg.ErrConflict)
		}
		return nil, fmt.Errorf("%w: verification request already pending", pkg.ErrConflict)
	}
	return s.repo.FindRequest(ctx, actor.UserID)
}

// GetOwnRequest 查看自己的申请
func (s *VerificationService) GetOwnRequest(ctx context.Context, actor model.Actor) (*model.VerificationRequest, error) {
	req, err := s.repo.FindRequest(ctx, actor.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no verification request", pkg.ErrNotFound)
	}
	return req, err
}

func (s *VerificationService) Approve(ctx context.Context, actor model.Actor, userID uint64) error {
	return s.resolve(ctx, actor, userID, true)
}

func (s *VerificationService) Reject(ctx context.Context, actor model.Actor, userID uint64) error {
	return s.resolve(ctx, actor, userID, false)
}

func (s *VerificationService) resolve(ctx context.Context, actor model.Actor, userID uint64, approve bool) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	ok, err := s.repo.Resolve(ctx, userID, actor.UserID, approve)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no pending verification request", pkg.ErrNotFound)
	}
	if approve {
		s.store(ctx, userID, true)
	}
	return nil
}

// DeleteVerified 撤销认证
func (s *VerificationService) DeleteVerified(ctx context.Context, actor model.Actor, userID uint64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	ok, err := s.repo.DeleteVerified(ctx, userID, actor.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user is not verified", pkg.ErrNotFound)
	}
	s.store(ctx, userID, false)
	return nil
}

// IsVerified 先读缓存再回源，不向调用方返回错误
func (s *VerificationService) IsVerified(ctx context.Context, userID uint64) bool {
	if s.cache != nil {
		if v, hit, err := s.cache.Get(ctx, userID); err == nil && hit {
			return v
		}
	}
	v, err := s.repo.IsVerified(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("verified lookup failed")
		return false
	}
	if s.cache != nil {
		_ = s.cache.Fill(ctx, userID, v)
	}
	return v
}

// ListVerified 管理员查看已认证用户
func (s *VerificationService) ListVerified(ctx context.Context, actor model.Actor, cursor uint64, limit int) ([]model.VerifiedRecord, uint64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	return s.repo.ListVerified(ctx, cursor, limit)
}

// ListPendingRequests 管理员查看待审核申请
func (s *VerificationService) ListPendingRequests(ctx context.Context, actor model.Actor, cursor uint64, limit int) ([]model.VerificationRequest, uint64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	return s.repo.ListPending(ctx, cursor, limit)
}

// store 状态变化后直接写缓存，写失败再尝试删除
func (s *VerificationService) store(ctx context.Context, userID uint64, verified bool) {
	if s.cache == nil {
		return
	}
	err := s.cache.Set(ctx, userID, verified)
	if err == nil {
		return
	}
	s.log.WithError(err).WithField("user_id", userID).Warn("verified cache write failed")
	if err = s.cache.Invalidate(ctx, userID); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("verified cache invalidate failed")
	}
}
