package service

import (
	"context"
	"time"

	"Circle_Community/internal/repository/mysql"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// FollowCountReconciler 用户关注计数对账
type FollowCountReconciler struct {
	repo      *mysql.FollowCountReconcilerRepo
	batchSize int
	interval  time.Duration
	log       logrus.FieldLogger
}

func NewFollowCountReconciler(db *gorm.DB, batchSize int, interval time.Duration, log logrus.FieldLogger) *FollowCountReconciler {
	if batchSize <= 0 {
		batchSize = 500
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &FollowCountReconciler{
		repo:      &mysql.FollowCountReconcilerRepo{DB: db},
		batchSize: batchSize,
		interval:  interval,
		log:       log,
	}
}

// Run 对账定时任务启动器
func (r *FollowCountReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.reconcileOnce(ctx)
		}
	}
}

// reconcileOnce 全量扫描一遍用户，返回修正的用户数
func (r *FollowCountReconciler) reconcileOnce(ctx context.Context) int {
	var lastID uint64
	fixed := 0
	for {
		users, next, err := r.repo.ReconcileList(ctx, r.batchSize, lastID)
		if err != nil {
			r.log.WithError(err).Error("reconcile list failed")
			return fixed
		}
		if len(users) == 0 {
			return fixed
		}
		for _, u := range users {
			// 先在follow表查询真实值，再和user表比对更新
			following, err := r.repo.RealFollowings(ctx, u.ID)
			if err != nil {
				continue
			}
			followers, err := r.repo.RealFollowers(ctx, u.ID)
			if err != nil {
				continue
			}
			if following == u.FollowingCount && followers == u.FollowerCount {
				continue
			}
			if err = r.repo.FixCounts(ctx, u.ID, following, followers); err != nil {
				r.log.WithError(err).WithField("user_id", u.ID).Warn("reconcile fix failed")
				continue
			}
			fixed++
		}
		lastID = next
		if ctx.Err() != nil {
			return fixed
		}
	}
}
