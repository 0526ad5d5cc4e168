package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	VerifiedKeyPrefix = "verify:status:user"
	VerifiedTTL       = 10 * time.Minute
)

// VerifiedCache 认证状态读缓存，"1"=已认证 "0"=未认证
type VerifiedCache struct {
	RDB *redis.Client
	ttl time.Duration
}

func NewVerifiedCache(rdb *redis.Client) *VerifiedCache {
	return &VerifiedCache{RDB: rdb, ttl: VerifiedTTL}
}

func verifiedKey(userID uint64) string {
	return fmt.Sprintf("%s:%d", VerifiedKeyPrefix, userID)
}

// Get 返回 (verified, hit, err)
func (c *VerifiedCache) Get(ctx context.Context, userID uint64) (bool, bool, error) {
	val, err := c.RDB.Get(ctx, verifiedKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

func cacheValue(verified bool) string {
	if verified {
		return "1"
	}
	return "0"
}

// Set 写侧在状态变化后直接覆盖
func (c *VerifiedCache) Set(ctx context.Context, userID uint64, verified bool) error {
	return c.RDB.Set(ctx, verifiedKey(userID), cacheValue(verified), c.ttl).Err()
}

// Fill 读侧回填，只在 key 不存在时写入，不会覆盖写侧刚写入的新值
func (c *VerifiedCache) Fill(ctx context.Context, userID uint64, verified bool) error {
	return c.RDB.SetNX(ctx, verifiedKey(userID), cacheValue(verified), c.ttl).Err()
}

// Invalidate 写缓存失败时的兜底
func (c *VerifiedCache) Invalidate(ctx context.Context, userID uint64) error {
	if err := c.RDB.Del(ctx, verifiedKey(userID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
