package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	Client *redis.Client
)

// Options 连接参数，来自 config
type Options struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Init 建立客户端并 Ping，失败时返回错误由调用方决定是否退出
func Init(opt Options) (*redis.Client, error) {
	if opt.PoolSize <= 0 {
		opt.PoolSize = 10
	}
	Client = redis.NewClient(&redis.Options{
		Addr:         opt.Addr,
		Password:     opt.Password,
		DB:           opt.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     opt.PoolSize,
		MinIdleConns: opt.PoolSize / 5,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := Client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return Client, nil
}

func Close() error {
	if Client == nil {
		return nil
	}
	return Client.Close()
}
