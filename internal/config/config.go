package config

import (
	"errors"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR,default=:8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
	LogJSON  bool   `env:"LOG_JSON,default=false"`

	MySQLDSN string `env:"MYSQL_DSN,default=user:password@tcp(127.0.0.1:3306)/circle?charset=utf8mb4&parseTime=True&loc=UTC"`

	RedisAddr     string `env:"REDIS_ADDR,default=127.0.0.1:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE,default=10"`

	KafkaBrokers []string `env:"KAFKA_BROKERS"`
	KafkaTopic   string   `env:"KAFKA_TOPIC,default=social-events"`

	AccessSecret  string `env:"JWT_ACCESS_SECRET,default=secret-key"`
	RefreshSecret string `env:"JWT_REFRESH_SECRET,default=refresh-key"`

	// 注册时携带该 key 的账号为管理员
	AdminKey string `env:"ADMIN_KEY"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM,default=NoReply <no-reply@example.com>"`

	MessageRatePerSecond float64 `env:"MESSAGE_RATE_PER_SECOND,default=2"`
	MessageRateBurst     int     `env:"MESSAGE_RATE_BURST,default=10"`

	OutboxInterval    time.Duration `env:"OUTBOX_INTERVAL,default=1s"`
	OutboxBatchSize   int           `env:"OUTBOX_BATCH_SIZE,default=200"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL,default=5m"`
	ReconcileBatch    int           `env:"RECONCILE_BATCH_SIZE,default=500"`
}

// Load 先读 .env（可选），再按环境变量解码
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, err
	}
	return &cfg, nil
}
