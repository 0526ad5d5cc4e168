package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Circle_Community/internal/config"
	"Circle_Community/internal/middleware"
	"Circle_Community/internal/pkg"
	"Circle_Community/internal/repository/mysql"
	"Circle_Community/internal/repository/redis"
	"Circle_Community/internal/router"
	"Circle_Community/internal/service"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := pkg.NewLogger(cfg.LogLevel, cfg.LogJSON)
	pkg.SetSecrets(cfg.AccessSecret, cfg.RefreshSecret)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err = mysql.InitDB(cfg.MySQLDSN); err != nil {
		log.WithError(err).Fatal("connect mysql")
	}
	defer mysql.Close()

	// 自动建表（开发阶段 OK）
	if err = mysql.AutoMigrate(mysql.DB); err != nil {
		log.WithError(err).Fatal("auto migrate")
	}

	// 连接redis
	rdb, err := redis.Init(redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		log.WithError(err).Fatal("connect redis")
	}
	defer redis.Close()

	tokens := redis.NewTokenRepository(rdb)
	users := service.NewUserService(mysql.DB, tokens, cfg.AdminKey)
	follows := service.NewFollowService(mysql.DB)
	verifications := service.NewVerificationService(mysql.DB, redis.NewVerifiedCache(rdb), log.WithField("component", "verification"))
	messages := service.NewMessageService(mysql.DB)

	// outbox 投递：kafka 可选，未配置时只记日志
	senders := []service.Sender{service.LogSender(log.WithField("component", "outbox"))}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			log.WithError(err).Fatal("kafka producer")
		}
		defer producer.Close()
		senders = append(senders, service.KafkaSender(producer))
	}
	mailer := pkg.NewMailer(pkg.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	senders = append(senders, service.VerificationMailSender(mysql.DB, mailer))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relayer := service.NewOutboxRelayer(mysql.DB, service.ChainSenders(senders...), cfg.OutboxBatchSize, cfg.OutboxInterval, log.WithField("component", "outbox"))
	go relayer.Run(ctx)
	reconciler := service.NewFollowCountReconciler(mysql.DB, cfg.ReconcileBatch, cfg.ReconcileInterval, log.WithField("component", "reconciler"))
	go reconciler.Run(ctx)

	limiter := middleware.NewRateLimiter(cfg.MessageRatePerSecond, cfg.MessageRateBurst)
	go func() {
		t := time.NewTicker(5 * time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				limiter.Cleanup()
			}
		}
	}()

	// Gin
	r := router.InitRouter(router.Deps{
		Users:         users,
		Follows:       follows,
		Verifications: verifications,
		Messages:      messages,
		Tokens:        tokens,
		SendLimiter:   limiter,
		Log:           log,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	log.Info("bye")
}
