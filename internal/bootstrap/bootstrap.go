package bootstrap

import (
	"fmt"
	"log"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/qs3c/listing_sub_server/config"
	"github.com/qs3c/listing_sub_server/internal/database"
	"github.com/qs3c/listing_sub_server/internal/pkg/clock"
	"github.com/qs3c/listing_sub_server/internal/pkg/email"
	"github.com/qs3c/listing_sub_server/internal/pkg/lock"
	"github.com/qs3c/listing_sub_server/internal/pkg/metrics"
	"github.com/qs3c/listing_sub_server/internal/pkg/notify"
	"github.com/qs3c/listing_sub_server/internal/pkg/oss"
	"github.com/qs3c/listing_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/listing_sub_server/internal/pkg/queue"
	"github.com/qs3c/listing_sub_server/internal/repository"
	"github.com/qs3c/listing_sub_server/internal/service"
)

// App 各进程共用的依赖
type App struct {
	Cfg   *config.Config
	DB    *gorm.DB
	Redis *redis.Client

	Publisher *pubsub.Publisher
	Notices   *queue.Queue
	Transport notify.Transport
	Metrics   *metrics.Recorder

	UserRepo  *repository.UserRepository
	ClaimRepo *repository.ClaimRepository

	Claims       *service.ClaimService
	Catalog      *service.CatalogService
	Ledger       *service.LedgerService
	Verification *service.VerificationService
	Entitlement  *service.EntitlementService
	Reminders    *service.ReminderService
}

// NewTransport 按提醒通道选择发送实现
func NewTransport(cfg *config.Config) (notify.Transport, error) {
	switch channel := strings.ToLower(cfg.Reminder.Channel); channel {
	case notify.ChannelWhatsApp, notify.ChannelSMS:
		if cfg.Messaging.GatewayURL == "" {
			return nil, fmt.Errorf("channel %s requires messaging.gateway_url", channel)
		}
		return notify.NewGatewayClient(channel, &cfg.Messaging), nil
	case notify.ChannelEmail:
		if cfg.Email.SMTPHost == "" {
			return nil, fmt.Errorf("channel email requires email.smtp_host")
		}
		return email.NewService(&cfg.Email), nil
	case notify.ChannelLog, "":
		return notify.LogTransport{}, nil
	default:
		return nil, fmt.Errorf("unknown reminder channel %q", cfg.Reminder.Channel)
	}
}

// Open 连接数据库和 Redis 并组装服务
func Open(cfg *config.Config) (*App, error) {
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Println("Database connected")

	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	log.Println("Redis connected")

	return Build(cfg, db, rdb, prometheus.DefaultRegisterer)
}

// Build 用已建立的连接组装服务；rdb 为空时不发事件、不入队，扫描锁退化为进程内互斥
func Build(cfg *config.Config, db *gorm.DB, rdb *redis.Client, reg prometheus.Registerer) (*App, error) {
	transport, err := NewTransport(cfg)
	if err != nil {
		return nil, err
	}

	rec, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	app := &App{
		Cfg:       cfg,
		DB:        db,
		Redis:     rdb,
		Transport: transport,
		Metrics:   rec,
		UserRepo:  repository.NewUserRepository(db),
		ClaimRepo: repository.NewClaimRepository(db),
	}

	var events service.EventPublisher
	var notices service.NoticeQueue
	var locker *lock.Locker
	if rdb != nil {
		app.Publisher = pubsub.NewPublisher(rdb)
		app.Notices = queue.NewQueue(rdb, cfg.Queue.NotificationQueue)
		events = app.Publisher
		notices = app.Notices
		locker = lock.NewLocker(rdb)
	}

	var archiver service.ReportArchiver
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Printf("Warning: Failed to init OSS client: %v", err)
		} else {
			archiver = ossClient
			log.Println("OSS client initialized")
		}
	}

	clk := clock.Real{}
	subRepo := repository.NewSubscriptionRepository(db)

	app.Catalog = service.NewCatalogService(repository.NewTierPackageRepository(db), &cfg.Catalog)
	app.Ledger = service.NewLedgerService(subRepo, app.UserRepo, app.Catalog, events, clk)
	app.Claims = service.NewClaimService(app.ClaimRepo, events, rec, clk, cfg)
	app.Verification = service.NewVerificationService(db, app.ClaimRepo, app.Ledger, events, notices, rec, clk)
	app.Entitlement = service.NewEntitlementService(app.Catalog, app.Ledger, &cfg.Entitlement)
	app.Reminders = service.NewReminderService(service.ReminderDeps{
		SubRepo:      subRepo,
		ReminderRepo: repository.NewReminderRepository(db),
		UserRepo:     app.UserRepo,
		Transport:    transport,
		Locker:       locker,
		Events:       events,
		Archiver:     archiver,
		Metrics:      rec,
		Clock:        clk,
	}, &cfg.Reminder)

	return app, nil
}

// Close 关闭连接
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Printf("Warning: close redis: %v", err)
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("Warning: close database: %v", err)
		}
	}
}
