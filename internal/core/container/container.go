package container

import (
	"context"
	"database/sql"
	"fmt"

	"aanganwadi/internal/allocation"
	"aanganwadi/internal/appeals"
	auditLogRepo "aanganwadi/internal/auditlog"
	"aanganwadi/internal/core/config"
	"aanganwadi/internal/inventory"
	"aanganwadi/internal/notifications"
	"aanganwadi/internal/rate_limiter"
	"aanganwadi/internal/repository"
	"aanganwadi/internal/users"
	"aanganwadi/internal/watcher"
	"aanganwadi/pkg/auditlog"
	"aanganwadi/pkg/validation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Container struct {
	Repository *repository.Repository
	AuditLog   *auditlog.Auditlog
	Registry   *prometheus.Registry
	Redis      *redis.Client

	Engine         *allocation.Engine
	Appeals        appeals.Repository
	Pusher         notifications.Pusher
	Limiter        *rate_limiter.RateLimiter
	WatcherMetrics *watcher.Metrics

	UserHandler         *users.UsersHandler
	InventoryHandler    *inventory.InventoryHandler
	AppealHandler       *appeals.AppealHandler
	NotificationHandler *notifications.NotificationHandler
}

func NewAppContainer(ctx context.Context, db *sql.DB, cfg *config.Config, log *zap.Logger) (*Container, error) {
	repo := repository.NewRepository(db)
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	auditLogRepo := auditLogRepo.NewRepository(repo)
	auditLog := auditlog.NewAuditLog(auditLogRepo, log.Named("auditlog"))
	validator := validation.New()

	userRepo := users.NewRepository(repo)
	userHandler := users.NewHandler(userRepo)

	inventoryRepo := inventory.NewRepository(repo)
	inventoryService := inventory.NewService(inventoryRepo, auditLog, validator, log)
	inventoryHandler := inventory.NewInventoryHandler(inventoryService, auditLogRepo)

	var pusher notifications.Pusher = notifications.NewLogPusher(log.Named("push"))
	if cfg.PushEnabled() {
		p, err := notifications.NewPubSubPusher(ctx, cfg.PubSubProjectID, cfg.PubSubTopic, cfg.PubSubCredentialsJSON)
		if err != nil {
			return nil, fmt.Errorf("push transport: %w", err)
		}
		pusher = p
	}
	notificationRepo := notifications.NewRepository(repo)
	notifier := notifications.NewNotifier(notificationRepo, pusher, userRepo, log)
	notificationHandler := notifications.NewNotificationHandler(notificationRepo)

	var (
		rdb    *redis.Client
		locker allocation.Locker = allocation.NoopLocker{}
	)
	if cfg.LockEnabled() {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		locker = allocation.NewRedisLocker(rdb, cfg.AllocationLockTTL)
	}
	engine := allocation.NewEngine(
		inventoryRepo,
		allocation.NewMarkerStore(repo),
		locker,
		notifier,
		allocation.NewMetrics(registry),
		log,
	)

	appealRepo := appeals.NewRepository(repo)
	limiter := rate_limiter.NewRateLimiter(cfg.AppealSubmitLimit, cfg.AppealSubmitWindow)
	appealService := appeals.NewService(appealRepo, userRepo, engine, notifier, limiter, auditLog, validator, log)
	appealHandler := appeals.NewAppealHandler(appealService, auditLogRepo)

	return &Container{
		Repository:          repo,
		AuditLog:            auditLog,
		Registry:            registry,
		Redis:               rdb,
		Engine:              engine,
		Appeals:             appealRepo,
		Pusher:              pusher,
		Limiter:             limiter,
		WatcherMetrics:      watcher.NewMetrics(registry),
		UserHandler:         userHandler,
		InventoryHandler:    inventoryHandler,
		AppealHandler:       appealHandler,
		NotificationHandler: notificationHandler,
	}, nil
}

// NewWatcher builds the change-feed watcher; it is not started.
func (c *Container) NewWatcher(dbURL string, log *zap.Logger) (*watcher.AppealWatcher, error) {
	feed, err := watcher.NewPQFeed(dbURL, watcher.AppealStatusChannel, log)
	if err != nil {
		return nil, err
	}
	return watcher.NewAppealWatcher(feed, c.Appeals, c.Engine, c.WatcherMetrics, log), nil
}

// Close releases everything the container opened.
func (c *Container) Close() {
	c.Limiter.Stop()
	_ = c.Pusher.Close()
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
