package service

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/agencylens/internal/config"
	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/internal/repository"
	"github.com/ifuryst/agencylens/internal/service/cache"
	"github.com/ifuryst/agencylens/internal/service/credential"
	"github.com/ifuryst/agencylens/internal/service/provider"
	"github.com/ifuryst/agencylens/internal/service/syncengine"
	"github.com/ifuryst/agencylens/pkg/retry"
)

// App holds every service built from one config
type App struct {
	DB    *gorm.DB
	Redis *redis.Client

	Sync        *SyncService
	Dispatcher  *Dispatcher
	Access      *AccessService
	Status      *StatusService
	Dashboard   *DashboardService
	Monitoring  *MonitoringService
	Scheduler   *Scheduler
	Housekeeper *Housekeeper
}

func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	platforms, err := cfg.Sync.EnabledPlatforms()
	if err != nil {
		return nil, err
	}

	db, err := NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	rdb, err := NewRedis(&cfg.Redis)
	if err != nil {
		return nil, err
	}
	repos := repository.New(db)

	registry, err := provider.NewDefaultRegistry(platforms, func(p models.Platform) provider.Options {
		pc := cfg.Provider(p)
		return provider.Options{
			BaseURL:           pc.BaseURL,
			Timeout:           cfg.Sync.RequestTimeout,
			RequestsPerSecond: pc.RequestsPerSecond,
			Burst:             pc.Burst,
		}
	}, logger)
	if err != nil {
		return nil, err
	}
	resolver := credential.NewResolver(repos.Credentials, time.Now)

	clock := syncengine.SystemClock
	statusStore := syncengine.NewStatusStore(repos.SyncStatus, clock, logger)
	task := syncengine.NewTask(repos.Mappings, resolver, registry, repos.Metrics, statusStore, clock, syncengine.TaskConfig{
		LookbackDays: cfg.Sync.LookbackDays,
		Retry: retry.Policy{
			MaxAttempts:   cfg.Sync.Retry.MaxAttempts,
			InitialDelay:  cfg.Sync.Retry.InitialDelay,
			BackoffFactor: cfg.Sync.Retry.BackoffFactor,
		},
	}, logger)
	batches := syncengine.NewScheduler(syncengine.SchedulerConfig{
		BatchSize:    cfg.Sync.BatchSize,
		BatchDelay:   cfg.Sync.BatchDelay,
		MaxExecution: cfg.Sync.MaxExecution,
	}, clock, logger)
	engine := syncengine.NewEngine(statusStore, task, batches, platforms, clock, logger)

	var guard RunGuard = NewLocalGuard()
	if rdb != nil {
		guard = NewRedisGuard(rdb, cfg.Sync.MaxExecution+30*time.Second, logger)
	}

	var store cache.Store = cache.NewPostgresStore(repos.Cache)
	if cfg.Cache.Backend == "redis" {
		store = cache.NewRedisStore(rdb)
	}
	cacheService := cache.NewService(store, cfg.Cache.TTLs(), time.Now, logger)

	monitoring := NewMonitoringService(repos.Runs, time.Now, logger)
	syncService := NewSyncService(repos.Companies, engine, guard, monitoring, cfg.Auth.CronSecret, cfg.Sync.MinInterval, logger)

	logger.Info("Services initialized",
		zap.Int("platforms", len(platforms)),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("redis", rdb != nil))

	return &App{
		DB:         db,
		Redis:      rdb,
		Sync:       syncService,
		Dispatcher: NewDispatcher(cfg.Server.PublicURL, cfg.Auth.CronSecret, cfg.Sync.MaxExecution+time.Minute, logger),
		Access:     NewAccessService(repos.Members),
		Status:     NewStatusService(repos.Companies, repos.SyncStatus, repos.Mappings, repos.Credentials, time.Now, logger),
		Dashboard: NewDashboardService(repos.Companies, repos.Metrics, repos.Mappings, resolver, registry,
			cacheService, platforms, time.Now, logger),
		Monitoring:  monitoring,
		Scheduler:   NewScheduler(&cfg.Scheduler, logger, syncService),
		Housekeeper: NewHousekeeper(cacheService, monitoring, cfg.Scheduler.HistoryRetentionDays, cfg.Scheduler.HousekeepingInterval, logger),
	}, nil
}

// Close releases the database and redis connections
func (a *App) Close() error {
	if a.Redis != nil {
		a.Redis.Close()
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
