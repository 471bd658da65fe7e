// Package app wires repositories, services and transports for the API server
// and the lmsctl commands.
package app

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grades-api/internal/repository"
	"github.com/noah-isme/lms-grades-api/internal/service"
	"github.com/noah-isme/lms-grades-api/pkg/cache"
	"github.com/noah-isme/lms-grades-api/pkg/config"
	"github.com/noah-isme/lms-grades-api/pkg/database"
	"github.com/noah-isme/lms-grades-api/pkg/jobs"
)

// App holds the long-lived dependencies of the process.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB    *sqlx.DB
	Redis *redis.Client
	NATS  *nats.Conn

	Metrics      *service.MetricsService
	Cache        *service.CacheService
	Auth         *service.AuthService
	Sites        *service.SiteService
	Commerce     *service.CommerceConfigurationService
	Signal       *service.GradesUpdatedSignal
	Blocks       *service.CourseBlocksService
	Grades       *service.CourseGradeFactory
	CourseGrades *service.CourseGradeService
	Offline      *service.OfflineGradeService
	Queue        *jobs.Queue
}

// New connects to Postgres, and to Redis and NATS when configured, and builds
// every service. Redis and NATS are optional: failures are logged and the
// app runs without them.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewPostgres(cfg.Database, cfg.Tracing.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a := &App{Config: cfg, Logger: logger, DB: db}

	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis, cfg.Tracing.ServiceName)
		if err != nil {
			logger.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			a.Redis = client
		}
	}

	if cfg.Events.NATSURL != "" {
		conn, err := nats.Connect(cfg.Events.NATSURL, nats.Name(cfg.Tracing.ServiceName))
		if err != nil {
			logger.Warn("nats unavailable, grade events stay local", zap.Error(err))
		} else {
			a.NATS = conn
		}
	}

	a.build()
	return a, nil
}

func (a *App) build() {
	cfg, logger := a.Config, a.Logger
	validate := validator.New()

	siteRepo := repository.NewSiteRepository(a.DB)
	courseRepo := repository.NewCourseRepository(a.DB)
	userRepo := repository.NewUserRepository(a.DB)
	offlineRepo := repository.NewOfflineGradeRepository(a.DB)

	a.Metrics = service.NewMetricsService()
	a.Cache = service.NewCacheService(repository.NewCacheRepository(a.Redis, logger), a.Metrics, cfg.Grades.CacheTTL, logger, a.Redis != nil)
	a.Auth = service.NewAuthService(logger, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret})
	a.Sites = service.NewSiteService(siteRepo, logger)
	a.Commerce = service.NewCommerceConfigurationService(siteRepo, repository.NewCommerceConfigurationRepository(a.DB), validate, logger)

	a.Signal = service.NewGradesUpdatedSignal(logger)
	var publisher *service.GradeEventPublisher
	if a.NATS != nil {
		publisher = service.NewGradeEventPublisher(a.NATS, a.Redis, cfg.Events.Channel, a.Metrics, logger)
	} else {
		publisher = service.NewGradeEventPublisher(nil, a.Redis, cfg.Events.Channel, a.Metrics, logger)
	}
	service.RegisterGradeReceivers(a.Signal, publisher)

	a.Blocks = service.NewCourseBlocksService(courseRepo, a.Cache, cfg.CourseBlocks.CacheTTL, logger)
	backends := service.GradeBackends{
		Grades:            repository.NewPersistentGradeRepository(a.DB),
		Scores:            repository.NewScoreRepository(a.DB),
		Flag:              service.NewPersistentGradesFlagService(repository.NewGradesFlagRepository(a.DB), logger),
		AnonymousIDSecret: cfg.Grades.AnonymousIDSecret,
	}
	a.Grades = service.NewCourseGradeFactory(a.Blocks, backends, a.Signal, a.Metrics, validate,
		service.CourseGradeFactoryConfig{GenerateProfileScores: cfg.Grades.GenerateProfileScores}, logger)

	a.Offline = service.NewOfflineGradeService(offlineRepo, courseRepo, userRepo, a.Grades, a.Cache, a.Metrics, logger)
	a.CourseGrades = service.NewCourseGradeService(courseRepo, userRepo, repository.NewEnrollmentRepository(a.DB), a.Grades, logger)

	a.Queue = jobs.NewQueue("offline-grades", jobs.QueueConfig{
		Workers:    cfg.OfflineGrades.Workers,
		MaxRetries: cfg.OfflineGrades.MaxRetries,
		RetryDelay: cfg.OfflineGrades.RetryDelay,
		Logger:     logger,
	})
	a.Queue.Handle(service.OfflineGradeJobType, a.Offline.HandleJob)
}

// Ping reports whether Postgres is reachable.
func (a *App) Ping(ctx context.Context) error {
	return a.DB.PingContext(ctx)
}

// Close drains the queue and releases connections.
func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Stop()
	}
	if a.NATS != nil {
		if err := a.NATS.Drain(); err != nil {
			a.Logger.Warn("drain nats", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
