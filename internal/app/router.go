package app

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/lms-grades-api/internal/handler"
	"github.com/noah-isme/lms-grades-api/internal/middleware"
	"github.com/noah-isme/lms-grades-api/pkg/config"
	"github.com/noah-isme/lms-grades-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-grades-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-grades-api/pkg/middleware/requestid"
)

// NewRouter builds the gin engine serving the grades API.
func NewRouter(a *App) *gin.Engine {
	cfg := a.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.Metrics))

	deps := map[string]handler.Pinger{"postgres": handler.PingFunc(a.Ping)}
	if a.Redis != nil {
		deps["redis"] = handler.PingFunc(func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() })
	}
	metricsHandler := handler.NewMetricsHandler(a.Metrics, deps)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	gradeHandler := handler.NewCourseGradeHandler(a.CourseGrades)
	offlineHandler := handler.NewOfflineGradeHandler(a.Offline, a.CourseGrades, a.Queue, a.Logger)
	commerceHandler := handler.NewCommerceHandler(a.Commerce)
	blocksHandler := handler.NewCourseBlocksHandler(a.Blocks, a.CourseGrades)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta(), middleware.Site(a.Sites, a.Logger), middleware.JWT(a.Auth))

	courses := api.Group("/courses/:courseId")
	courses.GET("/grades/:userId", middleware.StaffOrSelf(), gradeHandler.Summary)
	courses.GET("/grades/:userId/scores", middleware.StaffOrSelf(), gradeHandler.ScoreForModule)
	courses.POST("/offline-grades", middleware.RequireStaff(), middleware.Audit(a.Logger, "calculate", "offline_grades"), offlineHandler.Enqueue)
	courses.GET("/offline-grades/:userId", middleware.StaffOrSelf(), offlineHandler.StudentGrades)
	courses.GET("/gradebook/export", middleware.RequireStaff(), offlineHandler.Export)
	courses.POST("/blocks/invalidate", middleware.RequireStaff(), middleware.Audit(a.Logger, "invalidate", "course_blocks"), blocksHandler.Invalidate)

	api.GET("/commerce/configuration", commerceHandler.Get)
	api.PUT("/commerce/configuration", middleware.RequireStaff(), middleware.Audit(a.Logger, "update", "commerce_configuration"), commerceHandler.Update)

	return r
}
