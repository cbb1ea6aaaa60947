package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/controller"
	"learnhub_backend/internal/middleware"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/service"
	"learnhub_backend/pkg/configwatcher"
	"learnhub_backend/pkg/database"
	"learnhub_backend/pkg/events"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/mailer"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/security"
	"learnhub_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	publisher      events.Publisher
	tracerProvider *sdktrace.TracerProvider
	stopWatchers   context.CancelFunc
}

type repositories struct {
	profile    *repository.ProfileRepository
	enrollment *repository.EnrollmentRepository
	course     *repository.CourseRepository
	// 启用 redis 时为带缓存的实现
	courseReader  service.CourseStore
	studentIDFunc *repository.StudentIDFunctionRepository
}

type services struct {
	enrollment   *service.EnrollmentService
	course       *service.CourseService
	notification *service.NotificationService
	locations    *service.LocationCodes
}

type controllers struct {
	enrollment *controller.EnrollmentController
	course     *controller.CourseController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	repos := &repositories{
		profile:       repository.NewProfileRepository(db),
		enrollment:    repository.NewEnrollmentRepository(db),
		course:        repository.NewCourseRepository(db),
		studentIDFunc: repository.NewStudentIDFunctionRepository(db, cfg.StudentID.GeneratorFunction),
	}

	repos.courseReader = repos.course
	if rdb != nil {
		repos.courseReader = repository.NewCachedCourseRepository(repos.course, rdb, cfg.Redis.CacheTTL)
	}
	return repos
}

// newStudentIDGenerator MySQL 或未配置函数时只使用本地生成
func newStudentIDGenerator(cfg *config.Config, repos *repositories, codes *service.LocationCodes) *service.StudentIDGenerator {
	local := service.NewLocalStrategy()
	var primary service.IDStrategy = local
	if cfg.Database.Driver == "postgres" && cfg.StudentID.GeneratorFunction != "" {
		primary = service.NewRemoteStrategy(repos.studentIDFunc)
	}
	return service.NewStudentIDGenerator(codes, primary, local)
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	m, err := mailer.New(cfg.Mail)
	if err != nil {
		logger.Log.Fatal("Failed to initialize mailer", zap.Error(err))
	}

	a.publisher = events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)

	locations := service.NewLocationCodes()
	notification := service.NewNotificationService(m, cfg.Mail.FromName, cfg.Mail.From, cfg.Mail.AdminEmail)

	return &services{
		enrollment: service.NewEnrollmentService(
			repos.profile,
			repos.enrollment,
			repos.courseReader,
			newStudentIDGenerator(cfg, repos, locations),
			notification,
			a.publisher,
			cfg.Mail.Timeout,
		),
		course:       service.NewCourseService(repos.courseReader, repos.course),
		notification: notification,
		locations:    locations,
	}
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		enrollment: controller.NewEnrollmentController(s.enrollment),
		course:     controller.NewCourseController(s.course),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 监听学号地区编码覆盖文件
func (a *App) startBackgroundTasks(s *services) {
	path := a.Config.StudentID.LocationsFile
	if path == "" {
		return
	}

	if err := s.locations.ReloadFile(path); err != nil {
		logger.Log.Error("Failed to load location overrides", zap.String("path", path), zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopWatchers = cancel
	go func() {
		if err := configwatcher.Watch(ctx, path, time.Second, s.locations.ReloadFile); err != nil {
			logger.Log.Error("Location overrides watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// release 模式默认不迁移，需显式 -migrate
	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		if err := database.Migrate(db, cfg.Database.Driver, cfg.StudentID.GeneratorFunction); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	// redis 只用于课程缓存，连接失败时降级为直接查库
	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Warn("Redis unavailable, course cache disabled", zap.Error(err))
		} else {
			app.Redis = rdb
		}
	}

	repos := app.initRepositories(db, app.Redis, cfg)
	services := app.initServices(repos, cfg)
	controllers := app.initControllers(services, db, app.Redis)

	auth, err := middleware.NewAuthenticator(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize authenticator", zap.Error(err))
	}

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos, auth, cfg)

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.close(ctx)
	logger.Log.Info("Server exiting")
}

func (a *App) close(ctx context.Context) {
	if a.stopWatchers != nil {
		a.stopWatchers()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			logger.Log.Error("Failed to close event publisher", zap.Error(err))
		}
	}
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}
