package app

import (
	"context"
	"educonnect_backend/internal/config"
	"educonnect_backend/internal/controller"
	"educonnect_backend/internal/repository"
	"educonnect_backend/internal/service"
	"educonnect_backend/pkg/configwatcher"
	"educonnect_backend/pkg/database"
	"educonnect_backend/pkg/logger"
	"educonnect_backend/pkg/monitoring"
	"educonnect_backend/pkg/security"
	"educonnect_backend/pkg/tracing"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	tracer          *sdktrace.TracerProvider
	stop            context.CancelFunc
	mu              sync.Mutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	class        *repository.ClassRepository
	subscription *repository.SubscriptionRepository
	quiz         *repository.QuizRepository
	quizAttempt  *repository.QuizAttemptRepository
}

type services struct {
	ai            service.TextGenerator
	storage       *service.StorageService
	quiz          *service.QuizService
	quizAttempt   *service.QuizAttemptService
	quizAnalytics *service.QuizAnalyticsService
}

type controllers struct {
	quiz          *controller.QuizController
	quizAnalytics *controller.QuizAnalyticsController
	health        *controller.HealthController
}

// aiConfigurable 可热更新配置的生成服务
type aiConfigurable interface {
	UpdateConfig(cfg config.AIConfig)
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	a.mu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
	logger.Log.Info("Configuration reloaded")
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		class:        repository.NewClassRepository(db),
		subscription: repository.NewSubscriptionRepository(db),
		quiz:         repository.NewQuizRepository(db),
		quizAttempt:  repository.NewQuizAttemptRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client, ai service.TextGenerator) *services {
	s := &services{ai: ai}

	s.storage = service.NewStorageService(cfg)
	s.quiz = service.NewQuizService(
		repos.quiz,
		repos.quizAttempt,
		repos.class,
		repos.subscription,
		ai,
		s.storage,
		cfg.Quiz,
	)
	s.quizAttempt = service.NewQuizAttemptService(s.quiz, repos.quizAttempt, repos.subscription, repos.user)
	s.quizAnalytics = service.NewQuizAnalyticsService(s.quiz, repos.quizAttempt, repos.subscription, ai, rdb, cfg.Quiz)

	if c, ok := ai.(aiConfigurable); ok {
		a.RegisterConfigCallback(func(newCfg *config.Config) {
			c.UpdateConfig(newCfg.AI)
		})
	}

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		quiz:          controller.NewQuizController(s.quiz, s.quizAttempt),
		quizAnalytics: controller.NewQuizAnalyticsController(s.quizAnalytics),
		health:        controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(ctx context.Context, router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	if cfg.RateLimit.MaxRequests > 0 {
		window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
		if window <= 0 {
			window = time.Minute
		}
		router.Use(security.RateLimiter(ctx, cfg.RateLimit.MaxRequests, window))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New 使用已建立的连接组装路由，测试中直接传入 SQLite 和假的生成服务
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, ai service.TextGenerator) *App {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb, ai)
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Mode == gin.DebugMode {
		router.Use(gin.Logger())
	}
	app.Router = router

	// 后台协程随 Close 结束
	ctx, stop := context.WithCancel(context.Background())
	app.stop = stop
	app.setupMiddlewares(ctx, router, cfg)
	app.registerRoutes(router, controllers, cfg)

	return app
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	gin.SetMode(cfg.Server.Mode)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if cfg.ForceMigrate || cfg.Server.Mode == gin.DebugMode {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := New(cfg, db, rdb, service.NewAIService(cfg.AI))

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

// WatchConfig 配置文件变更时重新加载并通知各回调
func (a *App) WatchConfig(ctx context.Context, configDir string) {
	path := filepath.Join(configDir, "config.yaml")
	go func() {
		if err := configwatcher.Watch(ctx, path, a.applyConfig); err != nil {
			logger.Log.Warn("Config watcher stopped", zap.String("path", path), zap.Error(err))
		}
	}()
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
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

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	a.Close()
	logger.Log.Info("Server exiting")
}

// Close 停止后台协程并释放 Redis 连接
func (a *App) Close() {
	if a.stop != nil {
		a.stop()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
}
