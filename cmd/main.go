package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dropship_erp/internal/config"
	"dropship_erp/internal/controller"
	"dropship_erp/internal/logger"
	"dropship_erp/internal/middleware"
	"dropship_erp/internal/model"
	"dropship_erp/internal/queue"
	"dropship_erp/internal/repository"
	"dropship_erp/internal/router"
	"dropship_erp/internal/service"
	"dropship_erp/internal/task"
	"dropship_erp/pkg/cj"
	"dropship_erp/pkg/database"
)

func main() {
	cfg := config.Load()
	log := logger.Must(cfg.Server.Env, cfg.Server.Debug)
	defer func() { _ = log.Sync() }()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 1. 初始化数据库与 Redis
	db := initDatabase(cfg, log)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()

	// 2. 初始化依赖
	deps := initDependencies(cfg, db, rdb, log)

	// 3. 启动队列消费者与定时任务
	ctx, cancel := context.WithCancel(context.Background())
	workerDone := startWorker(ctx, cfg, deps, log)
	if err := deps.Tasks.Start(); err != nil {
		log.Fatal("定时任务启动失败", zap.Error(err))
	}

	// 4. 初始化路由
	if cfg.Auth.JWTSecret == "" {
		log.Warn("未配置 JWT_SECRET，导入与同步接口将拒绝所有请求")
	}
	r := router.SetupRouter(deps.Controllers, middleware.GetLimiter(), &middleware.JWTConfig{
		SecretKey: cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.JWTIssuer,
		Leeway:    cfg.Auth.JWTLeeway,
	}, log)

	// 5. 启动服务，收到退出信号后依次关闭
	startServer(cfg.Server.Port, r, log)

	deps.Tasks.Stop()
	cancel()
	<-workerDone
	log.Info("服务已退出")
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Queue       *queue.RedisQueue
	Tasks       *task.TaskManager
	Controllers *router.Controllers
}

// Repositories 仓库集合
type Repositories struct {
	Product   repository.ProductRepository
	Category  repository.CategoryRepository
	Review    repository.ReviewRepository
	MarginLog repository.MarginLogRepository
}

// Services 服务集合
type Services struct {
	Guard      *service.PricingGuard
	Category   *service.CategoryService
	Margin     *service.MarginService
	Variant    *service.VariantService
	Media      *service.MediaService
	Review     *service.ReviewService
	Dispatcher *service.DispatcherService
	Import     *service.ImportService
	Jobs       *service.JobHandlers
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config, log *zap.Logger) *gorm.DB {
	var models []interface{}
	if cfg.Database.AutoMigrate {
		models = []interface{}{
			&model.Category{},
			&model.Product{}, &model.ProductVariant{}, &model.ProductImage{}, &model.ProductVideo{},
			&model.ProductReview{}, &model.MarginLog{},
		}
	}

	db, err := database.InitDB(database.Options{
		DSN:    cfg.Database.DSN,
		LogSQL: cfg.Database.LogSQL,
	}, log, models...)
	if err != nil {
		log.Fatal("数据库初始化失败", zap.Error(err))
	}
	return db
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB, rdb *redis.Client, log *zap.Logger) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Product:   repository.NewProductRepository(db),
		Category:  repository.NewCategoryRepository(db),
		Review:    repository.NewReviewRepository(db),
		MarginLog: repository.NewMarginLogRepository(db),
	}

	// -------- 外部依赖 --------
	cjClient := cj.NewClient(&cj.Config{
		BaseURL:     cfg.CJ.BaseURL,
		AccessToken: cfg.CJ.AccessToken,
		APIKey:      cfg.CJ.APIKey,
		Timeout:     cfg.CJ.Timeout,
		RatePerSec:  cfg.CJ.RatePerSec,
		Debug:       cfg.Server.Debug,
	})
	redisQueue := queue.NewRedisQueue(rdb, log)

	// -------- 业务服务 --------
	guard := service.NewPricingGuard(service.MarginPolicy{
		MinMargin:        cfg.Pricing.MinMargin,
		MinMarkupPercent: cfg.Pricing.MinMarkupPercent,
	})
	svc := &Services{
		Guard:      guard,
		Category:   service.NewCategoryService(repos.Category),
		Margin:     service.NewMarginService(repos.MarginLog, guard),
		Review:     service.NewReviewService(repos.Review, cjClient),
		Dispatcher: service.NewDispatcherService(redisQueue, log),
	}
	svc.Variant = service.NewVariantService(repos.Product, guard, svc.Margin, cfg.Pricing.CompareAtRatio, log)
	svc.Media = service.NewMediaService(repos.Product, initStorage(cfg, log), log)
	svc.Import = service.NewImportService(
		repos.Product, cjClient, svc.Category, guard, svc.Margin,
		svc.Variant, svc.Media, svc.Review, svc.Dispatcher,
		service.TranslationSettings{
			Locales:      cfg.Translation.Locales,
			SourceLocale: cfg.Translation.SourceLocale,
		},
		log,
	)
	svc.Jobs = service.NewJobHandlers(repos.Product, cjClient, svc.Variant, svc.Media, svc.Review, log)

	// -------- 定时任务 --------
	tasks := task.NewTaskManager(&task.TaskManagerDeps{
		Source:   cjClient,
		Importer: svc.Import,
		Logger:   log,
	}, &task.TaskManagerConfig{
		ListingEnabled:     cfg.Task.ListingSyncEnabled,
		ListingSpec:        cfg.Task.ListingSyncSpec,
		ListingPageSize:    cfg.Task.ListingPageSize,
		ListingMaxPages:    cfg.Task.ListingMaxPages,
		ListingConcurrency: 2,
	})

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		Import:  controller.NewImportController(svc.Import, log),
		Product: controller.NewProductController(repos.Product),
		Sync:    controller.NewSyncController(tasks),
		Health: controller.NewHealthController(map[string]controller.Pinger{
			"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    svc,
		Queue:       redisQueue,
		Tasks:       tasks,
		Controllers: controllers,
	}
}

// initStorage 对象存储不可用时返回 nil，媒体只同步 URL 不做镜像
func initStorage(cfg *config.Config, log *zap.Logger) service.MediaStorage {
	storageSvc, err := service.NewStorageService(&service.StorageConfig{
		Provider:  cfg.Storage.Provider,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		CDNDomain: cfg.Storage.CDNDomain,
		BasePath:  cfg.Storage.BasePath,
	})
	if err != nil {
		log.Warn("存储服务初始化失败，跳过媒体镜像", zap.Error(err))
		return nil
	}
	return storageSvc
}

// ==================== 队列消费者 ====================

// startWorker 后台运行队列消费者，返回的 channel 在消费者退出后关闭
func startWorker(ctx context.Context, cfg *config.Config, deps *Dependencies, log *zap.Logger) <-chan struct{} {
	lanes := make([]queue.Lane, 0, len(cfg.Queue.Lanes))
	for _, l := range cfg.Queue.Lanes {
		lanes = append(lanes, queue.Lane(l))
	}

	worker := queue.NewWorker(deps.Queue, queue.WorkerConfig{
		Group:    cfg.Queue.Group,
		Consumer: cfg.Queue.Consumer,
		Lanes:    lanes,
		Block:    cfg.Queue.Block,
	}, log)
	deps.Services.Jobs.RegisterJobHandlers(worker)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := worker.Run(ctx); err != nil {
			log.Error("队列消费者异常退出", zap.Error(err))
		}
	}()
	return done
}

// ==================== 服务启动 ====================

// startServer 启动 HTTP 服务并阻塞到收到退出信号
func startServer(port string, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("服务强制关闭", zap.Error(err))
	}
}
