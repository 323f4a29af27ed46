package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dropship_erp/internal/controller"
	"dropship_erp/internal/middleware"
)

// Controllers 控制器集合
type Controllers struct {
	Import  *controller.ImportController
	Product *controller.ProductController
	Sync    *controller.SyncController
	Health  *controller.HealthController
}

// SetupRouter 创建 gin 引擎并注册路由
func SetupRouter(ctls *Controllers, limiter *middleware.SyncRateLimiter, auth *middleware.JWTConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))
	InitRoutes(r, ctls, limiter, auth)
	return r
}

// InitRoutes 注册所有路由，导入与同步触发需要 Bearer Token
func InitRoutes(r *gin.Engine, ctls *Controllers, limiter *middleware.SyncRateLimiter, auth *middleware.JWTConfig) {
	api := r.Group("/api")
	{
		// GET /api/health
		api.GET("/health", ctls.Health.Health)

		// imports CJ 导入
		imports := api.Group("/imports/cj", middleware.JWTAuth(auth))
		{
			// POST /api/imports/cj/products/:pid
			imports.POST("/products/:pid",
				middleware.SyncRateLimit(limiter, middleware.SyncTypeImport, 0),
				ctls.Import.ImportByPid,
			)
			imports.POST("/payload", ctls.Import.ImportPayload)
			imports.POST("/bulk", ctls.Import.BulkImport)
		}

		// products 商品查询
		products := api.Group("/products")
		{
			products.GET("", ctls.Product.GetProducts)
			products.GET("/stats", ctls.Product.GetProductStats)
			products.GET("/:id", ctls.Product.GetProduct)
		}

		// sync 定时任务手动触发
		sync := api.Group("/sync", middleware.JWTAuth(auth))
		{
			sync.GET("/status", ctls.Sync.GetStatus)
			sync.POST("/listing",
				middleware.SyncRateLimit(limiter, middleware.SyncTypeListing, 0),
				ctls.Sync.SyncListing,
			)
		}
	}
}
