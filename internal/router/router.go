package router

import (
	"ebay_books_v1_202608/internal/controller"
	"ebay_books_v1_202608/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Controllers 控制器集合
type Controllers struct {
	Auth  *controller.AuthController
	Order *controller.OrderController
	Sync  *controller.SyncController
}

// SetupRouter 注册所有路由
func SetupRouter(ctls *Controllers) *gin.Engine {
	r := gin.Default()

	// 健康检查
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		// ebay 授权组
		ebayGroup := api.Group("/ebay")
		{
			// GET /api/v1/ebay/login
			ebayGroup.GET("/login", ctls.Auth.Login)

			// GET /api/v1/ebay/callback
			ebayGroup.GET("/callback", ctls.Auth.Callback)

			// GET /api/v1/ebay/status
			ebayGroup.GET("/status", ctls.Auth.Status)

			// POST /api/v1/ebay/disconnect
			ebayGroup.POST("/disconnect", ctls.Auth.Disconnect)
		}

		// orders 订单组
		orders := api.Group("/orders")
		{
			orders.GET("", ctls.Order.List)
			orders.GET("/:id", ctls.Order.Detail)
			orders.PUT("/:id", ctls.Order.UpdateLocal)
			orders.DELETE("/:id", ctls.Order.Delete)
		}

		// sync 手动同步组，带冷却限流
		syncGroup := api.Group("/sync")
		{
			syncGroup.POST("/orders",
				middleware.SyncRateLimit(middleware.SyncTypeOrder, 0),
				ctls.Sync.SyncOrders,
			)
			syncGroup.POST("/orders/all",
				middleware.SyncRateLimit(middleware.SyncTypeOrder, 0),
				ctls.Sync.SyncAllOrders,
			)
			syncGroup.POST("/tokens",
				middleware.SyncRateLimit(middleware.SyncTypeToken, 0),
				ctls.Sync.RefreshTokens,
			)
			syncGroup.GET("/status", ctls.Sync.TaskStatus)
		}
	}

	return r
}
