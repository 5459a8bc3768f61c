package router

import (
	"github.com/gin-gonic/gin"
	"github.com/store177/shop-backend/config"
	"github.com/store177/shop-backend/internal/app/controller"
	"github.com/store177/shop-backend/internal/middleware"
)

type Router struct {
	productController *controller.ProductController
	orderController   *controller.OrderController
	adminController   *controller.AdminController
	authMiddleware    *middleware.AuthMiddleware
	config            *config.Config
}

func NewRouter(
	productController *controller.ProductController,
	orderController *controller.OrderController,
	adminController *controller.AdminController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		productController: productController,
		orderController:   orderController,
		adminController:   adminController,
		authMiddleware:    authMiddleware,
		config:            cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": r.config.Telegram.StoreName + " API is running",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Timeout(r.config.Server.RequestTimeout))
	{
		products := v1.Group("/products")
		{
			products.GET("", r.productController.GetCatalog)
			products.GET("/:id", r.productController.GetProduct)
			products.POST("/:id/variant", r.productController.FindVariant)
		}

		v1.POST("/orders", r.authMiddleware.OptionalCustomer(), r.orderController.PlaceOrder)

		// session minting accepts initData only
		v1.POST("/admin/session", r.authMiddleware.RequireTelegram(), r.adminController.CreateSession)

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.RequireAdmin())
		{
			admin.GET("/me", r.adminController.Me)

			adminProducts := admin.Group("/products")
			{
				adminProducts.GET("", r.productController.ListProducts)
				adminProducts.POST("", r.productController.CreateProduct)
				adminProducts.PATCH("/:id", r.productController.UpdateProduct)
				adminProducts.DELETE("/:id", r.productController.DeleteProduct)
				adminProducts.GET("/:id/options", r.productController.GetOptions)
				adminProducts.PUT("/:id/options", r.productController.SaveOptions)
				adminProducts.PUT("/:id/groups", r.productController.ReplaceGroups)
				adminProducts.POST("/:id/generate", r.productController.GenerateVariants)
				adminProducts.POST("/:id/images/presign", r.productController.PresignImage)
				adminProducts.POST("/:id/images", r.productController.AddImage)
			}

			orders := admin.Group("/orders")
			{
				orders.GET("", r.orderController.ListOrders)
				orders.GET("/stats", r.orderController.GetStats)
				orders.GET("/:id", r.orderController.GetOrder)
				orders.PATCH("/:id", r.orderController.UpdateStatus)
			}
		}
	}

	// The feed outlives any request timeout.
	router.GET("/api/v1/admin/feed", r.authMiddleware.RequireAdmin(), r.adminController.Feed)

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+middleware.InitDataHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
