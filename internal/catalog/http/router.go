package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	healthStatusOK        = "ok"
	healthStatusUnhealthy = "unhealthy"
)

type HealthChecker interface {
	Health() error
}

func RegisterRoutes(router *gin.Engine, handler *Handler, checker HealthChecker) {
	sessions := router.Group("/sessions")
	sessions.POST("", handler.CreateSession)
	sessions.GET("/:id", handler.GetSession)
	sessions.DELETE("/:id", handler.CloseSession)
	sessions.POST("/:id/login", handler.Login)
	sessions.POST("/:id/logout", handler.Logout)
	sessions.PUT("/:id/theme", handler.SetTheme)
	sessions.POST("/:id/theme/toggle", handler.ToggleTheme)
	sessions.GET("/:id/products", handler.ListProducts)
	sessions.DELETE("/:id/products", handler.ResetList)
	sessions.POST("/:id/search", handler.Search)
	sessions.POST("/:id/category", handler.SelectCategory)
	sessions.POST("/:id/scroll/sentinel", handler.BindSentinel)
	sessions.POST("/:id/scroll/visible", handler.SentinelVisible)
	sessions.GET("/:id/favorites", handler.ListFavorites)
	sessions.POST("/:id/favorites/:productId", handler.ToggleFavorite)

	router.GET("/categories", handler.ListCategories)
	router.POST("/products", handler.CreateProduct)
	router.GET("/products/:id", handler.GetProduct)
	router.PUT("/products/:id", handler.UpdateProduct)
	router.DELETE("/products/:id", handler.DeleteProduct)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if err := checker.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": healthStatusUnhealthy})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": healthStatusOK})
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
