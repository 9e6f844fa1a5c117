package router

import (
	"github.com/alex124513/rwa-backend/internal/chain"
	"github.com/alex124513/rwa-backend/internal/handler"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, gateway *chain.Gateway) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "rwa-backend",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 项目生命周期路由
		projectHandler := handler.NewProjectHandler(db, gateway)
		projects := v1.Group("/projects")
		{
			projects.POST("", projectHandler.Submit)
			projects.GET("", projectHandler.List)
			projects.GET("/pending", projectHandler.Pending)
			projects.GET("/:id", projectHandler.Get)
			projects.POST("/:id/review", projectHandler.Review)
			projects.POST("/:id/deploy", projectHandler.Deploy)
			projects.POST("/:id/sync", projectHandler.Sync)
			projects.GET("/:id/schedule", projectHandler.Schedule)
		}

		// 投资计算器
		v1.POST("/calculator", projectHandler.Calculate)

		// 链上合约管理路由
		contractHandler := handler.NewContractHandler(gateway)
		contracts := v1.Group("/contracts")
		{
			contracts.GET("/factory/projects", contractHandler.FactoryProjects)
			contracts.GET("/factory/balance", contractHandler.FactoryBalance)
			contracts.POST("/factory/deposit", contractHandler.Deposit)
			contracts.POST("/factory/status", contractHandler.SetStatus)
			contracts.GET("/projects/:address", contractHandler.ProjectData)
			contracts.POST("/projects/:address/withdraw", contractHandler.Withdraw)
			contracts.POST("/projects/:address/reset", contractHandler.Reset)
			contracts.POST("/projects/:address/settle", contractHandler.Settle)
			contracts.POST("/token/mint", contractHandler.Mint)
			contracts.GET("/token/balance/:address", contractHandler.TokenBalance)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
