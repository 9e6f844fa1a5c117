package main

import (
	"log"

	"github.com/alex124513/rwa-backend/internal/chain"
	"github.com/alex124513/rwa-backend/internal/config"
	"github.com/alex124513/rwa-backend/internal/database"
	"github.com/alex124513/rwa-backend/internal/logger"
	"github.com/alex124513/rwa-backend/internal/monitor"
	"github.com/alex124513/rwa-backend/internal/router"
	"github.com/alex124513/rwa-backend/internal/task"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	setupLogger(cfg.Log)
	defer logger.Sync()

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 初始化链上账本入口
	gateway, err := chain.NewGateway(cfg.Chain)
	if err != nil {
		log.Fatalf("Failed to initialize chain gateway: %v", err)
	}

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(db, gateway)

	// 启动定时任务
	task.Start(db, gateway, cfg)

	// 启动工厂事件监控
	factoryMonitor, err := monitor.NewFactoryMonitor(db, gateway, cfg)
	if err != nil {
		log.Fatalf("Failed to create factory monitor: %v", err)
	}
	if err := factoryMonitor.Start(); err != nil {
		logger.Error("Factory monitor failed to start, relying on reconcile task: %v", err)
	}

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupLogger 按配置初始化全局日志器
func setupLogger(cfg config.LogConfig) {
	level := logger.ParseLogLevel(cfg.Level)

	var (
		l   *logger.Logger
		err error
	)
	if cfg.Output == "file" && cfg.File != "" {
		l, err = logger.NewWithFileRotation(level, cfg.File)
	} else {
		l, err = logger.New(level)
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.SetDefaultLogger(l)
}
