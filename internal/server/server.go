package server

import (
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	v1 "smartdoc/internal/api/v1"
	"smartdoc/internal/config"
	"smartdoc/internal/pipeline"
	"smartdoc/internal/store"
)

// Server HTTP服务器
type Server struct {
	router  *gin.Engine
	store   *store.Store
	sweeper *pipeline.Sweeper
	v1      *v1.Handler
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) *Server {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化 SQLite Store 与文件存储
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		dataDir = cfg.Data.DataDir
	}
	dbPath := filepath.Join(dataDir, "smartdoc.db")

	sqliteStore, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	fileStore, err := store.NewFileStore(filepath.Join(dataDir, "files"))
	if err != nil {
		log.Fatalf("Failed to initialize file store: %v", err)
	}

	coordinator, err := pipeline.NewCoordinator(cfg, sqliteStore, fileStore)
	if err != nil {
		log.Fatalf("Failed to initialize pipeline: %v", err)
	}

	// 周期清理超期暂存明细
	ttl := time.Duration(cfg.Pipeline.PendingTTLHours) * time.Hour
	sweeper := pipeline.NewSweeper(sqliteStore, ttl)
	if err := sweeper.Start(cfg.Pipeline.PendingSweepCron); err != nil {
		log.Fatalf("Failed to start pending sweeper: %v", err)
	}

	v1Handler := v1.NewHandler(cfg, sqliteStore, coordinator)

	s := &Server{
		router:  gin.Default(),
		store:   sqliteStore,
		sweeper: sweeper,
		v1:      v1Handler,
	}

	s.setupRoutes()

	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// V1 API 路由
	api := s.router.Group("/api/v1")
	{
		s.v1.RegisterRoutes(api)
	}
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close 释放资源
func (s *Server) Close() error {
	s.sweeper.Stop()
	return s.store.Close()
}
