package handler

import (
	"net/http"

	"github.com/chaos-io/chromakey/config"
	"github.com/chaos-io/chromakey/middleware"
	"github.com/gin-gonic/gin"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// NewRouter 注册路由
func NewRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.MaxMultipartMemory = cfg.Upload.MaxSize

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": Version,
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	keyingHandler := NewKeyingHandler(cfg)
	api := r.Group("/api/v1")
	{
		api.POST("/remove", keyingHandler.Remove)
		api.POST("/process", keyingHandler.Process)
	}

	return r
}
