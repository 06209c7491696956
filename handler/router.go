package handler

import (
	"net/http"

	"github.com/TIANLI0/SurfaceKit/config"
	"github.com/TIANLI0/SurfaceKit/middleware"
	"github.com/TIANLI0/SurfaceKit/service"
	"github.com/gin-gonic/gin"
)

// BuildInfo 构建信息
type BuildInfo struct {
	Version   string
	BuildTime string
	BuildID   string
	GitCommit string
	GitBranch string
}

// NewRouter 创建路由
func NewRouter(cfg *config.Config, rooms *service.RoomService, build BuildInfo) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())
	r.MaxMultipartMemory = cfg.Upload.MaxSize

	// 静态文件服务（合成结果）
	r.Static("/static", cfg.Server.StaticDir)

	// 健康检查和版本信息
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": build.Version,
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    build.Version,
			"build_time": build.BuildTime,
			"build_id":   build.BuildID,
			"git_commit": build.GitCommit,
			"git_branch": build.GitBranch,
		})
	})

	roomHandler := NewRoomHandler(cfg, rooms)
	textureHandler := NewTextureHandler(rooms)

	r.GET("/textures/:name", textureHandler.Serve)

	// API路由
	api := r.Group("/api/v1")
	{
		api.POST("/rooms", roomHandler.Upload)
		api.POST("/rooms/:room/photo", roomHandler.Upload)
		api.GET("/rooms/:room", roomHandler.Status)
		api.DELETE("/rooms/:room", roomHandler.Delete)
		api.POST("/rooms/:room/texture", roomHandler.ApplyTexture)
		api.GET("/textures", textureHandler.List)
	}

	return r
}
