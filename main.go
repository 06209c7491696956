package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/TIANLI0/SurfaceKit/config"
	"github.com/TIANLI0/SurfaceKit/handler"
	"github.com/TIANLI0/SurfaceKit/service"
	"github.com/TIANLI0/SurfaceKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	BuildID   = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func main() {
	// 加载配置
	cfg := config.New()

	// 初始化日志
	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	utils.Logger.Info("starting SurfaceKit server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch))

	// 确保目录存在
	for _, dir := range []string{cfg.Server.StaticDir, cfg.Texture.LibraryDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			utils.Logger.Fatal("failed to create directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	store, closeStore := newStore(cfg)
	defer closeStore()

	rooms, err := service.NewRoomService(cfg, store,
		service.NewTextureLibrary(&cfg.Texture),
		service.NewGrabCutDetector(&cfg.Detector),
		service.NewContourLayoutEstimator(&cfg.Detector))
	if err != nil {
		utils.Logger.Fatal("failed to create room service", zap.Error(err))
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	r := handler.NewRouter(cfg, rooms, handler.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		BuildID:   BuildID,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	utils.Logger.Info("server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Backend))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		utils.Logger.Fatal("failed to start server", zap.Error(err))
	}
}

// newStore 按配置选择房间状态存储，Redis 不可用时退回文件存储
func newStore(cfg *config.Config) (service.RoomStore, func()) {
	if cfg.Storage.Backend == "redis" {
		redisStore := service.NewRedisStore(&cfg.Redis)
		if err := redisStore.Ping(context.Background()); err != nil {
			utils.Logger.Warn("redis connection failed, falling back to file storage", zap.Error(err))
			redisStore.Close()
		} else {
			utils.Logger.Info("redis connected successfully")
			return redisStore, func() { redisStore.Close() }
		}
	}

	fileStore, err := service.NewFileStore(cfg.Storage.DataDir)
	if err != nil {
		utils.Logger.Fatal("failed to create data directory", zap.Error(err))
	}
	return fileStore, func() {}
}
