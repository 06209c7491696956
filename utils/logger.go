package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 在 InitLogger 之前为空实现，测试中无需初始化
var Logger = zap.NewNop()

// InitLogger 按 gin 运行模式初始化日志：release 输出 JSON，test 静默，其余为彩色开发格式
func InitLogger(mode string) error {
	var config zap.Config

	switch mode {
	case "release":
		config = zap.NewProductionConfig()
	case "test":
		Logger = zap.NewNop()
		return nil
	default:
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := config.Build()
	if err != nil {
		return err
	}

	Logger = logger.Named("surfacekit")
	return nil
}

// RoomLogger 附带房间ID的子日志
func RoomLogger(roomID string) *zap.Logger {
	return Logger.With(zap.String("room", roomID))
}

func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}
