package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 按运行环境创建结构化日志; production 输出 JSON, 其余为彩色控制台
// debug 为 true 时放开 Debug 级别 (APP_DEBUG)
func New(env string, debug bool) (*zap.Logger, error) {
	var cfg zap.Config

	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "json"
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}

// Must 创建失败时退回 zap.NewNop，保证调用方始终拿到可用 logger
func Must(env string, debug bool) *zap.Logger {
	l, err := New(env, debug)
	if err != nil {
		return zap.NewNop()
	}
	return l
}
