// Package logging builds the zap loggers used by every binary.
package logging

import (
	"fmt"
	"os"

	"frauddetect/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New 根据配置创建日志器。返回的 AtomicLevel 可在运行时调整级别。
func New(cfg config.LogConfig) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevel()
	if err := SetLevel(level, cfg.Level); err != nil {
		return nil, level, err
	}

	var encoderConfig zapcore.EncoderConfig
	var encoder zapcore.Encoder
	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	sinks := []zapcore.WriteSyncer{consoleSink(cfg.Output)}
	if cfg.File != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.DPanicLevel))
	return logger, level, nil
}

// SetLevel parses name ("debug", "info", ...) into level.
func SetLevel(level zap.AtomicLevel, name string) error {
	if name == "" {
		name = "info"
	}
	parsed, err := zapcore.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	level.SetLevel(parsed)
	return nil
}

func consoleSink(output string) zapcore.WriteSyncer {
	if output == "stderr" {
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.Lock(os.Stdout)
}
