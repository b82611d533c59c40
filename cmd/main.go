package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"frauddetect/config"
	qhttp "frauddetect/http"
	"frauddetect/logging"
	"frauddetect/ml"

	"go.uber.org/zap"
)

func main() {
	// Look for config in root even if run from cmd/
	configPath := config.Locate("config.yaml")

	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Rebase(filepath.Dir(configPath))

	logger, level, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// 2. Load model artifacts; the service does not start without them
	predictor, err := ml.LoadPredictor(cfg.Model.Type, cfg.Model.ClassifierPath, cfg.Model.ScalerPath)
	if err != nil {
		logger.Fatal("failed to load model artifacts",
			zap.String("classifier", cfg.Model.ClassifierPath),
			zap.String("scaler", cfg.Model.ScalerPath),
			zap.Error(err),
		)
	}
	logger.Info("model loaded",
		zap.String("type", cfg.Model.Type),
		zap.String("classifier", cfg.Model.ClassifierPath),
		zap.String("scaler", cfg.Model.ScalerPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Follow log level changes in the config file
	err = config.Watch(ctx, configPath, logger, func(updated *config.Config) {
		if err := logging.SetLevel(level, updated.Log.Level); err != nil {
			logger.Warn("ignoring log level", zap.String("level", updated.Log.Level), zap.Error(err))
			return
		}
		logger.Info("log level updated", zap.String("level", updated.Log.Level))
	})
	if err != nil {
		logger.Warn("config watcher disabled", zap.Error(err))
	}

	// 4. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Server.Port,
		Timeout:        cfg.Server.Timeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	}, predictor, logger)

	errs := make(chan error, 1)
	go func() {
		errs <- server.Start()
	}()

	// 5. Handle graceful shutdown
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errs:
		if err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}
