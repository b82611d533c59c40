package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"frauddetect/client"
	"frauddetect/config"
	"frauddetect/dataset"
	qhttp "frauddetect/http"
	"frauddetect/logging"
	"frauddetect/web"

	"go.uber.org/zap"
)

func main() {
	configPath := config.Locate("config.yaml")
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

	api := client.NewAPIClient(cfg.Frontend.APIURL, client.WithTimeout(cfg.Frontend.RequestTimeout))
	opts := []web.Option{web.WithAPIURL(api.URL())}

	// the sample picker is optional
	if cfg.Frontend.DatasetPath != "" {
		reader, err := dataset.Open(cfg.Frontend.DatasetPath, dataset.WithCacheSize(cfg.Dataset.CacheSize))
		if err != nil {
			logger.Warn("sample rows disabled", zap.String("path", cfg.Frontend.DatasetPath), zap.Error(err))
		} else {
			opts = append(opts, web.WithSamples(reader))
			logger.Info("sample rows enabled", zap.String("path", reader.Path()))
		}
	}

	frontend, err := web.New(api, logger, opts...)
	if err != nil {
		logger.Fatal("failed to build frontend", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.Watch(ctx, configPath, logger, func(updated *config.Config) {
		if err := logging.SetLevel(level, updated.Log.Level); err != nil {
			logger.Warn("ignoring log level", zap.String("level", updated.Log.Level), zap.Error(err))
		}
	}); err != nil {
		logger.Warn("config watcher disabled", zap.Error(err))
	}

	// 与预测服务相同的服务器，超时覆盖一次API调用
	server := qhttp.NewServerWithHandler(qhttp.ServerConfig{
		Port:    cfg.Frontend.Port,
		Timeout: cfg.Frontend.RequestTimeout * 2,
	}, frontend.Handler(), logger)

	go func() {
		checkCtx, cancel := context.WithTimeout(ctx, cfg.Frontend.RequestTimeout)
		defer cancel()
		if status, err := api.Health(checkCtx); err != nil {
			logger.Warn("prediction service not reachable yet", zap.String("url", api.URL()), zap.Error(err))
		} else {
			logger.Info("prediction service reachable", zap.String("status", status))
		}
	}()

	errs := make(chan error, 1)
	go func() {
		errs <- server.Start()
	}()

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
