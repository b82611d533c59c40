// Package http 提供HTTP服务器功能
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"frauddetect/ml"

	"go.uber.org/zap"
)

// Server HTTP服务器
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8000,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
		MaxBodyBytes:   1 << 20,
	}
}

// NewServer 创建预测服务
func NewServer(config ServerConfig, provider ml.ModelProvider, logger *zap.Logger) *Server {
	return NewServerWithHandler(config, APIHandler(config, provider, logger), logger)
}

// APIHandler 构建带中间件链的预测API处理器
func APIHandler(config ServerConfig, provider ml.ModelProvider, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// 注册所有处理器
	RegisterHandlers(mux, provider)
	RegisterMetrics(mux)

	// 创建中间件链
	chain := Chain(
		RecoveryMiddleware(logger),                 // 1. 恢复中间件（最先执行，捕获panic）
		LoggerMiddleware(logger),                   // 2. 日志中间件
		MetricsMiddleware,                          // 3. 指标中间件
		SecurityHeadersMiddleware,                  // 4. 安全头中间件
		CORSMiddleware(config.AllowedOrigins),      // 5. CORS中间件
		TimeoutMiddleware(config.Timeout),          // 6. 超时中间件
		RequestSizeMiddleware(config.MaxBodyBytes), // 7. 请求大小限制
	)

	return chain(mux)
}

// NewServerWithHandler 用任意处理器创建服务器，前端复用
func NewServerWithHandler(config ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      handler,
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
			IdleTimeout:  120 * time.Second,
		},
		config: config,
		logger: logger,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop 停止服务器
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

// Addr 返回服务器地址
func (s *Server) Addr() string {
	return s.server.Addr
}
