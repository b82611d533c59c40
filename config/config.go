// Package config loads the YAML configuration shared by the service, the
// frontend and the row extractor.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v2"
)

const DefaultFile = "config.yaml"

// Config 全局配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Model    ModelConfig    `yaml:"model"`
	Log      LogConfig      `yaml:"log"`
	Frontend FrontendConfig `yaml:"frontend"`
	Dataset  DatasetConfig  `yaml:"dataset"`
}

// ServerConfig 预测服务配置
type ServerConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

// ModelConfig 模型与缩放器路径
type ModelConfig struct {
	Type           string `yaml:"type"`
	ClassifierPath string `yaml:"classifier_path"`
	ScalerPath     string `yaml:"scaler_path"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	Output      string `yaml:"output"`
	File        string `yaml:"file"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAgeDays  int    `yaml:"max_age_days"`
}

// FrontendConfig 交互式前端配置
type FrontendConfig struct {
	Port           int           `yaml:"port"`
	APIURL         string        `yaml:"api_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	DatasetPath    string        `yaml:"dataset_path"`
}

// DatasetConfig 历史数据集配置
type DatasetConfig struct {
	Path      string `yaml:"path"`
	CacheSize int    `yaml:"cache_size"`
}

// envOverrides is flat on purpose: every variable maps onto one field above.
type envOverrides struct {
	ServerPort     int    `env:"FRAUD_SERVER_PORT"`
	ModelPath      string `env:"FRAUD_MODEL_PATH"`
	ScalerPath     string `env:"FRAUD_SCALER_PATH"`
	LogLevel       string `env:"FRAUD_LOG_LEVEL"`
	LogFile        string `env:"FRAUD_LOG_FILE"`
	FrontendPort   int    `env:"FRAUD_FRONTEND_PORT"`
	APIURL         string `env:"FRAUD_API_URL"`
	DatasetPath    string `env:"FRAUD_DATASET_PATH"`
	SamplesDataset string `env:"FRAUD_FRONTEND_DATASET"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8000,
			Timeout:        30 * time.Second,
			AllowedOrigins: []string{"*"},
			MaxBodyBytes:   1 << 20,
		},
		Model: ModelConfig{
			Type:           "mlp",
			ClassifierPath: "model/mlp_model.json",
			ScalerPath:     "model/scaler.json",
		},
		Log: LogConfig{
			Level:      "info",
			Output:     "stdout",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Frontend: FrontendConfig{
			Port:           8501,
			APIURL:         "http://127.0.0.1:8000/predict",
			RequestTimeout: 10 * time.Second,
		},
		Dataset: DatasetConfig{
			Path:      "data/creditcard.csv",
			CacheSize: 128,
		},
	}
}

// Locate returns name if it exists in the working directory, otherwise the
// same name one directory up, so binaries work when started from cmd/.
func Locate(name string) string {
	if _, err := os.Stat(name); os.IsNotExist(err) {
		parent := filepath.Join("..", name)
		if _, err := os.Stat(parent); err == nil {
			return parent
		}
	}
	return name
}

// Load reads path over the defaults and applies FRAUD_* environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnv(config *Config) error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	if overrides.ServerPort != 0 {
		config.Server.Port = overrides.ServerPort
	}
	if overrides.ModelPath != "" {
		config.Model.ClassifierPath = overrides.ModelPath
	}
	if overrides.ScalerPath != "" {
		config.Model.ScalerPath = overrides.ScalerPath
	}
	if overrides.LogLevel != "" {
		config.Log.Level = overrides.LogLevel
	}
	if overrides.LogFile != "" {
		config.Log.File = overrides.LogFile
	}
	if overrides.FrontendPort != 0 {
		config.Frontend.Port = overrides.FrontendPort
	}
	if overrides.APIURL != "" {
		config.Frontend.APIURL = overrides.APIURL
	}
	if overrides.DatasetPath != "" {
		config.Dataset.Path = overrides.DatasetPath
	}
	if overrides.SamplesDataset != "" {
		config.Frontend.DatasetPath = overrides.SamplesDataset
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Frontend.Port <= 0 || c.Frontend.Port > 65535 {
		return fmt.Errorf("frontend.port %d out of range", c.Frontend.Port)
	}
	if c.Model.ClassifierPath == "" || c.Model.ScalerPath == "" {
		return errors.New("model.classifier_path and model.scaler_path are required")
	}
	if c.Frontend.APIURL == "" {
		return errors.New("frontend.api_url is required")
	}
	if c.Server.Timeout <= 0 {
		return errors.New("server.timeout must be positive")
	}
	if c.Frontend.RequestTimeout <= 0 {
		return errors.New("frontend.request_timeout must be positive")
	}
	return nil
}

// Rebase resolves relative file paths against dir, the directory the config
// file was found in.
func (c *Config) Rebase(dir string) {
	if dir == "" || dir == "." {
		return
	}
	for _, p := range []*string{
		&c.Model.ClassifierPath,
		&c.Model.ScalerPath,
		&c.Log.File,
		&c.Dataset.Path,
		&c.Frontend.DatasetPath,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}
