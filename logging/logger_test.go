package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"frauddetect/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")
	cfg := config.Default().Log
	cfg.Output = "stderr"
	cfg.File = path

	logger, _, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("model loaded", zap.String("path", "model/mlp_model.json"))
	logger.Debug("hidden at info level")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"model loaded"`) {
		t.Fatalf("expected json entry, got %s", data)
	}
	if strings.Contains(string(data), "hidden at info level") {
		t.Fatal("debug entry should be filtered")
	}
}

func TestSetLevel(t *testing.T) {
	level := zap.NewAtomicLevel()
	if err := SetLevel(level, "warn"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if level.Level() != zapcore.WarnLevel {
		t.Fatalf("expected warn, got %v", level.Level())
	}
	if err := SetLevel(level, "loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if level.Level() != zapcore.WarnLevel {
		t.Fatal("failed parse must not change the level")
	}
}
