package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"frauddetect/config"
	"frauddetect/dataset"
	"frauddetect/logging"

	"go.uber.org/zap"
)

func main() {
	configPath := config.Locate("config.yaml")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Rebase(filepath.Dir(configPath))

	datasetPath := flag.String("dataset", cfg.Dataset.Path, "dataset CSV path")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: make_row [-dataset path] [index]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// stdout carries the JSON; logs go to stderr
	cfg.Log.Output = "stderr"
	logger, _, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	index, err := parseIndex(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	reader, err := dataset.Open(*datasetPath, dataset.WithCacheSize(cfg.Dataset.CacheSize))
	if err != nil {
		logger.Fatal("failed to open dataset", zap.String("path", *datasetPath), zap.Error(err))
	}
	tx, err := reader.Row(index)
	if err != nil {
		var rangeErr *dataset.RowRangeError
		if errors.As(err, &rangeErr) {
			logger.Fatal("row out of bounds", zap.Int("index", index), zap.Int("rows", rangeErr.Rows))
		}
		logger.Fatal("failed to read row", zap.Int("index", index), zap.Error(err))
	}

	out, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		logger.Fatal("failed to encode row", zap.Error(err))
	}
	fmt.Println(string(out))
	logger.Debug("row extracted", zap.Int("index", index), zap.Bool("label_dropped", reader.HasLabel()))
}

func parseIndex(args []string) (int, error) {
	switch len(args) {
	case 0:
		return 0, nil
	case 1:
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return 0, fmt.Errorf("index must be an integer, got %q", args[0])
		}
		if index < 0 {
			return 0, fmt.Errorf("index must be non-negative, got %d", index)
		}
		return index, nil
	default:
		return 0, fmt.Errorf("expected at most one index, got %d arguments", len(args))
	}
}
