package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vshulcz/promstore/internal/config"
	"github.com/vshulcz/promstore/internal/misc"
	"github.com/vshulcz/promstore/pkg/util"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	util.BuildInfo{Version: buildVersion, Date: buildDate, Commit: buildCommit}.Print(os.Stdout)

	cfg, err := config.LoadServerConfig(os.Args[1:], nil)
	if err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		zap.String("addr", cfg.Address),
		zap.String("storage", string(cfg.Storage)),
		zap.String("prefix", cfg.KeyPrefix),
		zap.Duration("sample_interval", cfg.SampleInterval),
		zap.Bool("export_runtime", cfg.ExportRuntime))

	store, closeStore, err := buildStore(ctx, cfg, logger, misc.DefaultBackoff)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("storage close failed", zap.Error(err))
		}
	}()

	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		logger.Fatal("listen failed", zap.Error(err))
	}
	if err := run(ctx, cfg, store, ln, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
