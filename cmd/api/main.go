package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/markdave123-py/filingscope/internal/app"
	"github.com/markdave123-py/filingscope/internal/config"
	"github.com/markdave123-py/filingscope/internal/platform/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.LoadConfig()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer application.Close()

	log.Info("filingscope is running", "port", cfg.Port)
	if err := application.Run(ctx); err != nil {
		log.Error("server stopped with error", "error", err)
		return
	}
	log.Info("shut down cleanly")
}
