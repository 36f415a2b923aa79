package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"immigration/internal/cli/commands"
	"immigration/internal/config"

	"go.uber.org/zap"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfg := config.NewConfig()

	if cfg.Version {
		printVersion()
		return
	}

	// команды пишут в stdout, в stderr идут только предупреждения сервисов
	logger, err := zap.NewDevelopment(zap.IncreaseLevel(zap.WarnLevel))
	if err == nil {
		commands.Logger = logger.Sugar()
		defer func() { _ = logger.Sync() }()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	exitCode := commands.Dispatch(ctx, cfg, flag.Args())
	if exitCode == 0 {
		return
	}
	cancel()
	os.Exit(exitCode)
}

func printVersion() {
	fmt.Printf("Immigration office CLI\nVersion: %s\nBuild date: %s\n", version, buildDate)
}
