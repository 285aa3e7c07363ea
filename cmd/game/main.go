package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tatianab/gtfoklahoma/internal/app"
	"github.com/tatianab/gtfoklahoma/internal/config"
	"github.com/tatianab/gtfoklahoma/internal/logging"
	"github.com/tatianab/gtfoklahoma/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, closer, err := logging.Open(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Printf("Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	rt, err := app.Open(cfg, logger)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	if err := tui.Run(ctx, rt.Launch, rt.Store); err != nil {
		logger.Error("game exited", "err", err)
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
