package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/contentpack/internal/config"
	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	app, err := injector.InitializeApp(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error starting server:", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app.Logger.Info("content pack server starting",
		log.Strings("transports", cfg.Server.Transports),
		log.Int("tick_rate", cfg.Simulation.TickRate),
		log.String("locale", cfg.Locale))
	if err = app.Run(ctx); err != nil {
		app.Logger.Error("server stopped with error", log.Error(err))
		os.Exit(1)
	}
	app.Logger.Info("server stopped")
}
