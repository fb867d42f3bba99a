package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kosmos-worm/server/internal/app"
	"kosmos-worm/server/internal/config"
	"kosmos-worm/server/internal/telemetry"
)

func main() {
	worldConfig := flag.String("config", "", "path to a YAML world config (overrides "+config.EnvWorldConfig+")")
	addr := flag.String("addr", "", "listen address (overrides "+config.EnvPort+")")
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := config.Load(config.Options{
		Logger:          telemetry.WrapLogger(logger),
		WorldConfigPath: *worldConfig,
		Addr:            *addr,
	})
	if err != nil {
		logger.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, app.Options{Logger: logger}); err != nil {
		logger.Fatalf("%v", err)
	}
}
