// Package main provides the dashboard worker entry point for periscope.
package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/periscope/internal/config"
	"github.com/thebtf/periscope/internal/worker"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	port := flag.Int("port", 0, "Listen port (default: from config)")
	dbPath := flag.String("db", "", "Database path (default: ~/.periscope/periscope.db)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directories")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if *port > 0 {
		cfg.WorkerPort = *port
	}
	if *dbPath != "" {
		cfg.DBPath = filepath.Clean(*dbPath)
	}

	svc, err := worker.New(Version, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize worker")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		if err := svc.Stop(); err != nil {
			log.Warn().Err(err).Msg("Shutdown error")
		}
	}()

	log.Info().Str("version", Version).Int("port", cfg.WorkerPort).Msg("Starting periscope worker")
	if err := svc.Start(); err != nil {
		log.Fatal().Err(err).Msg("Worker error")
	}
}
