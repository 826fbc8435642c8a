package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/commonplacehq/passagemcp/internal/config"
	"github.com/commonplacehq/passagemcp/internal/mcp"
	"github.com/commonplacehq/passagemcp/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	configPath := flag.String("config", "", "path to YAML config file (falls back to PASSAGE_CONFIG)")
	libraryPath := flag.String("library", "", "override the configured library directory")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Passage Explorer MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	// stdout is reserved for the MCP protocol
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if *configPath == "" {
		*configPath = os.Getenv("PASSAGE_CONFIG")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *libraryPath != "" {
		cfg.SetLibraryPath(*libraryPath)
	}

	log.Info().
		Str("version", version).
		Str("library", cfg.LibraryPath).
		Str("db", cfg.DBPath).
		Str("driver", storage.DriverName).
		Msg("passage explorer starting")

	server, err := mcp.NewServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create MCP server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Discover the library and start background indexing so passages are
	// ready without waiting for the first tool call. A missing library is
	// not fatal; index_library can be called later with another path.
	go func() {
		if err := server.StartIndexing(ctx); err != nil {
			log.Warn().Err(err).Msg("startup indexing failed")
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		log.Info().Msg("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}

	log.Info().Msg("server stopped")
}
