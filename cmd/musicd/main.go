package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"musicchain/config"
	"musicchain/core"
	"musicchain/core/genesis"
	"musicchain/observability"
	"musicchain/observability/logging"
	"musicchain/rpc"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides config GenesisFile)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if env := strings.TrimSpace(os.Getenv("MUSIC_ENV")); env != "" {
		cfg.Logging.Env = env
	}
	logger := logging.Setup("musicd", cfg.Logging.Env, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})

	if err := run(cfg, strings.TrimSpace(*genesisFlag), logger); err != nil {
		logger.Error("musicd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, genesisPath string, logger *slog.Logger) error {
	opts := core.Options{
		Logger:  logger,
		Metrics: observability.Marketplace(),
		Emitter: observability.Events(),
	}
	if genesisPath != "" {
		doc, err := genesis.Load(genesisPath)
		if err != nil {
			return err
		}
		opts.Genesis = doc
	}

	node, err := core.OpenNode(cfg, opts)
	if err != nil {
		return err
	}
	defer node.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := rpc.NewServer(node.Orchestrator(), rpc.Options{
		Logger: logger,
		RateLimit: rpc.RateLimit{
			RequestsPerMinute: float64(cfg.API.RequestsPerMinute),
			Burst:             cfg.API.Burst,
		},
	})
	logger.Info("musicd started",
		slog.String("orchestrator", node.Orchestrator().Address().Hex()),
		slog.String("stablecoin", node.Stablecoin().Address().Hex()),
		slog.String("dataDir", cfg.DataDir))
	return server.Serve(ctx, cfg.API.ListenAddress)
}
