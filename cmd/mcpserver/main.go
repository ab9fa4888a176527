// Package main provides the entry point for the mem0 MCP memory server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/johnswift/mem0-mcp/internal/config"
	"github.com/johnswift/mem0-mcp/internal/logger"
	"github.com/johnswift/mem0-mcp/internal/mcp"
	"github.com/johnswift/mem0-mcp/internal/mem0"
)

const (
	serverName    = "mem0-mcp"
	serverVersion = "0.0.1"
)

type options struct {
	envFile   string
	logLevel  string
	logJSON   bool
	logSource bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// stdout is reserved for MCP JSON-RPC
		fmt.Fprintf(os.Stderr, "%s: fatal: %v\n", serverName, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	return newCommand(&options{})
}

func newCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           serverName,
		Short:         "MCP server exposing mem0 memory tools over stdio",
		Version:       serverVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "dotenv file to load before reading the environment")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	cmd.Flags().BoolVar(&opts.logJSON, "log-json", false, "emit JSON log lines on stderr; overrides LOG_JSON")
	cmd.Flags().BoolVar(&opts.logSource, "log-source", false, "include the caller location in log lines")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts *options) error {
	fmt.Fprintln(os.Stderr, "Initializing Mem0 Memory MCP Server...")

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	server := mcp.NewServer(serverName, serverVersion)

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		Output:     os.Stderr,
		JSON:       cfg.Log.JSON,
		AddSource:  opts.logSource,
		TimeFormat: "15:04:05",
		Prefix:     serverName,
		Mirror:     server,
	})
	server.SetLogger(log)

	// One client for the process lifetime; an empty API key is passed through.
	client := mem0.NewClient(cfg.Mem0.BaseURL, cfg.Mem0.APIKey)
	if cfg.Mem0.APIKey == "" {
		log.Warn("MEM0_API_KEY is not set; remote calls will be rejected")
	}

	mcp.NewMemoryHandlers(client, log).Register(server)

	if cfg.Health.Port != "" {
		health := mcp.NewHealthServer(cfg.Health.Port, server, log)
		if err := health.Start(); err != nil {
			return fmt.Errorf("start health server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := health.Shutdown(shutdownCtx); err != nil {
				log.Warn("health server shutdown failed", "error", err)
			}
		}()
	}

	log.Info("Mem0 Memory MCP Server initialized successfully", "base_url", cfg.Mem0.BaseURL)
	log.Info("Memory MCP Server running on stdio")

	// Run blocks on stdin, so a signal must not wait for the next line.
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("run server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	return nil
}

func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = opts.logJSON
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
