package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/cardroom/holdemd/internal/audit"
	"github.com/cardroom/holdemd/internal/server"
	"github.com/cardroom/holdemd/internal/store"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"holdemd.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	Database string `short:"d" long:"database" help:"SQLite database path (overrides config, empty keeps hands in memory)"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// Load configuration
	cfg, err := server.LoadServerConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.Database != "" {
		cfg.Server.Database = CLI.Database
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	// Setup logging
	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	logger.Info("Starting holdemd",
		"addr", cfg.GetServerAddress(),
		"tables", len(cfg.Tables),
		"database", cfg.Server.Database)

	// Hand storage: durable sqlite when configured, in-memory otherwise.
	var st store.Store
	if cfg.Server.Database != "" {
		st, err = store.OpenSQLite(cfg.Server.Database)
		if err != nil {
			logger.Error("Failed to open hand store", "error", err, "path", cfg.Server.Database)
			ctx.Exit(1)
		}
	} else {
		logger.Warn("No database configured, hands will not survive a restart")
		st = store.NewMemory()
	}
	defer func() { _ = st.Close() }()

	// Completed-hand audit trail
	var trail *audit.Trail
	if cfg.Server.AuditDir != "" {
		trail, err = audit.NewTrail(cfg.Server.AuditDir, logger)
		if err != nil {
			logger.Error("Failed to open audit trail", "error", err, "dir", cfg.Server.AuditDir)
			ctx.Exit(1)
		}
	}

	// Create WebSocket server and game service
	wsServer := server.NewServer(cfg.GetServerAddress(), logger)
	gameService := server.NewGameService(cfg, st, trail, wsServer, quartz.NewReal(), logger)
	wsServer.SetGameService(gameService)

	// Serve until interrupted
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return wsServer.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		return wsServer.Stop()
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		ctx.Exit(1)
	}
}
