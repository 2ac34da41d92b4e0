package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/config"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/interest"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/ledger"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/store"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/tools"
	"go.uber.org/zap"
)

func main() {
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol; logs go to stderr.
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open khata database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := ledger.NewLedger(db, interest.Calculator{Location: cfg.Location}, logger)
	if err := l.Refresh(ctx, store.Authoritative); err != nil {
		logger.Fatal("failed to load ledger", zap.Error(err))
	}
	go l.Run(ctx, cfg.RefreshInterval)

	s := server.NewMCPServer(
		"khata",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	tools.RegisterTools(s, tools.NewService(l, cfg.Location))

	if err := server.ServeStdio(s); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}
