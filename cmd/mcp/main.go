package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/annotation-compare/internal/adapters/mcp"
	"github.com/kirillkom/annotation-compare/internal/bootstrap"
	"github.com/kirillkom/annotation-compare/internal/config"
	"github.com/kirillkom/annotation-compare/internal/observability/logging"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	core, err := bootstrap.NewCore(cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	tools := mcpadapter.NewTools(core.Source, core.Comparator, core.Statistics, core.Validator, core.CompareOptions, logger)
	if err := server.ServeStdio(tools.Server(version)); err != nil {
		logger.Error("mcp_server_stopped", "error", err)
		os.Exit(1)
	}
}
