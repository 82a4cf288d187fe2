package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/docuqa/agent-runtime/internal/config"
	"github.com/docuqa/agent-runtime/internal/executor"
	"github.com/docuqa/agent-runtime/internal/httpapi"
	"github.com/docuqa/agent-runtime/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	shutdownTelemetry := telemetry.ConfigureOpenTelemetry(ctx, "docuqa-agent")
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	oracleClient, err := buildOracle(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build oracle client: %w", err)
	}

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build document store: %w", err)
	}
	defer closeStore()

	exec := executor.New(oracleClient, store, buildExecutorOptions(cfg), defaultLogger())

	engine := gin.Default()
	httpapi.New(exec, cfg.MaxQuestionLength).WithArchive(buildArchive(cfg)).Register(engine)

	cmd.Printf("docuqa-agent listening on %s\n", cfg.HTTPAddr)
	return engine.Run(cfg.HTTPAddr)
}
