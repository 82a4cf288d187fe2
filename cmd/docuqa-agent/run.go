package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docuqa/agent-runtime/internal/config"
	"github.com/docuqa/agent-runtime/internal/executor"
)

var (
	runUserID   string
	runQuestion string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single question against the agent and print the answer",
	Long: `run executes one agent loop against the configured document store
and oracle, then prints the grounded answer and its citations. It is meant
for local testing, not production traffic — see "serve" for the HTTP
surface.`,
	RunE: runOneShot,
}

func init() {
	runCmd.Flags().StringVarP(&runUserID, "user", "u", "cli-user", "user ID the run is scoped to")
	runCmd.Flags().StringVarP(&runQuestion, "question", "q", "", "question to ask (required)")
	_ = runCmd.MarkFlagRequired("question")
}

func runOneShot(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

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

	outcome, _, err := exec.Run(ctx, runUserID, runQuestion)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	cmd.Println(outcome.Answer)
	for i, c := range outcome.Citations {
		cmd.Printf("  [%d] %s (%s, chunk %d)\n", i+1, c.Filename, c.DocID, c.ChunkIndex)
	}
	return nil
}
