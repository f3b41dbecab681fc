// Command storectl manages the assistant's knowledge base and lets an
// operator talk to the assistant from a terminal, with the same safety
// pipeline the HTTP server runs.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	ctx := context.Background()

	rootCmd := &cobra.Command{
		Use:   "storectl",
		Short: "Manage the lab assistant's knowledge base",
		Long:  `Operator tooling for the Hickey Lab outreach assistant: inspect and sync the File Search store, run usage reports, and chat locally.`,
	}

	rootCmd.AddCommand(
		newStatusCommand(),
		newListCommand(),
		newSyncCommand(),
		newUploadCommand(),
		newDeleteCommand(),
		newClearCommand(),
		newAskCommand(),
		newChatCommand(),
		newReportCommand(),
		newTestAlertCommand(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads config.yaml when present and otherwise falls back to
// defaults plus GEMINI_API_KEY, so storectl works outside a deployment.
func loadConfig() (*config.Config, error) {
	config.LoadEnvFiles([]string{".env.local", ".env.development", ".env"})

	if _, err := os.Stat("config.yaml"); err == nil {
		return config.LoadFromFile("config.yaml")
	}

	cfg := config.Default()
	if cfg.Assistant.APIKey == "" {
		return nil, fmt.Errorf("no config.yaml found and GEMINI_API_KEY is not set")
	}
	return cfg, nil
}
